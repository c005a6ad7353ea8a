package cmd

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/darkhz/blescan/ui/config"
)

// newLogger returns a logger which writes to the configured log file.
// The terminal is owned by the interface, so nothing is logged to it.
func newLogger(cfg *config.Config) (*logrus.Logger, func(), error) {
	path := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}

	output := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     14,
	}

	log := logrus.New()
	log.SetOutput(output)
	log.SetLevel(cfg.Values.Level)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	return log, func() { output.Close() }, nil
}
