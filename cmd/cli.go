package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/radio"
	"github.com/darkhz/blescan/radio/fake"
	"github.com/darkhz/blescan/ui/app"
	"github.com/darkhz/blescan/ui/config"
)

// These values are set at compile-time.
var (
	Version  = ""
	Revision = ""
)

// Run runs the commandline application.
func Run() error {
	return newApp().Run(os.Args)
}

// newApp returns a new commandline application.
func newApp() *cli.App {
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Fprintf(cCtx.App.Writer, "%s (%s)\n", Version, Revision)
	}

	return &cli.App{
		Name:                   "blescan",
		Usage:                  "Bluetooth LE scanner.",
		Version:                Version + " (" + Revision + ")",
		Description:            "Discover nearby Bluetooth LE devices and connect to them from the terminal.",
		DefaultCommand:         "blescan",
		Copyright:              "(c) darkhz.",
		Compiled:               time.Now(),
		EnableBashCompletion:   true,
		UseShortOptionHandling: true,
		Suggest:                true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scan-timeout",
				Aliases: []string{"t"},
				EnvVars: []string{"BLESCAN_SCAN_TIMEOUT"},
				Usage:   "Specify how long a scan runs. (For example, '20s')",
			},
			&cli.StringFlag{
				Name:    "connect-timeout",
				Aliases: []string{"T"},
				EnvVars: []string{"BLESCAN_CONNECT_TIMEOUT"},
				Usage:   "Specify how long a connection attempt may take. (For example, '10s')",
			},
			&cli.StringFlag{
				Name:    "service-filter",
				Aliases: []string{"f"},
				EnvVars: []string{"BLESCAN_SERVICE_FILTER"},
				Usage:   "Only list devices advertising any of these services. (For example, '180d,180f')",
			},
			&cli.StringFlag{
				Name:    "connect-id",
				Aliases: []string{"a"},
				EnvVars: []string{"BLESCAN_CONNECT_ID"},
				Usage:   "Connect to this device once it is discovered. (For example, 'AA:BB:CC:DD:EE:FF')",
			},
			&cli.BoolFlag{
				Name:    "simulate",
				Aliases: []string{"s"},
				EnvVars: []string{"BLESCAN_SIMULATE"},
				Usage:   "Use a simulated radio with a few nearby devices instead of the Bluetooth adapter.",
			},
			&cli.BoolFlag{
				Name:    "scan-only",
				Aliases: []string{"o"},
				EnvVars: []string{"BLESCAN_SCAN_ONLY"},
				Usage:   "Run a single scan without the interface, and print the discovered devices.",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Aliases: []string{"l"},
				EnvVars: []string{"BLESCAN_LOG_FILE"},
				Usage:   "Specify the path of the log file. (Default is 'blescan.log' in the configuration directory)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"L"},
				EnvVars: []string{"BLESCAN_LOG_LEVEL"},
				Usage:   "Specify the log level. (For example, 'debug')",
			},
			&cli.BoolFlag{
				Name:    "no-warning",
				Aliases: []string{"w"},
				EnvVars: []string{"BLESCAN_NO_WARNING"},
				Usage:   "Do not display warnings when the application has initialized.",
			},
			&cli.BoolFlag{
				Name:    "no-help-display",
				Aliases: []string{"i"},
				EnvVars: []string{"BLESCAN_NO_HELP_DISPLAY"},
				Usage:   "Do not display help keybindings in the application.",
			},
			&cli.BoolFlag{
				Name:    "confirm-on-quit",
				Aliases: []string{"c"},
				EnvVars: []string{"BLESCAN_CONFIRM_ON_QUIT"},
				Usage:   "Ask for confirmation before quitting the application.",
			},
			&cli.BoolFlag{
				Name:    "generate",
				Aliases: []string{"g"},
				Usage:   "Generate configuration.",
				Action: func(cliCtx *cli.Context, _ bool) error {
					k := koanf.New(".")

					cliCtx.Command.Name = "global"

					conf := config.NewConfig()
					if err := conf.Load(k, cliCtx); err != nil {
						return err
					}

					return conf.GenerateAndSave(k)
				},
			},
		},
		Action: func(cliCtx *cli.Context) error {
			if cliCtx.Bool("generate") {
				return nil
			}

			// required for koanf to merge all global flags under the root namespace.
			cliCtx.Command.Name = "global"

			k, cfg := koanf.New("."), config.NewConfig()
			if err := cfg.Load(k, cliCtx); err != nil {
				return err
			}
			if err := cfg.ValidateValues(); err != nil {
				return err
			}

			log, closeLog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			service := discovery.NewService(newAdapter(cfg, log), cfg.Values.DiscoveryOptions(), log)
			defer func() {
				if err := service.Close(); err != nil {
					log.WithError(err).Warn("discovery service did not shut down cleanly")
				}
			}()

			log.WithFields(logrus.Fields{
				"simulate":     cfg.Values.Simulate,
				"scan-timeout": cfg.Values.ScanTimeoutDuration,
				"filter":       cfg.Values.ServiceFilterList,
			}).Info("blescan started")

			if !service.Enable() {
				printPermissionWarning(cfg)
			}

			if cfg.Values.ScanOnly {
				return scanOnly(cliCtx.Context, service, cfg)
			}

			return app.NewApplication().Start(service, cfg)
		},
		ExitErrHandler: func(_ *cli.Context, err error) {
			if err == nil {
				return
			}

			printError(err)
		},
	}
}

// newAdapter returns the radio adapter to discover devices with.
func newAdapter(cfg *config.Config, log logrus.FieldLogger) radio.Adapter {
	if cfg.Values.Simulate {
		return fake.Neighborhood()
	}

	return radio.NewBLEAdapter(log)
}

// printPermissionWarning prints a warning if the radio could not be enabled.
func printPermissionWarning(cfg *config.Config) {
	if cfg.Values.NoWarning {
		return
	}

	printWarn("Bluetooth access was not granted, scans will fail until it is.")
	time.Sleep(1 * time.Second)
}
