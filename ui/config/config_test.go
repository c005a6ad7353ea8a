package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/parsers/hjson"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"

	"github.com/darkhz/blescan/discovery"
)

func TestValues_Defaults(t *testing.T) {
	var v Values

	if err := v.validateValues(); err != nil {
		t.Fatalf("Failed to validate empty configuration: %v", err)
	}

	opts := v.DiscoveryOptions()
	if opts.ScanTimeout != discovery.DefaultScanTimeout || opts.ConnectTimeout != discovery.DefaultConnectTimeout {
		t.Errorf("Unexpected default timeouts: %+v", opts)
	}
	if opts.ServiceFilter != nil || opts.AutoConnectID != "" {
		t.Errorf("Expected no filter and no auto-connect, got %+v", opts)
	}
	if v.Level != logrus.InfoLevel {
		t.Errorf("Expected the info log level, got %s", v.Level)
	}
	if v.Kb == nil {
		t.Error("Expected the keybindings to be initialized")
	}
}

func TestValues_Timeouts(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
		fails bool
	}{
		{value: "30s", want: 30 * time.Second},
		{value: "1m", want: time.Minute},
		{value: "500ms", fails: true},
		{value: "1h", fails: true},
		{value: "soon", fails: true},
	}

	for _, test := range tests {
		v := Values{ScanTimeout: test.value, ConnectTimeout: test.value}

		err := v.validateTimeouts()
		if test.fails {
			if err == nil {
				t.Errorf("Expected %q to be rejected", test.value)
			}

			continue
		}

		if err != nil {
			t.Errorf("Failed to validate %q: %v", test.value, err)
			continue
		}
		if v.ScanTimeoutDuration != test.want || v.ConnectTimeoutDuration != test.want {
			t.Errorf("Expected %s, got %s and %s", test.want, v.ScanTimeoutDuration, v.ConnectTimeoutDuration)
		}
	}
}

func TestValues_ServiceFilter(t *testing.T) {
	v := Values{ServiceFilter: "180D, 0000180f, 6E400001-B5A3-F393-E0A9-E50E24DCCA9E,"}
	if err := v.validateServiceFilter(); err != nil {
		t.Fatalf("Failed to validate filter: %v", err)
	}

	want := []string{
		"0000180d-0000-1000-8000-00805f9b34fb",
		"0000180f-0000-1000-8000-00805f9b34fb",
		"6e400001-b5a3-f393-e0a9-e50e24dcca9e",
	}
	if len(v.ServiceFilterList) != len(want) {
		t.Fatalf("Expected %v, got %v", want, v.ServiceFilterList)
	}
	for i := range want {
		if v.ServiceFilterList[i] != want[i] {
			t.Errorf("Expected %s, got %s", want[i], v.ServiceFilterList[i])
		}
	}

	v = Values{ServiceFilter: "heart-rate"}
	if err := v.validateServiceFilter(); err == nil {
		t.Error("Expected an invalid service to be rejected")
	}
}

func TestValues_ConnectID(t *testing.T) {
	v := Values{ConnectID: " aa:bb:cc:dd:ee:ff "}
	if err := v.validateConnectID(); err != nil {
		t.Fatalf("Failed to validate address: %v", err)
	}
	if v.ConnectID != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Expected a normalized address, got %s", v.ConnectID)
	}

	v = Values{ConnectID: "5d1a2f52-8c4e-4a4e-9b53-1b0b5e3f7a10"}
	if err := v.validateConnectID(); err != nil {
		t.Errorf("Expected a device UUID to be accepted: %v", err)
	}

	v = Values{ConnectID: "my-sensor"}
	if err := v.validateConnectID(); err == nil {
		t.Error("Expected an invalid identifier to be rejected")
	}
}

func TestValues_LogLevel(t *testing.T) {
	v := Values{LogLevel: "debug"}
	if err := v.validateLogLevel(); err != nil || v.Level != logrus.DebugLevel {
		t.Errorf("Expected the debug level, got %s (%v)", v.Level, err)
	}

	v = Values{LogLevel: "loud"}
	if err := v.validateLogLevel(); err == nil {
		t.Error("Expected an invalid level to be rejected")
	}
}

func TestConfig_Directory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))

	if err := os.Mkdir(filepath.Join(home, "xdg"), 0o700); err != nil {
		t.Fatal(err)
	}

	c := NewConfig()
	if err := c.createConfigDir(); err != nil {
		t.Fatalf("Failed to create the configuration directory: %v", err)
	}

	want := filepath.Join(home, "xdg", "blescan")
	if c.path != want {
		t.Errorf("Expected %s, got %s", want, c.path)
	}
	if got := c.LogPath(); got != filepath.Join(want, "blescan.log") {
		t.Errorf("Unexpected log path %s", got)
	}

	c.Values.LogFile = "/tmp/custom.log"
	if got := c.LogPath(); got != "/tmp/custom.log" {
		t.Errorf("Expected the configured log path, got %s", got)
	}
}

func TestConfig_GenerateAndSave(t *testing.T) {
	c := &Config{path: t.TempDir()}

	k := koanf.New(".")
	k.Set("scan-timeout", "45s")
	k.Set("confirm-on-quit", true)
	k.Set("theme.ScanScanning", "orange")
	k.Set("keybindings.Quit", "Ctrl+q")

	if err := c.GenerateAndSave(k); err != nil {
		t.Fatalf("Failed to save configuration: %v", err)
	}

	path, err := c.FilePath(configFile)
	if err != nil {
		t.Fatal(err)
	}

	loaded := koanf.New(".")
	if err := loaded.Load(file.Provider(path), hjson.Parser()); err != nil {
		t.Fatalf("Failed to load the generated configuration: %v", err)
	}

	saved := &Config{}
	if err := saved.unmarshal(loaded); err != nil {
		t.Fatalf("Failed to decode the generated configuration: %v", err)
	}

	if saved.Values.ScanTimeout != "45s" || !saved.Values.ConfirmOnQuit {
		t.Errorf("Unexpected values: %+v", saved.Values)
	}
	if saved.Values.Theme["ScanScanning"] != "orange" {
		t.Errorf("Expected the theme to be saved, got %v", saved.Values.Theme)
	}
	if saved.Values.Keybindings["Quit"] != "Ctrl+q" {
		t.Errorf("Expected the keybindings to be saved, got %v", saved.Values.Keybindings)
	}
}
