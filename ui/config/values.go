package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/ui/keybindings"
	"github.com/darkhz/blescan/ui/theme"
)

// The bounds for the scan and connection timeouts.
const (
	MinTimeout = 1 * time.Second
	MaxTimeout = 5 * time.Minute
)

// bluetoothBaseUUID is used to expand 16-bit and 32-bit service identifiers.
const bluetoothBaseUUID = "-0000-1000-8000-00805f9b34fb"

// Values describes the possible configuration values that a user can
// modify and supply to the application.
type Values struct {
	ScanTimeout    string            `koanf:"scan-timeout"`
	ConnectTimeout string            `koanf:"connect-timeout"`
	ServiceFilter  string            `koanf:"service-filter"`
	ConnectID      string            `koanf:"connect-id"`
	Simulate       bool              `koanf:"simulate"`
	ScanOnly       bool              `koanf:"scan-only"`
	LogFile        string            `koanf:"log-file"`
	LogLevel       string            `koanf:"log-level"`
	NoWarning      bool              `koanf:"no-warning"`
	NoHelpDisplay  bool              `koanf:"no-help-display"`
	ConfirmOnQuit  bool              `koanf:"confirm-on-quit"`
	Theme          map[string]string `koanf:"theme"`
	Keybindings    map[string]string `koanf:"keybindings"`

	ScanTimeoutDuration    time.Duration
	ConnectTimeoutDuration time.Duration
	ServiceFilterList      []string
	Level                  logrus.Level
	Kb                     *keybindings.Keybindings
}

// DiscoveryOptions returns the options for the discovery service.
func (v *Values) DiscoveryOptions() discovery.Options {
	return discovery.Options{
		ScanTimeout:    v.ScanTimeoutDuration,
		ConnectTimeout: v.ConnectTimeoutDuration,
		ServiceFilter:  v.ServiceFilterList,
		AutoConnectID:  v.ConnectID,
	}
}

// validateValues validates all configuration values.
func (v *Values) validateValues() error {
	for _, validate := range []func() error{
		v.validateKeybindings,
		v.validateTimeouts,
		v.validateServiceFilter,
		v.validateConnectID,
		v.validateLogLevel,
		v.validateTheme,
	} {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

// validateKeybindings validates the keybindings.
func (v *Values) validateKeybindings() error {
	v.Kb = keybindings.NewKeybindings()
	if len(v.Keybindings) == 0 {
		return nil
	}

	return v.Kb.Validate(v.Keybindings)
}

// validateTimeouts validates the scan and connection timeouts.
func (v *Values) validateTimeouts() error {
	for _, timeout := range []struct {
		name, value string
		fallback    time.Duration
		dest        *time.Duration
	}{
		{"scan-timeout", v.ScanTimeout, discovery.DefaultScanTimeout, &v.ScanTimeoutDuration},
		{"connect-timeout", v.ConnectTimeout, discovery.DefaultConnectTimeout, &v.ConnectTimeoutDuration},
	} {
		if timeout.value == "" {
			*timeout.dest = timeout.fallback
			continue
		}

		duration, err := time.ParseDuration(timeout.value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration '%s' (for example, '20s' or '1m')", timeout.name, timeout.value)
		}

		if duration < MinTimeout || duration > MaxTimeout {
			return fmt.Errorf("%s: duration '%s' must be between %s and %s", timeout.name, timeout.value, MinTimeout, MaxTimeout)
		}

		*timeout.dest = duration
	}

	return nil
}

// validateServiceFilter validates the list of service identifiers to filter scans with.
// 16-bit and 32-bit identifiers are expanded with the Bluetooth base UUID.
func (v *Values) validateServiceFilter() error {
	v.ServiceFilterList = nil
	if v.ServiceFilter == "" {
		return nil
	}

	for service := range strings.SplitSeq(v.ServiceFilter, ",") {
		service = strings.ToLower(strings.TrimSpace(service))
		if service == "" {
			continue
		}

		switch len(service) {
		case 4:
			service = "0000" + service + bluetoothBaseUUID

		case 8:
			service += bluetoothBaseUUID
		}

		parsed, err := uuid.Parse(service)
		if err != nil {
			return fmt.Errorf("service-filter: '%s' is not a valid service UUID", service)
		}

		v.ServiceFilterList = append(v.ServiceFilterList, parsed.String())
	}

	return nil
}

// validateConnectID validates the identifier of the device that has to be automatically connected to
// once it is discovered. Hardware addresses are normalized to upper-case.
func (v *Values) validateConnectID() error {
	v.ConnectID = strings.TrimSpace(v.ConnectID)
	if v.ConnectID == "" {
		return nil
	}

	if addr, err := net.ParseMAC(v.ConnectID); err == nil {
		if len(addr) != 6 {
			return fmt.Errorf("connect-id: invalid address format: %s", v.ConnectID)
		}

		v.ConnectID = strings.ToUpper(addr.String())

		return nil
	}

	if _, err := uuid.Parse(v.ConnectID); err != nil {
		return fmt.Errorf("connect-id: '%s' is neither a device address nor a device UUID", v.ConnectID)
	}

	return nil
}

// validateLogLevel validates the log level.
func (v *Values) validateLogLevel() error {
	if v.LogLevel == "" {
		v.Level = logrus.InfoLevel
		return nil
	}

	level, err := logrus.ParseLevel(v.LogLevel)
	if err != nil {
		return fmt.Errorf("log-level: %w", err)
	}

	v.Level = level

	return nil
}

// validateTheme validates the theme configuration.
func (v *Values) validateTheme() error {
	if len(v.Theme) == 0 {
		return nil
	}

	return theme.ParseThemeConfig(v.Theme)
}
