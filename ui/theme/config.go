package theme

import (
	"fmt"
)

// Context describes the type of context to apply the color into.
type Context string

// The different context types for themes.
const (
	ThemeText                     Context = "Text"
	ThemeBorder                   Context = "Border"
	ThemeBackground               Context = "Background"
	ThemeStatusInfo               Context = "StatusInfo"
	ThemeStatusWarning            Context = "StatusWarning"
	ThemeStatusError              Context = "StatusError"
	ThemeHeader                   Context = "Header"
	ThemeScanIdle                 Context = "ScanIdle"
	ThemeScanScanning             Context = "ScanScanning"
	ThemeScanCompleted            Context = "ScanCompleted"
	ThemeConnected                Context = "Connected"
	ThemeNoPermission             Context = "NoPermission"
	ThemeDevice                   Context = "Device"
	ThemeDeviceID                 Context = "DeviceID"
	ThemeDeviceUnnamed            Context = "DeviceUnnamed"
	ThemeDeviceConnected          Context = "DeviceConnected"
	ThemeDeviceProperty           Context = "DeviceProperty"
	ThemeDevicePropertyConnected  Context = "DevicePropertyConnected"
	ThemeDevicePropertyConnecting Context = "DevicePropertyConnecting"
	ThemeMenu                     Context = "Menu"
	ThemeMenuBar                  Context = "MenuBar"
	ThemeMenuItem                 Context = "MenuItem"
	ThemeProgressBar              Context = "ProgressBar"
)

// ThemeConfig stores a list of color for the modifier elements.
var ThemeConfig = map[Context]string{
	ThemeText:          "white",
	ThemeBorder:        "white",
	ThemeBackground:    "default",
	ThemeStatusInfo:    "white",
	ThemeStatusWarning: "yellow",
	ThemeStatusError:   "red",

	ThemeHeader:        "white",
	ThemeScanIdle:      "grey",
	ThemeScanScanning:  "yellow",
	ThemeScanCompleted: "aqua",
	ThemeConnected:     "green",
	ThemeNoPermission:  "red",

	ThemeDevice:                   "white",
	ThemeDeviceID:                 "grey",
	ThemeDeviceUnnamed:            "orange",
	ThemeDeviceConnected:          "green",
	ThemeDeviceProperty:           "grey",
	ThemeDevicePropertyConnected:  "green",
	ThemeDevicePropertyConnecting: "yellow",

	ThemeMenu:     "white",
	ThemeMenuBar:  "default",
	ThemeMenuItem: "white",

	ThemeProgressBar: "white",
}

// ParseThemeConfig parses the theme configuration.
func ParseThemeConfig(themeConfig map[string]string) error {
	for context, color := range themeConfig {
		if _, ok := ThemeConfig[Context(context)]; !ok {
			return fmt.Errorf("theme configuration has an unknown element %s", context)
		}

		if !isValidElementColor(color) {
			return fmt.Errorf("theme configuration is incorrect for %s (%s)", context, color)
		}

		switch color {
		case "black":
			color = "#000000"

		case "transparent":
			color = "default"
		}

		ThemeConfig[Context(context)] = color
	}

	return nil
}
