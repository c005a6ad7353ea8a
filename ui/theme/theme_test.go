package theme

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestParseThemeConfig(t *testing.T) {
	original := ThemeConfig[ThemeDeviceUnnamed]
	t.Cleanup(func() { ThemeConfig[ThemeDeviceUnnamed] = original })

	if err := ParseThemeConfig(map[string]string{"DeviceUnnamed": "black"}); err != nil {
		t.Fatalf("Failed to parse theme: %v", err)
	}
	if ThemeConfig[ThemeDeviceUnnamed] != "#000000" {
		t.Errorf("Expected black to be stored as #000000, got %s", ThemeConfig[ThemeDeviceUnnamed])
	}

	if err := ParseThemeConfig(map[string]string{"DeviceUnnamed": "notacolor"}); err == nil {
		t.Error("Expected an invalid color to be rejected")
	}
	if err := ParseThemeConfig(map[string]string{"Adapter": "red"}); err == nil {
		t.Error("Expected an unknown element to be rejected")
	}
}

func TestColorWrap(t *testing.T) {
	if got := ColorWrap(ThemeScanScanning, "Scanning"); got != "[yellow::b]Scanning[-:-:-]" {
		t.Errorf("Unexpected wrapped text: %s", got)
	}
	if got := ColorWrap(ThemeScanScanning, "Scanning", "::bu"); got != "[yellow::bu]Scanning[-:-:-]" {
		t.Errorf("Unexpected wrapped text: %s", got)
	}
}

func TestBackgroundColor(t *testing.T) {
	if BackgroundColor(ThemeScanScanning) != tcell.ColorBlack {
		t.Error("Expected black text on a light color")
	}
}

func TestBadge(t *testing.T) {
	want := `["scan"][black:yellow:b] Scanning [-:-:-][""]`
	if got := Badge(ThemeScanScanning, "scan", "Scanning"); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
