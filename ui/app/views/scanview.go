package views

import (
	"strings"

	"github.com/darkhz/tview"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/ui/keybindings"
	"github.com/darkhz/blescan/ui/theme"
)

// scanView holds the scan view, which displays the scan and
// connection statuses on the right-most side of the menubar.
type scanView struct {
	topStatus *tview.TextView

	*Views
}

// Initialize initializes the scan view.
func (s *scanView) Initialize() error {
	s.topStatus = tview.NewTextView()
	s.topStatus.SetRegions(true)
	s.topStatus.SetDynamicColors(true)
	s.topStatus.SetTextAlign(tview.AlignRight)
	s.topStatus.SetBackgroundColor(theme.GetColor(theme.ThemeMenuBar))
	s.topStatus.SetHighlightedFunc(func(added, _, _ []string) {
		if added == nil {
			return
		}

		if added[0] == "scan" {
			go s.actions.handler(keybindings.KeyScanStart, actionInvoke)()
		}

		s.topStatus.Highlight("")
	})

	s.menu.setHeader(theme.ColorWrap(theme.ThemeHeader, "blescan", "::b"))

	return nil
}

// SetRootView sets the root view for the scan view.
func (s *scanView) SetRootView(v *Views) {
	s.Views = v
}

// render updates the status display with the snapshot.
func (s *scanView) render(snapshot discovery.Snapshot) {
	s.topStatus.SetText(scanStatus(snapshot))
}

// scanStatus returns the status badges for the snapshot.
func scanStatus(snapshot discovery.Snapshot) string {
	var sb strings.Builder

	if !snapshot.PermissionGranted {
		sb.WriteString(theme.Badge(theme.ThemeNoPermission, "permission", "No Permission"))
		sb.WriteString(" ")
	}

	switch {
	case snapshot.Connecting != "":
		sb.WriteString(theme.Badge(theme.ThemeDevicePropertyConnecting, "connecting", "Connecting..."))
		sb.WriteString(" ")

	case snapshot.Connection.IsConnected():
		device := snapshot.ConnectedDevice
		if device.ID == "" {
			device.ID = snapshot.Connection.DeviceID
		}

		text := "Connected to " + tview.Escape(device.Label()) + " (" + device.ID + ")"
		sb.WriteString(theme.Badge(theme.ThemeConnected, "connected", text))
		sb.WriteString(" ")
	}

	switch snapshot.ScanState {
	case discovery.ScanScanning:
		sb.WriteString(theme.Badge(theme.ThemeScanScanning, "scanning", "Scanning..."))

	case discovery.ScanCompleted:
		sb.WriteString(theme.Badge(theme.ThemeScanCompleted, "scan", "Scan completed"))

	default:
		sb.WriteString(theme.Badge(theme.ThemeScanIdle, "scan", "Start Scan"))
	}

	sb.WriteString(" ")

	return sb.String()
}
