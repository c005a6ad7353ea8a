package views

import (
	"strconv"
	"strings"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/ui/keybindings"
	"github.com/darkhz/blescan/ui/theme"
)

const devicePage viewName = "devices"

// noDevicesText is displayed when a scan has completed without any devices.
const noDevicesText = "No devices found"

// deviceView holds the devices view.
type deviceView struct {
	table *tview.Table

	*Views
}

// Initialize initializes the devices view.
func (d *deviceView) Initialize() error {
	d.table = tview.NewTable()
	d.table.SetSelectorWrap(true)
	d.table.SetSelectable(true, false)
	d.table.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	d.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch d.kb.Key(event) {
		case keybindings.KeyMenu:
			d.menu.highlight(menuScanName)
			return event

		case keybindings.KeyHelp:
			d.help.showHelp()
			return event
		}

		d.menu.inputHandler(event)

		return ignoreDefaultEvent(event)
	})
	d.table.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		if action == tview.MouseRightClick && d.table.HasFocus() {
			if _, ok := d.getSelection(false); !ok {
				return action, event
			}

			d.menu.setupSubMenu(0, 0, menuDeviceName, struct{}{})
		}

		return action, event
	})

	return nil
}

// SetRootView sets the root view of the devices view.
func (d *deviceView) SetRootView(v *Views) {
	d.Views = v
}

// render lists the devices of the snapshot within the devices view,
// keeping the currently selected device selected.
func (d *deviceView) render(snapshot discovery.Snapshot) {
	selected, hasSelection := d.getSelection(false)

	d.table.Clear()

	if snapshot.NoDevices() {
		d.table.SetCell(0, 0, tview.NewTableCell(noDevicesText).
			SetExpansion(1).
			SetSelectable(false).
			SetAlign(tview.AlignCenter).
			SetTextColor(theme.GetColor(theme.ThemeDeviceUnnamed)),
		)

		return
	}

	row := 0
	for i, device := range snapshot.Devices {
		d.setInfo(i, device, snapshot)

		if hasSelection && device.ID == selected.ID {
			row = i
		}
	}

	d.table.Select(row, 0)
}

// showDetailedInfo shows detailed information about a device.
func (d *deviceView) showDetailedInfo() {
	device, ok := d.getSelection(false)
	if !ok {
		return
	}

	snapshot := d.app.Discovery().Snapshot()

	props := [][]string{
		{"ID", device.ID},
		{"Name", device.DisplayName},
		{"First Seen", "#" + strconv.FormatUint(device.FirstSeenOrder+1, 10)},
		{"Connected", yesno(snapshot.Connection.DeviceID == device.ID)},
		{"Connecting", yesno(snapshot.Connecting == device.ID)},
		{"Scan State", snapshot.ScanState.String()},
	}
	if snapshot.ScanState != discovery.ScanIdle {
		props = append(props, []string{"Scan Session", snapshot.Session.String()})
	}

	infoModal := d.modals.newModalWithTable("info", "Device Information", 40, 100)
	infoModal.table.SetSelectionChangedFunc(func(row, _ int) {
		_, _, _, height := infoModal.table.GetRect()
		infoModal.table.SetOffset(row-((height-1)/2), 0)
	})

	for i, prop := range props {
		propName := prop[0]
		propValue := prop[1]

		if propName == "Name" && propValue == "" {
			propValue = theme.ColorWrap(theme.ThemeDeviceUnnamed, device.Label(), "::i")
		}

		infoModal.table.SetCell(i, 0, tview.NewTableCell("[::b]"+propName+":").
			SetExpansion(1).
			SetAlign(tview.AlignLeft).
			SetTextColor(theme.GetColor(theme.ThemeText)).
			SetSelectedStyle(tcell.Style{}.
				Bold(true).
				Underline(true),
			),
		)

		infoModal.table.SetCell(i, 1, tview.NewTableCell(propValue).
			SetExpansion(1).
			SetAlign(tview.AlignLeft).
			SetTextColor(theme.GetColor(theme.ThemeText)),
		)
	}

	infoModal.height = min(infoModal.table.GetRowCount()+4, 60)

	infoModal.show()
}

// getSelection retrieves device information from the current selection in the devices view.
// If lock is set, the selection is retrieved from within the application's event loop.
func (d *deviceView) getSelection(lock bool) (discovery.DeviceRecord, bool) {
	var device discovery.DeviceRecord
	var ok bool

	getdevice := func() {
		row, _ := d.table.GetSelection()

		cell := d.table.GetCell(row, 0)
		if cell == nil {
			return
		}

		device, ok = cell.GetReference().(discovery.DeviceRecord)
	}

	if lock {
		done := make(chan struct{})

		d.app.QueueDraw(func() {
			getdevice()
			close(done)
		})
		<-done

		return device, ok
	}

	getdevice()

	return device, ok
}

// setInfo writes device information into the specified row of the devices view.
func (d *deviceView) setInfo(row int, device discovery.DeviceRecord, snapshot discovery.Snapshot) {
	properties, nameColor, propColor := deviceProperties(device, snapshot)

	d.table.SetCell(
		row, 0, tview.NewTableCell(deviceDisplay(device)).
			SetExpansion(1).
			SetReference(device).
			SetAlign(tview.AlignLeft).
			SetAttributes(tcell.AttrBold).
			SetTextColor(theme.GetColor(nameColor)).
			SetSelectedStyle(tcell.Style{}.
				Foreground(theme.GetColor(nameColor)).
				Background(theme.BackgroundColor(nameColor)),
			),
	)

	d.table.SetCell(
		row, 1, tview.NewTableCell(properties).
			SetExpansion(1).
			SetAlign(tview.AlignRight).
			SetTextColor(theme.GetColor(propColor)).
			SetSelectedStyle(tcell.Style{}.
				Bold(true),
			),
	)
}

// deviceDisplay returns the display text of a device, in the form "<label> (<id>)".
func deviceDisplay(device discovery.DeviceRecord) string {
	var sb strings.Builder

	label := tview.Escape(device.Label())
	if !device.Named() {
		label = theme.ColorWrap(theme.ThemeDeviceUnnamed, label, "::i")
	}

	sb.WriteString(label)
	sb.WriteString(" (")
	sb.WriteString(theme.ColorWrap(theme.ThemeDeviceID, device.ID, "::-"))
	sb.WriteString(")")

	return sb.String()
}

// deviceProperties returns the property text of a device and the colors of its row.
func deviceProperties(device discovery.DeviceRecord, snapshot discovery.Snapshot) (string, theme.Context, theme.Context) {
	switch device.ID {
	case snapshot.Connection.DeviceID:
		return "(Connected)", theme.ThemeDeviceConnected, theme.ThemeDevicePropertyConnected

	case snapshot.Connecting:
		return "(Connecting...)", theme.ThemeDevice, theme.ThemeDevicePropertyConnecting
	}

	return "", theme.ThemeDevice, theme.ThemeDeviceProperty
}

// yesno returns a readable representation of a boolean.
func yesno(val bool) string {
	if !val {
		return "no"
	}

	return "yes"
}
