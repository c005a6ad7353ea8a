package views

import (
	"context"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/ui/keybindings"
)

// viewActions holds an instance of a view actions manager,
// which maps different actions to their respective view action contexts and actions.
type viewActions struct {
	rv *Views

	fnmap map[viewActionContext]map[keybindings.Key]func(set ...string) bool
}

// viewActionContext describes the context in which the
// action is supposed to be executed in.
type viewActionContext int

// The different context types for actions.
const (
	actionInvoke viewActionContext = iota
	actionInitializer
	actionVisibility
)

// newViewActions returns a new view actions manager.
func newViewActions(rv *Views) *viewActions {
	v := &viewActions{rv: rv}

	return v.initViewActions()
}

// initViewActions initializes and stores the different view actions based on their view action contexts.
func (v *viewActions) initViewActions() *viewActions {
	v.fnmap = map[viewActionContext]map[keybindings.Key]func(set ...string) bool{
		actionInvoke: {
			keybindings.KeyScanStart:     v.scan,
			keybindings.KeyScanStop:      v.stopScan,
			keybindings.KeyDeviceConnect: v.connect,
			keybindings.KeyDeviceInfo:    v.info,
			keybindings.KeyQuit:          v.quit,
		},
		actionInitializer: {
			keybindings.KeyScanStart:     v.initScan,
			keybindings.KeyDeviceConnect: v.initConnect,
		},
		actionVisibility: {
			keybindings.KeyScanStop:      v.visibleStopScan,
			keybindings.KeyDeviceConnect: v.visibleDevice,
			keybindings.KeyDeviceInfo:    v.visibleDevice,
		},
	}

	return v
}

// handler executes the handler assigned to the key type based on
// the action context.
func (v *viewActions) handler(key keybindings.Key, actionContext viewActionContext) func() bool {
	handler := v.fnmap[actionContext][key]
	if handler == nil {
		return func() bool { return false }
	}

	if actionContext == actionInvoke {
		return func() bool {
			go handler()
			return false
		}
	}

	return func() bool {
		return handler()
	}
}

// scan starts a new scan session. Scanning cannot be started
// while a scan is in progress.
func (v *viewActions) scan(_ ...string) bool {
	service := v.rv.app.Discovery()
	if service.Snapshot().ScanState == discovery.ScanScanning {
		return false
	}

	if err := service.StartScan(); err != nil {
		v.rv.status.ErrorMessage(err)
		return false
	}

	v.rv.menu.toggleItemByKey(keybindings.KeyScanStart, true)

	return true
}

// stopScan stops the current scan session.
func (v *viewActions) stopScan(_ ...string) bool {
	if err := v.rv.app.Discovery().StopScan(); err != nil {
		v.rv.status.ErrorMessage(err)
		return false
	}

	v.rv.menu.toggleItemByKey(keybindings.KeyScanStart, false)

	return true
}

// quit closes the discovery service and exits the application.
func (v *viewActions) quit(_ ...string) bool {
	if v.rv.cfg.Values.ConfirmOnQuit && v.rv.status.SetInput("Quit (y/n)?") != "y" {
		return false
	}

	v.rv.op.cancelOperation(true)
	v.rv.status.Release()
	v.rv.app.Close()

	return true
}

// initScan is the oncreate handler for the scan submenu option.
func (v *viewActions) initScan(_ ...string) bool {
	return v.rv.app.Discovery().Snapshot().ScanState == discovery.ScanScanning
}

// initConnect is the oncreate handler for the connect submenu option.
func (v *viewActions) initConnect(_ ...string) bool {
	device, ok := v.rv.device.getSelection(false)
	if !ok {
		return false
	}

	return v.rv.app.Discovery().Snapshot().Connection.DeviceID == device.ID
}

// visibleStopScan is the visible handler for the stop scan submenu option.
func (v *viewActions) visibleStopScan(_ ...string) bool {
	return v.initScan()
}

// visibleDevice is the visible handler for the device submenu options.
func (v *viewActions) visibleDevice(_ ...string) bool {
	_, ok := v.rv.device.getSelection(false)

	return ok
}

// connect retrieves the selected device, and attempts to connect to it.
// The outcome is reported through the notices of the discovery service.
func (v *viewActions) connect(_ ...string) bool {
	device, ok := v.rv.device.getSelection(true)
	if !ok {
		return false
	}

	v.rv.op.startOperation(
		func(ctx context.Context) {
			err := v.rv.app.Discovery().Connect(ctx, device.ID)
			if err != nil && !discovery.IsReported(err) {
				v.rv.status.ErrorMessage(err)
			}
		},
		func() {
			v.rv.status.InfoMessage("Cancelled connection to "+device.Label(), false)
		},
	)

	return true
}

// info retrieves the selected device, and shows the device information.
func (v *viewActions) info(_ ...string) bool {
	v.rv.app.QueueDraw(func() {
		v.rv.device.showDetailedInfo()
	})

	return true
}
