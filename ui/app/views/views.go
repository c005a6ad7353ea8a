package views

import (
	"context"
	"errors"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/ui/config"
	"github.com/darkhz/blescan/ui/keybindings"
	"github.com/darkhz/blescan/ui/theme"
)

// AppData holds all the necessary layout and event handling data for the root application to initialize.
// This is passed to the application once all the views are initialized using [Views.Initialize].
type AppData struct {
	// layout holds the layout of the application.
	Layout         *tview.Flex
	InitialFocus   *tview.Flex
	MouseFunc      func(event *tcell.EventMouse, action tview.MouseAction) (*tcell.EventMouse, tview.MouseAction)
	BeforeDrawFunc func(t tcell.Screen) bool
	InputCapture   func(event *tcell.EventKey) *tcell.EventKey
}

// AppBinder binds all the root application's functions to the views manager ([Views]).
type AppBinder interface {
	Discovery() *discovery.Service

	QueueDraw(drawFunc func())
	InstantDraw(drawFunc func())
	Refresh()
	FocusPrimitive(primitive tview.Primitive)

	Suspend(t tcell.Screen)
	StartSuspend()
	GetFocused() tview.Primitive
	Close()
}

// viewInitializer represents an initializer for a view.
// All views must implement this interface.
type viewInitializer interface {
	Initialize() error
	SetRootView(v *Views)
}

// Views holds all the views as well as different managers for
// the view layouts, operations and actions.
type Views struct {
	// pages holds and renders the different views, along with
	// any menu popups that will be added.
	pages  *viewPages
	layout *tview.Flex

	menu     *menuBarView
	help     *helpView
	status   *statusBarView
	modals   *modalViews
	device   *deviceView
	scan     *scanView
	progress *progressView

	actions *viewActions
	op      *viewOperation
	kb      *keybindings.Keybindings
	cfg     *config.Config

	app AppBinder
}

// NewViews returns a new Views instance.
func NewViews() *Views {
	return &Views{
		pages:    &viewPages{},
		menu:     &menuBarView{},
		help:     &helpView{},
		status:   &statusBarView{},
		modals:   &modalViews{},
		device:   &deviceView{},
		scan:     &scanView{},
		progress: &progressView{},
		actions:  &viewActions{},
		op:       &viewOperation{},
		kb:       &keybindings.Keybindings{},
	}
}

// Initialize initializes all the views.
func (v *Views) Initialize(binder AppBinder, cfg *config.Config) (*AppData, error) {
	v.app = binder
	v.cfg = cfg
	v.kb = v.cfg.Values.Kb

	v.actions = newViewActions(v)
	v.op = newViewOperation(v)

	v.pages = newViewPages()
	v.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.pages, 0, 10, true)

	initializers := []viewInitializer{
		v.menu,
		v.status,
		v.help,
		v.modals,
		v.scan,
		v.device,
		v.progress,
	}

	for _, i := range initializers {
		i.SetRootView(v)

		if err := i.Initialize(); err != nil {
			return nil, err
		}
	}

	v.render(v.app.Discovery().Snapshot())
	go v.event()

	return &AppData{
		Layout:       v.layout,
		InitialFocus: v.arrangeViews(),
		MouseFunc: func(event *tcell.EventMouse, action tview.MouseAction) (*tcell.EventMouse, tview.MouseAction) {
			return v.modals.modalMouseHandler(event, action)
		},
		BeforeDrawFunc: func(t tcell.Screen) bool {
			v.modals.resizeModal()
			v.app.Suspend(t)

			return false
		},
		InputCapture: func(event *tcell.EventKey) *tcell.EventKey {
			operation := v.kb.Key(event)

			if e, ok := v.kb.IsNavigation(operation, event); ok {
				focused := v.app.GetFocused()
				if focused != nil && focused.InputHandler() != nil {
					focused.InputHandler()(e, nil)
					return nil
				}
			}

			switch operation {
			case keybindings.KeySuspend:
				v.app.StartSuspend()

			case keybindings.KeyCancel:
				v.op.cancelOperation(true)
			}

			return tcell.NewEventKey(event.Key(), event.Rune(), event.Modifiers())
		},
	}, nil
}

// arrangeViews arranges all the views and their layouts.
func (v *Views) arrangeViews() *tview.Flex {
	box := tview.NewBox().
		SetBackgroundColor(theme.GetColor(theme.ThemeMenuBar))

	menuArea := tview.NewFlex().
		AddItem(v.menu.bar, 0, 1, false).
		AddItem(box, 1, 0, false).
		AddItem(v.scan.topStatus, 0, 2, false)
	menuArea.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	menuArea.SetDrawFunc(func(_ tcell.Screen, x, y, width, height int) (int, int, int, int) {
		w := tview.TaggedStringWidth(v.menu.bar.GetText(false))
		resize := min(w, width/2)

		menuArea.ResizeItem(v.menu.bar, resize, 0)

		return x, y, width, height
	})

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(menuArea, 1, 0, false).
		AddItem(v.progress.view, 1, 0, false).
		AddItem(v.device.table, 0, 10, true)
	flex.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	v.pages.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	v.pages.SetChangedFunc(func() {
		page, _ := v.pages.GetFrontPage()

		switch page {
		case devicePage.String():
			v.pages.currentPage(page)
			v.pages.currentContext(keybindings.ContextDevice)

		default:
			v.pages.currentContext(keybindings.ContextApp)
		}

		v.help.showStatusHelp(page)
	})

	v.layout.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	v.pages.AddAndSwitchToPage(devicePage.String(), flex, true)
	v.status.InfoMessage("blescan is ready.", false)

	return flex
}

// event listens for snapshots and notices from the discovery service,
// and updates the views accordingly.
func (v *Views) event() {
	sub := v.app.Discovery().Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case snapshot, ok := <-sub.Snapshots:
			if !ok {
				return
			}

			v.progress.track(snapshot)

			// Snapshots may be drawn out of order, so always draw the latest one.
			go v.app.QueueDraw(func() {
				v.render(v.app.Discovery().Snapshot())
			})

		case notice, ok := <-sub.Notices:
			if !ok {
				return
			}

			v.notice(notice)
		}
	}
}

// render renders the snapshot onto the views.
func (v *Views) render(snapshot discovery.Snapshot) {
	v.device.render(snapshot)
	v.scan.render(snapshot)
}

// notice displays a notice from the discovery service.
func (v *Views) notice(notice discovery.Notice) {
	switch notice.Kind {
	case discovery.NoticeInfo:
		v.status.InfoMessage(notice.Message, false)

	case discovery.NoticeWarning:
		v.status.WarningMessage(notice.Message)

	case discovery.NoticeError:
		if !errors.Is(notice.Err, discovery.ErrConnection) {
			v.status.ErrorMessage(notice.Err)
			return
		}

		if errors.Is(notice.Err, context.Canceled) {
			return
		}

		v.status.ErrorMessage(notice.Err)
		go v.modals.newDisplayModal(
			"connection-failed", "Connection Failed",
			notice.Message+"\n\n"+tview.Escape(notice.Err.Error()),
		).display(context.Background())
	}
}

// viewName represents the name of a particular view.
type viewName string

// String returns the string representation of the view's name.
func (v viewName) String() string {
	return string(v)
}

// getSelectionXY gets the coordinates of the current table selection.
func getSelectionXY(table *tview.Table) (x int, y int) {
	row, _ := table.GetSelection()

	cell := table.GetCell(row, 0)
	x, y, _ = cell.GetLastPosition()

	return x, y
}

// ignoreDefaultEvent ignores the default keyevents in the provided event.
func ignoreDefaultEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlF, tcell.KeyCtrlB:
		return nil
	}

	switch event.Rune() {
	case 'g', 'G', 'j', 'k', 'h', 'l':
		return nil
	}

	return event
}

// horizontalLine returns a box with a thick horizontal line.
func horizontalLine() *tview.Box {
	return tview.NewBox().
		SetBackgroundColor(tcell.ColorDefault).
		SetDrawFunc(func(
			screen tcell.Screen,
			x, y, width, height int) (int, int, int, int) {
			centerY := y + height/2
			for cx := x; cx < x+width; cx++ {
				screen.SetContent(
					cx,
					centerY,
					tview.BoxDrawingsLightHorizontal,
					nil,
					tcell.StyleDefault.Foreground(tcell.ColorWhite),
				)
			}

			return x + 1,
				centerY + 1,
				width - 2,
				height - (centerY + 1 - y)
		})
}
