package views

import (
	"slices"
	"strings"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/blescan/ui/keybindings"
	"github.com/darkhz/blescan/ui/theme"
)

// helpView holds the help view.
type helpView struct {
	page string
	area *tview.Flex

	topics []helpTopic

	*Views
}

// helpTopic holds the help items of a screen.
type helpTopic struct {
	screen string
	page   viewName
	items  []HelpData
}

// helpGroup is a set of help items displayed under one title in the status help.
type helpGroup struct {
	title string
	items []HelpData
}

// Initialize initializes the help view.
func (h *helpView) Initialize() error {
	if !h.cfg.Values.NoHelpDisplay {
		h.area = tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(horizontalLine(), 1, 0, false).
			AddItem(h.status.Help, 1, 0, false)
	}

	h.initHelpData()
	h.statusHelpArea(true)

	return nil
}

// SetRootView sets the root view for the help view.
func (h *helpView) SetRootView(v *Views) {
	h.Views = v
}

// statusHelpArea shows or hides the status help text.
func (h *helpView) statusHelpArea(add bool) {
	if h.cfg.Values.NoHelpDisplay {
		return
	}

	if !add && h.area != nil {
		h.layout.RemoveItem(h.area)
		return
	}

	h.layout.AddItem(h.area, 2, 0, false)
}

// showStatusHelp shows a condensed help text for the currently focused screen below the statusbar.
func (h *helpView) showStatusHelp(page string) {
	if h.cfg.Values.NoHelpDisplay || h.page == page {
		return
	}

	h.page = page

	for _, topic := range h.topics {
		if topic.page.String() == page {
			h.status.Help.SetText(statusHelpText(topic.items, h.keyNames))
			return
		}
	}

	h.status.Help.Clear()
}

// showHelp displays a modal with the help items for all the screens.
func (h *helpView) showHelp() {
	var row int

	helpModal := h.modals.newModalWithTable("help", "Help", 40, 60)
	helpModal.table.SetSelectionChangedFunc(func(row, _ int) {
		if row == 1 {
			helpModal.table.ScrollToBeginning()
		}
	})
	helpModal.table.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		if action == tview.MouseScrollUp {
			helpModal.table.InputHandler()(tcell.NewEventKey(tcell.KeyUp, ' ', tcell.ModNone), nil)
		}

		return action, event
	})

	for _, topic := range h.topics {
		helpModal.table.SetCell(row, 0, tview.NewTableCell("[::bu]"+topic.screen).
			SetSelectable(false).
			SetAlign(tview.AlignCenter).
			SetTextColor(theme.GetColor(theme.ThemeText)),
		)
		row++

		for _, item := range topic.items {
			helpModal.table.SetCell(row, 0, helpCell(item.Description, 1))
			helpModal.table.SetCell(row, 1, helpCell(h.keyNames(item.Keys), 0))
			row++
		}

		row++
	}

	helpModal.show()
}

// keyNames returns the configured keybindings for the keys, separated by a "/".
func (h *helpView) keyNames(keys []keybindings.Key) string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, h.kb.Name(h.kb.Data(k).Kb))
	}

	return strings.Join(names, "/")
}

// helpCell returns a selectable cell for the help modal.
func helpCell(text string, expansion int) *tview.TableCell {
	return tview.NewTableCell(theme.ColorWrap(theme.ThemeText, text)).
		SetExpansion(expansion).
		SetAlign(tview.AlignLeft).
		SetTextColor(theme.GetColor(theme.ThemeText)).
		SetSelectedStyle(tcell.Style{}.
			Foreground(theme.GetColor(theme.ThemeText)).
			Background(theme.BackgroundColor(theme.ThemeText)),
		)
}

// statusHelpText builds the status help from the items marked for the status bar.
// Items are grouped in the order the groups first appear.
func statusHelpText(items []HelpData, keyNames func([]keybindings.Key) string) string {
	var groups []helpGroup

	for _, item := range items {
		if !item.ShowInStatus {
			continue
		}

		title := helpGroupTitle(item)

		i := slices.IndexFunc(groups, func(g helpGroup) bool { return g.title == title })
		if i < 0 {
			groups = append(groups, helpGroup{title: title})
			i = len(groups) - 1
		}

		groups[i].items = append(groups[i].items, item)
	}

	entries := make([]string, 0, len(groups))
	for _, group := range groups {
		var names, keys []string

		for _, item := range group.items {
			if item.Title != group.title {
				names = append(names, item.Title)
			}
			keys = append(keys, keyNames(item.Keys))
		}

		title := group.title
		if names != nil {
			title += " " + strings.Join(names, "/")
		}

		entries = append(entries,
			theme.ColorWrap(theme.ThemeText, title, "::bu")+
				theme.ColorWrap(theme.ThemeText, ": "+strings.Join(keys, "/")),
		)
	}

	return strings.Join(entries, theme.ColorWrap(theme.ThemeText, ", "))
}

// helpGroupTitle returns the status help group of an item.
func helpGroupTitle(item HelpData) string {
	for _, key := range item.Keys {
		switch key {
		case keybindings.KeyMenu, keybindings.KeySwitch:
			return "Open"

		case keybindings.KeyScanStart, keybindings.KeyScanStop:
			return "Scan"
		}
	}

	return item.Title
}

// HelpData describes the help item.
type HelpData struct {
	Title, Description string
	Keys               []keybindings.Key
	ShowInStatus       bool
}

// initHelpData initializes the help data for all the specified screens.
func (h *helpView) initHelpData() {
	h.topics = []helpTopic{
		{"Device Screen", devicePage, []HelpData{
			{"Menu", "Open the menu", []keybindings.Key{keybindings.KeyMenu}, true},
			{"Switch", "Navigate between menus", []keybindings.Key{keybindings.KeySwitch}, true},
			{"Navigation", "Navigate between devices/options", []keybindings.Key{keybindings.KeyNavigateUp, keybindings.KeyNavigateDown}, true},
			{"Start", "Start a new scan", []keybindings.Key{keybindings.KeyScanStart}, true},
			{"Stop", "Stop the current scan", []keybindings.Key{keybindings.KeyScanStop}, true},
			{"Connect", "Connect to the selected device", []keybindings.Key{keybindings.KeyDeviceConnect}, true},
			{"Device Info", "Show device information", []keybindings.Key{keybindings.KeyDeviceInfo}, false},
			{"Cancel", "Cancel the connection attempt", []keybindings.Key{keybindings.KeyCancel}, false},
			{"Suspend", "Suspend the application", []keybindings.Key{keybindings.KeySuspend}, false},
			{"Help", "Show help", []keybindings.Key{keybindings.KeyHelp}, true},
			{"Quit", "Quit", []keybindings.Key{keybindings.KeyQuit}, false},
		}},
	}
}
