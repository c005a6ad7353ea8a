package views

import (
	"context"
	"errors"
	"time"

	"github.com/darkhz/tview"
	"github.com/gdamore/tcell/v2"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/ui/keybindings"
	"github.com/darkhz/blescan/ui/theme"
)

const (
	statusInputPage    viewName = "input"
	statusMessagesPage viewName = "messages"
)

// statusBarView holds the status bar, which displays messages
// and reads user input.
type statusBarView struct {
	// MessageBox is an area to display messages.
	MessageBox *tview.TextView

	// Help is an area to display help keybindings.
	Help *tview.TextView

	// InputField is an area to interact with messages.
	InputField *tview.InputField

	sctx    context.Context
	scancel context.CancelFunc
	msgchan chan message

	*Views

	*tview.Pages
}

// message describes a status bar message. A persistent message
// stays displayed once the messages after it are cleared.
type message struct {
	text    string
	persist bool
}

// Initialize initializes the status bar.
func (s *statusBarView) Initialize() error {
	s.Pages = tview.NewPages()
	s.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	s.InputField = tview.NewInputField()
	s.InputField.SetLabelColor(theme.GetColor(theme.ThemeText))
	s.InputField.SetFieldTextColor(theme.GetColor(theme.ThemeText))
	s.InputField.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))
	s.InputField.SetFieldBackgroundColor(theme.GetColor(theme.ThemeBackground))

	s.MessageBox = tview.NewTextView()
	s.MessageBox.SetDynamicColors(true)
	s.MessageBox.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	s.Help = tview.NewTextView()
	s.Help.SetDynamicColors(true)
	s.Help.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	s.AddPage(statusInputPage.String(), s.InputField, true, true)
	s.AddPage(statusMessagesPage.String(), s.MessageBox, true, true)
	s.SwitchToPage(statusMessagesPage.String())

	s.msgchan = make(chan message, 10)
	s.sctx, s.scancel = context.WithCancel(context.Background())

	go s.startStatus()

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(s.Pages, 1, 0, false)

	s.layout.AddItem(flex, flex.GetItemCount(), 0, false)

	return nil
}

// SetRootView sets the root view for the status bar.
func (s *statusBarView) SetRootView(root *Views) {
	s.Views = root
}

// Release stops the message event loop.
func (s *statusBarView) Release() {
	s.scancel()
}

// SetInput sets the inputfield label and returns the single character
// that was typed in response.
func (s *statusBarView) SetInput(label string) string {
	input := make(chan string, 1)

	s.app.InstantDraw(func() {
		s.InputField.SetText("")
		s.InputField.SetLabel("[::b]" + label + " ")
		s.InputField.SetAcceptanceFunc(tview.InputFieldMaxLength(1))
		s.InputField.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			reply := string(event.Rune())
			if s.kb.Key(event) == keybindings.KeyClose {
				reply = ""
			}

			s.SwitchToPage(statusMessagesPage.String())

			_, item := s.pages.GetFrontPage()
			s.app.FocusPrimitive(item)

			select {
			case input <- reply:
			default:
			}

			return nil
		})

		s.SwitchToPage(statusInputPage.String())
		s.app.FocusPrimitive(s.InputField)
	})

	return <-input
}

// InfoMessage sends an info message to the status bar.
func (s *statusBarView) InfoMessage(text string, persist bool) {
	s.sendMessage(message{theme.ColorWrap(theme.ThemeStatusInfo, tview.Escape(text)), persist})
}

// WarningMessage sends a warning message to the status bar.
func (s *statusBarView) WarningMessage(text string) {
	s.sendMessage(message{theme.ColorWrap(theme.ThemeStatusWarning, "Warning: "+tview.Escape(text)), false})
}

// ErrorMessage sends an error message to the status bar.
func (s *statusBarView) ErrorMessage(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	s.sendMessage(message{theme.ColorWrap(theme.ThemeStatusError, "Error: "+tview.Escape(discovery.Issue(err))), false})
}

// sendMessage queues a message for display, dropping it if the queue is full.
func (s *statusBarView) sendMessage(msg message) {
	if s.msgchan == nil {
		return
	}

	select {
	case s.msgchan <- msg:
	default:
	}
}

// startStatus starts the message event loop
func (s *statusBarView) startStatus() {
	var text string
	var cleared bool

	t := time.NewTicker(2 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-s.sctx.Done():
			return

		case msg, ok := <-s.msgchan:
			if !ok {
				return
			}

			t.Reset(2 * time.Second)

			cleared = false

			if msg.persist {
				text = msg.text
			}

			if !msg.persist && text != "" {
				text = ""
			}

			s.app.InstantDraw(func() {
				s.MessageBox.SetText(msg.text)
			})

		case <-t.C:
			if cleared {
				continue
			}

			cleared = true

			s.app.InstantDraw(func() {
				s.MessageBox.SetText(text)
			})
		}
	}
}
