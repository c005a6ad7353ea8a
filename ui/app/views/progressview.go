package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/darkhz/tview"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/atomic"

	"github.com/darkhz/blescan/discovery"
	"github.com/darkhz/blescan/ui/theme"
)

// countdownInterval is the refresh interval of the scan countdown.
const countdownInterval = 250 * time.Millisecond

// progressView describes the scan countdown display.
type progressView struct {
	view *tview.Table

	session atomic.String

	*Views
}

// progressIndicator describes a progress indicator, which will display
// a description and a progress bar.
type progressIndicator struct {
	desc        *tview.TableCell
	progress    *tview.TableCell
	progressBar *progressbar.ProgressBar

	appDrawFunc func(func())
}

// Initialize initializes the progress view.
func (p *progressView) Initialize() error {
	p.view = tview.NewTable()
	p.view.SetSelectable(false, false)
	p.view.SetBackgroundColor(theme.GetColor(theme.ThemeBackground))

	return nil
}

// SetRootView sets the root view for the progress view.
func (p *progressView) SetRootView(v *Views) {
	p.Views = v
}

// track starts a countdown for the snapshot's scan session, if one
// is not already running for it.
func (p *progressView) track(snapshot discovery.Snapshot) {
	if snapshot.ScanState != discovery.ScanScanning {
		return
	}

	token := snapshot.Session.String()
	if p.session.Swap(token) == token {
		return
	}

	go p.countdown(snapshot.Session, snapshot.StartedAt, snapshot.Deadline)
}

// newIndicator returns a new progress indicator for a scan of the provided duration.
func (p *progressView) newIndicator(total time.Duration) *progressIndicator {
	var progress progressIndicator

	progress.appDrawFunc = p.app.QueueDraw

	progress.desc = tview.NewTableCell("").
		SetExpansion(1).
		SetSelectable(false).
		SetAlign(tview.AlignLeft).
		SetTextColor(theme.GetColor(theme.ThemeText))

	progress.progress = tview.NewTableCell("").
		SetExpansion(1).
		SetSelectable(false).
		SetReference(&progress).
		SetAlign(tview.AlignRight).
		SetTextColor(theme.GetColor(theme.ThemeProgressBar))

	progress.progressBar = progressbar.NewOptions64(
		total.Milliseconds(),
		progressbar.OptionSetWriter(&progress),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(200*time.Millisecond),
	)

	p.app.QueueDraw(func() {
		p.view.SetCell(0, 0, progress.desc)
		p.view.SetCell(0, 1, progress.progress)
	})

	return &progress
}

// countdown displays the remaining time of a scan session, until the
// session times out or is replaced by another one.
func (p *progressView) countdown(session uuid.UUID, startedAt, deadline time.Time) {
	progress := p.newIndicator(deadline.Sub(startedAt))
	defer p.app.QueueDraw(func() {
		if p.session.Load() == session.String() {
			p.view.Clear()
		}
	})

	t := time.NewTicker(countdownInterval)
	defer t.Stop()

	for {
		snapshot := p.app.Discovery().Snapshot()
		if snapshot.Session != session || snapshot.ScanState != discovery.ScanScanning {
			return
		}

		now := time.Now()
		desc := countdownText(deadline.Sub(now))

		p.app.QueueDraw(func() {
			progress.desc.SetText(desc)
		})
		progress.progressBar.Set64(min(now.Sub(startedAt), deadline.Sub(startedAt)).Milliseconds())

		<-t.C

		if p.session.Load() != session.String() {
			return
		}
	}
}

// countdownText returns the description of the remaining scan time.
func countdownText(remaining time.Duration) string {
	remaining = max(remaining, 0).Round(time.Second)

	return fmt.Sprintf(" [::b]Scanning[-:-:-] (%s left)", remaining)
}

// Write is used by the progressbar to display the progress on the screen.
func (p *progressIndicator) Write(b []byte) (int, error) {
	text := tview.Escape(strings.Trim(string(b), "\r"))

	p.appDrawFunc(func() {
		p.progress.SetText(text)
	})

	return len(b), nil
}
