// Package fake provides a scripted radio adapter, for tests and for
// running the application without radio hardware.
package fake

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"

	"github.com/darkhz/blescan/radio"
)

// Adapter implements radio.Adapter with scripted behaviour.
type Adapter struct {
	denied    atomic.Bool
	destroyed atomic.Bool

	startScanCalls atomic.Int32
	stopScanCalls  atomic.Int32
	destroyCalls   atomic.Int32
	connectCalls   atomic.Int32

	connects *xsync.MapOf[string, *connectScript]

	playlist []radio.Advertisement
	interval time.Duration

	startErr     error
	destroyErr   error
	destroyPanic any

	scanning bool
	handler  radio.EventHandler
	options  radio.ScanOptions
	stopPlay chan struct{}
	lock     sync.Mutex
}

// connectScript holds the scripted outcome of a connection attempt.
type connectScript struct {
	err   error
	delay time.Duration
	gate  chan struct{}
}

// Connection is a fake connection.
type Connection struct {
	id           string
	disconnected atomic.Bool
}

// NewAdapter returns a new fake adapter. By default, every connection attempt succeeds.
func NewAdapter() *Adapter {
	return &Adapter{
		connects: xsync.NewMapOf[string, *connectScript](),
	}
}

// DenyPermission makes Enable and StartScan fail with radio.ErrPermissionDenied.
func (a *Adapter) DenyPermission() *Adapter {
	a.denied.Store(true)

	return a
}

// FailStartScan makes StartScan return the provided error.
func (a *Adapter) FailStartScan(err error) *Adapter {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.startErr = err

	return a
}

// FailDestroy makes Destroy return the provided error.
func (a *Adapter) FailDestroy(err error) *Adapter {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.destroyErr = err

	return a
}

// PanicOnDestroy makes Destroy panic with the provided value, after the scan is stopped.
func (a *Adapter) PanicOnDestroy(value any) *Adapter {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.destroyPanic = value

	return a
}

// Play sets a list of advertisements which will be emitted repeatedly, one per interval,
// for as long as a scan is running.
func (a *Adapter) Play(interval time.Duration, advertisements ...radio.Advertisement) *Adapter {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.playlist = advertisements
	a.interval = interval

	return a
}

// SetConnectResult scripts the result of connecting to the device with the provided id.
func (a *Adapter) SetConnectResult(id string, err error, delay time.Duration) {
	a.connects.Store(id, &connectScript{err: err, delay: delay})
}

// HoldConnect makes connection attempts to the device with the provided id
// block until the returned function is called.
func (a *Adapter) HoldConnect(id string, err error) (release func()) {
	gate := make(chan struct{})
	a.connects.Store(id, &connectScript{err: err, gate: gate})

	var once sync.Once

	return func() {
		once.Do(func() { close(gate) })
	}
}

// Enable enables the adapter.
func (a *Adapter) Enable() error {
	if a.destroyed.Load() {
		return radio.ErrDestroyed
	}
	if a.denied.Load() {
		return radio.ErrPermissionDenied
	}

	return nil
}

// StartScan starts a scan.
func (a *Adapter) StartScan(opts radio.ScanOptions, handler radio.EventHandler) error {
	a.startScanCalls.Inc()

	if a.destroyed.Load() {
		return radio.ErrDestroyed
	}
	if a.denied.Load() {
		return radio.ErrPermissionDenied
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	if a.startErr != nil {
		return a.startErr
	}
	if a.scanning {
		return radio.ErrAlreadyScanning
	}

	a.scanning = true
	a.handler = handler
	a.options = opts

	if playlist := filterPlaylist(a.playlist, opts.ServiceFilter); len(playlist) > 0 {
		a.stopPlay = make(chan struct{})
		go a.play(handler, playlist, a.interval, a.stopPlay)
	}

	return nil
}

// filterPlaylist returns the advertisements which carry at least one of the
// services in the filter. The matched services replace the advertised ones.
func filterPlaylist(playlist []radio.Advertisement, filter []string) []radio.Advertisement {
	if len(filter) == 0 {
		return playlist
	}

	var filtered []radio.Advertisement
	for _, adv := range playlist {
		var services []string
		for _, service := range adv.ServiceUUIDs {
			if slices.ContainsFunc(filter, func(f string) bool { return strings.EqualFold(f, service) }) {
				services = append(services, service)
			}
		}

		if len(services) > 0 {
			adv.ServiceUUIDs = services
			filtered = append(filtered, adv)
		}
	}

	return filtered
}

// play emits the playlist until stopped.
func (a *Adapter) play(handler radio.EventHandler, playlist []radio.Advertisement, interval time.Duration, stop chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for i := 0; ; i++ {
		select {
		case <-stop:
			return

		case <-t.C:
			adv := playlist[i%len(playlist)]
			handler(radio.Event{Device: &adv})
		}
	}
}

// StopScan stops a running scan.
func (a *Adapter) StopScan() error {
	a.stopScanCalls.Inc()

	a.lock.Lock()
	defer a.lock.Unlock()

	a.scanning = false
	a.handler = nil
	if a.stopPlay != nil {
		close(a.stopPlay)
		a.stopPlay = nil
	}

	return nil
}

// Connect connects to a device, based on the scripted outcome for its id.
func (a *Adapter) Connect(ctx context.Context, id string) (radio.Connection, error) {
	a.connectCalls.Inc()

	if a.destroyed.Load() {
		return nil, radio.ErrDestroyed
	}

	script, ok := a.connects.Load(id)
	if !ok {
		return &Connection{id: id}, nil
	}

	if script.gate != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-script.gate:
		}
	}

	if script.delay > 0 {
		t := time.NewTimer(script.delay)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-t.C:
		}
	}

	if script.err != nil {
		return nil, script.err
	}

	return &Connection{id: id}, nil
}

// Destroy releases the adapter.
func (a *Adapter) Destroy() error {
	a.destroyCalls.Inc()

	if !a.destroyed.CompareAndSwap(false, true) {
		return nil
	}

	a.StopScan()

	a.lock.Lock()
	defer a.lock.Unlock()

	if a.destroyPanic != nil {
		panic(a.destroyPanic)
	}

	return a.destroyErr
}

// Emit delivers an advertisement to the running scan, regardless of the service filter.
// It returns false if no scan is running.
func (a *Adapter) Emit(id, name string) bool {
	return a.emit(radio.Event{Device: &radio.Advertisement{ID: id, Name: name}})
}

// FailScan reports a scan error to the running scan.
func (a *Adapter) FailScan(err error) bool {
	return a.emit(radio.Event{Err: err})
}

// emit delivers an event to the current handler.
func (a *Adapter) emit(ev radio.Event) bool {
	a.lock.Lock()
	handler := a.handler
	a.lock.Unlock()

	if handler == nil {
		return false
	}

	handler(ev)

	return true
}

// Handler returns the handler registered by the most recent scan,
// even after the scan has stopped. Tests use this to deliver late events.
func (a *Adapter) Handler() radio.EventHandler {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.handler
}

// Scanning reports whether a scan is running.
func (a *Adapter) Scanning() bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.scanning
}

// Options returns the options of the most recent scan.
func (a *Adapter) Options() radio.ScanOptions {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.options
}

// StartScanCalls returns the number of StartScan calls.
func (a *Adapter) StartScanCalls() int {
	return int(a.startScanCalls.Load())
}

// StopScanCalls returns the number of StopScan calls.
func (a *Adapter) StopScanCalls() int {
	return int(a.stopScanCalls.Load())
}

// DestroyCalls returns the number of Destroy calls.
func (a *Adapter) DestroyCalls() int {
	return int(a.destroyCalls.Load())
}

// ConnectCalls returns the number of Connect calls.
func (a *Adapter) ConnectCalls() int {
	return int(a.connectCalls.Load())
}

// Destroyed reports whether the adapter was destroyed.
func (a *Adapter) Destroyed() bool {
	return a.destroyed.Load()
}

// DeviceID returns the identifier of the connected device.
func (c *Connection) DeviceID() string {
	return c.id
}

// Disconnect disconnects the fake connection.
func (c *Connection) Disconnect() error {
	c.disconnected.Store(true)

	return nil
}

// Disconnected reports whether Disconnect was called.
func (c *Connection) Disconnected() bool {
	return c.disconnected.Load()
}
