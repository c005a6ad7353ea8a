package discovery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/darkhz/blescan/radio"
)

// The default timing values.
const (
	DefaultScanTimeout    = 20 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// Options describes the options for the discovery service.
type Options struct {
	// ScanTimeout is the duration of a scan session.
	ScanTimeout time.Duration

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration

	// ServiceFilter restricts scans to devices advertising one of these service UUIDs.
	ServiceFilter []string

	// AutoConnectID is the id of a device to connect to automatically,
	// the first time it is observed in a scan.
	AutoConnectID string
}

// Service binds the discovery session manager and the connection controller to
// a single radio adapter, and exposes them to the presentation layer.
type Service struct {
	adapter    radio.Adapter
	loop       *loop
	bus        *bus
	manager    *Manager
	controller *Controller
	log        logrus.FieldLogger

	autoConnectID string

	// The fields below are only accessed on the loop goroutine.
	autoConnected bool
	autoPending   bool
	permission    bool

	closed atomic.Bool
}

// NewService returns a new discovery service, which owns the provided adapter.
// The adapter is destroyed when the service is closed.
func NewService(adapter radio.Adapter, opts Options, log logrus.FieldLogger) *Service {
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = DefaultScanTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}

	log = log.WithField("component", "discovery")

	s := &Service{
		adapter:       adapter,
		loop:          newLoop(),
		bus:           newBus(),
		log:           log,
		autoConnectID: opts.AutoConnectID,
	}

	s.manager = newManager(adapter, s.loop, opts, log)
	s.manager.changed = s.publish
	s.manager.notify = s.bus.publishNotice
	s.manager.discovered = s.discovered

	s.controller = newController(adapter, s.loop, opts, log)
	s.controller.changed = s.publish
	s.controller.notify = s.bus.publishNotice
	s.controller.lookup = s.lookup

	return s
}

// Enable probes the radio capability once, and returns whether it was granted.
// A denied capability does not disable scanning: a scan will fail through the
// adapter's own error path.
func (s *Service) Enable() bool {
	err := s.adapter.Enable()
	if err != nil {
		s.log.WithError(err).Warn("radio permission not granted")
	}

	s.loop.call(func() {
		s.permission = err == nil
		s.publish()
	})

	return err == nil
}

// StartScan starts a new scan session, discarding the devices of the previous one.
// It returns once the session has started (or failed to start).
func (s *Service) StartScan() error {
	if !s.loop.call(s.manager.startScan) {
		return ErrClosed
	}

	return nil
}

// StopScan stops the current scan session early.
func (s *Service) StopScan() error {
	if !s.loop.call(s.manager.stopScan) {
		return ErrClosed
	}

	return nil
}

// Connect attempts a connection to the device with the provided id, and returns the outcome.
// Failures are also published as notices.
func (s *Service) Connect(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.controller.connect(ctx, id)
}

// Snapshot returns the latest snapshot.
func (s *Service) Snapshot() Snapshot {
	return s.bus.snapshot()
}

// Subscribe subscribes to snapshots and notices.
func (s *Service) Subscribe() *Subscription {
	return s.bus.subscribe()
}

// Close stops any scan, destroys the adapter and closes all subscriptions.
// Errors from the adapter teardown are logged and returned, but do not prevent the
// rest of the shutdown. Calling Close more than once has no effect.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.loop.call(s.manager.stopScan)
	s.loop.stop()

	err := s.destroyAdapter()
	s.bus.shutdown()

	s.log.Info("discovery service closed")

	return err
}

// destroyAdapter destroys the adapter, recovering from any panic during teardown.
func (s *Service) destroyAdapter() (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("adapter teardown panicked")
			err = teardownError(r)
		}
	}()

	if err = s.adapter.Destroy(); err != nil {
		s.log.WithError(err).Warn("cannot destroy adapter")
	}

	return err
}

// publish publishes a snapshot of the current state.
func (s *Service) publish() {
	var snapshot Snapshot

	s.manager.fill(&snapshot)
	s.controller.fill(&snapshot)
	snapshot.PermissionGranted = s.permission
	snapshot.AutoConnectPending = s.autoPending

	s.bus.publishSnapshot(snapshot)
}

// discovered starts the automatic connection once, when the configured device is first observed.
func (s *Service) discovered(record DeviceRecord) {
	if s.autoConnectID == "" || s.autoConnected || record.ID != s.autoConnectID {
		return
	}

	s.autoConnected = true
	s.autoPending = true
	s.log.WithField("device", record.ID).Info("auto-connecting to device")
	s.publish()

	go func() {
		s.Connect(context.Background(), record.ID)

		s.loop.call(func() {
			s.autoPending = false
			s.publish()
		})
	}()
}

// lookup returns the registry record of a device. Devices which are not in the
// registry (for example, from a superseded scan) only carry their id.
func (s *Service) lookup(id string) DeviceRecord {
	record, ok := s.manager.registry.Lookup(id)
	if !ok {
		return DeviceRecord{ID: id}
	}

	return record
}
