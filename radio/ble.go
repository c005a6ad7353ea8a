package radio

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"tinygo.org/x/bluetooth"
)

// BLEAdapter is an Adapter backed by the system's default Bluetooth LE adapter.
type BLEAdapter struct {
	adapter *bluetooth.Adapter
	log     logrus.FieldLogger

	// addresses maps a device identifier to the address it was last seen with.
	// Connections can only be made to devices that were observed in a scan.
	addresses   *xsync.MapOf[string, bluetooth.Address]
	connections *xsync.MapOf[string, *bleConnection]

	enabled   atomic.Bool
	destroyed atomic.Bool

	scanning bool
	scanDone chan struct{}
	lock     sync.Mutex
}

// bleConnection holds a connection to a BLE device.
type bleConnection struct {
	id         string
	disconnect func() error
	once       sync.Once
	onClose    func()
}

// NewBLEAdapter returns a new BLE adapter.
func NewBLEAdapter(log logrus.FieldLogger) *BLEAdapter {
	return &BLEAdapter{
		adapter:     bluetooth.DefaultAdapter,
		log:         log.WithField("component", "radio"),
		addresses:   xsync.NewMapOf[string, bluetooth.Address](),
		connections: xsync.NewMapOf[string, *bleConnection](),
	}
}

// Enable enables the default adapter.
func (b *BLEAdapter) Enable() error {
	if b.destroyed.Load() {
		return wrapError(ErrDestroyed, "adapter-enable", "The radio adapter was released")
	}
	if b.enabled.Load() {
		return nil
	}

	if err := b.adapter.Enable(); err != nil {
		return wrapError(fmt.Errorf("%w: %w", ErrPermissionDenied, err),
			"adapter-enable", "The Bluetooth adapter could not be enabled",
		)
	}

	b.enabled.Store(true)

	return nil
}

// StartScan starts a scan on a separate goroutine. The handler is called for every
// scan result matching the service filter, and once with an error if the scan fails.
func (b *BLEAdapter) StartScan(opts ScanOptions, handler EventHandler) error {
	if b.destroyed.Load() {
		return wrapError(ErrDestroyed, "adapter-start-scan", "The radio adapter was released")
	}
	if !b.enabled.Load() {
		if err := b.Enable(); err != nil {
			return err
		}
	}

	filter, err := parseServiceFilter(opts.ServiceFilter)
	if err != nil {
		return err
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if b.scanning {
		return wrapError(ErrAlreadyScanning, "adapter-start-scan", "A scan is already running")
	}

	b.scanning = true
	b.scanDone = make(chan struct{})

	go b.scan(filter, handler, b.scanDone)

	return nil
}

// scan runs a blocking scan until StopScan is called.
func (b *BLEAdapter) scan(filter []bluetooth.UUID, handler EventHandler, done chan struct{}) {
	defer close(done)

	err := b.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		services, ok := matchServices(result.HasServiceUUID, filter)
		if !ok {
			return
		}

		id := result.Address.String()
		b.addresses.Store(id, result.Address)

		handler(Event{
			Device: &Advertisement{
				ID:           id,
				Name:         result.LocalName(),
				RSSI:         result.RSSI,
				ServiceUUIDs: services,
			},
		})
	})

	b.lock.Lock()
	b.scanning = false
	b.lock.Unlock()

	if err != nil {
		handler(Event{
			Err: wrapError(err, "adapter-scan", "An error occurred while scanning for devices"),
		})
	}
}

// StopScan stops the current scan, and waits for the scan goroutine to exit.
func (b *BLEAdapter) StopScan() error {
	b.lock.Lock()
	scanning, done := b.scanning, b.scanDone
	b.lock.Unlock()

	if !scanning {
		return nil
	}

	if err := b.adapter.StopScan(); err != nil {
		return wrapError(err, "adapter-stop-scan", "An error occurred while stopping the scan")
	}

	<-done

	return nil
}

// Connect connects to a device that was observed in a previous scan.
// The underlying connect call cannot be cancelled, so if the context is done
// before the connection is established, the late connection is closed.
func (b *BLEAdapter) Connect(ctx context.Context, id string) (Connection, error) {
	if b.destroyed.Load() {
		return nil, wrapError(ErrDestroyed, "adapter-connect", "The radio adapter was released", "device", id)
	}

	address, ok := b.addresses.Load(id)
	if !ok {
		return nil, wrapError(ErrDeviceNotFound, "adapter-connect",
			"The device was not seen by this adapter", "device", id,
		)
	}

	type result struct {
		conn *bleConnection
		err  error
	}

	reply := make(chan result, 1)
	go func() {
		device, err := b.adapter.Connect(address, bluetooth.ConnectionParams{})
		if err != nil {
			reply <- result{err: err}
			return
		}

		reply <- result{conn: &bleConnection{id: id, disconnect: device.Disconnect}}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-reply; r.conn != nil {
				r.conn.Disconnect()
			}
		}()

		return nil, wrapError(ctx.Err(), "adapter-connect", "The connection attempt timed out", "device", id)

	case r := <-reply:
		if r.err != nil {
			return nil, wrapError(r.err, "adapter-connect", "Could not connect to the device", "device", id)
		}

		r.conn.onClose = func() { b.connections.Delete(id) }
		if previous, loaded := b.connections.LoadAndStore(id, r.conn); loaded {
			previous.disconnectOnly()
		}

		return r.conn, nil
	}
}

// Destroy stops scanning, closes all connections and releases the adapter.
func (b *BLEAdapter) Destroy() error {
	if !b.destroyed.CompareAndSwap(false, true) {
		return nil
	}

	var stopErr error
	if err := b.StopScan(); err != nil {
		stopErr = err
		b.log.WithError(err).Warn("cannot stop scan during teardown")
	}

	b.connections.Range(func(id string, conn *bleConnection) bool {
		if err := conn.disconnectOnly(); err != nil {
			b.log.WithError(err).WithField("device", id).Warn("cannot disconnect during teardown")
		}
		b.connections.Delete(id)

		return true
	})

	return stopErr
}

// DeviceID returns the identifier of the connected device.
func (c *bleConnection) DeviceID() string {
	return c.id
}

// Disconnect closes the connection.
func (c *bleConnection) Disconnect() error {
	err := c.disconnectOnly()
	if c.onClose != nil {
		c.onClose()
	}

	return err
}

// disconnectOnly closes the connection without modifying the adapter's connection table.
func (c *bleConnection) disconnectOnly() error {
	var err error

	c.once.Do(func() {
		err = c.disconnect()
	})

	return err
}

// parseServiceFilter parses the service filter into a list of UUIDs.
func parseServiceFilter(filter []string) ([]bluetooth.UUID, error) {
	uuids := make([]bluetooth.UUID, 0, len(filter))

	for _, f := range filter {
		uuid, err := bluetooth.ParseUUID(f)
		if err != nil {
			return nil, wrapError(fmt.Errorf("%w: %q: %w", ErrInvalidServiceFilter, f, err),
				"adapter-parse-filter", "The service filter is invalid",
			)
		}

		uuids = append(uuids, uuid)
	}

	return uuids, nil
}

// matchServices checks whether a scan result advertises any of the services in the filter,
// and returns the matching services. An empty filter matches every result.
func matchServices(advertises func(bluetooth.UUID) bool, filter []bluetooth.UUID) ([]string, bool) {
	if len(filter) == 0 {
		return nil, true
	}

	var services []string
	for _, uuid := range filter {
		if advertises(uuid) {
			services = append(services, uuid.String())
		}
	}

	return services, len(services) > 0
}
