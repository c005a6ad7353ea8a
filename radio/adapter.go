package radio

import "context"

// Advertisement describes a single advertisement observed during a scan.
type Advertisement struct {
	// ID is the opaque, stable identifier of the peripheral. This is usually the
	// radio address, or a platform assigned handle.
	ID string

	// Name is the advertised local name. It is empty for many devices.
	Name string

	RSSI int16

	// ServiceUUIDs lists the advertised services that matched the scan's
	// service filter, in the 128-bit string form. It is empty for unfiltered scans.
	ServiceUUIDs []string
}

// Event is delivered to an EventHandler for every advertisement or scan failure.
// Exactly one of Device or Err is set.
type Event struct {
	Device *Advertisement
	Err    error
}

// EventHandler describes a function that receives scan events.
// It may be called from any goroutine.
type EventHandler func(Event)

// ScanOptions holds the options for a scan.
type ScanOptions struct {
	// ServiceFilter restricts the scan to devices advertising at least
	// one of the listed service UUIDs. An empty filter matches every device.
	ServiceFilter []string
}

// Connection represents an established connection to a peripheral.
type Connection interface {
	DeviceID() string
	Disconnect() error
}

// Adapter describes the platform's access point to the wireless radio.
type Adapter interface {
	// Enable prepares the radio for use. An error here means the radio
	// capability (or the permission to use it) is not available.
	Enable() error

	// StartScan starts a scan, and delivers advertisements and scan errors
	// to the handler until StopScan is called.
	StartScan(opts ScanOptions, handler EventHandler) error

	// StopScan stops a running scan. Stopping an idle adapter is not an error.
	StopScan() error

	// Connect establishes a connection to the device with the provided identifier.
	Connect(ctx context.Context, id string) (Connection, error)

	// Destroy releases the radio. The adapter cannot be used afterwards.
	Destroy() error
}
