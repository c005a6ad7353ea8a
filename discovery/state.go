package discovery

import (
	"time"

	"github.com/google/uuid"
)

// ScanState describes the state of the scan session.
type ScanState int

// The different scan states.
const (
	ScanIdle ScanState = iota
	ScanScanning
	ScanCompleted
)

// String returns the string representation of the scan state.
func (s ScanState) String() string {
	switch s {
	case ScanScanning:
		return "scanning"

	case ScanCompleted:
		return "completed"
	}

	return "idle"
}

// ConnectionState describes the tracked connection.
// The zero value is the disconnected state.
type ConnectionState struct {
	DeviceID string
}

// Disconnected returns the disconnected connection state.
func Disconnected() ConnectionState {
	return ConnectionState{}
}

// Connected returns a connection state connected to the provided device.
func Connected(deviceID string) ConnectionState {
	return ConnectionState{DeviceID: deviceID}
}

// IsConnected returns whether a device is connected.
func (c ConnectionState) IsConnected() bool {
	return c.DeviceID != ""
}

// String returns the string representation of the connection state.
func (c ConnectionState) String() string {
	if !c.IsConnected() {
		return "disconnected"
	}

	return "connected(" + c.DeviceID + ")"
}

// Snapshot is a read-only view of the core state, for the presentation layer.
type Snapshot struct {
	Devices    []DeviceRecord
	ScanState  ScanState
	Connection ConnectionState

	// ConnectedDevice is the record of the connected device, as it was
	// known when the connection attempt started.
	ConnectedDevice DeviceRecord

	// Connecting holds the id of the device of an unresolved connection attempt.
	Connecting string

	// AutoConnectPending is set from the moment the automatic connection is
	// triggered until its attempt has resolved.
	AutoConnectPending bool

	// Session is the validity token of the current scan session.
	Session uuid.UUID

	// StartedAt and Deadline describe the timing of the current scan session.
	StartedAt time.Time
	Deadline  time.Time

	PermissionGranted bool
}

// NoDevices returns whether a scan has completed without finding any devices.
func (s Snapshot) NoDevices() bool {
	return s.ScanState == ScanCompleted && len(s.Devices) == 0
}

// Settled returns whether the scan has completed, and no connection attempt is pending.
func (s Snapshot) Settled() bool {
	return s.ScanState == ScanCompleted && s.Connecting == "" && !s.AutoConnectPending
}

// Device returns the record for the provided id, if it is in the snapshot.
func (s Snapshot) Device(id string) (DeviceRecord, bool) {
	for _, device := range s.Devices {
		if device.ID == id {
			return device, true
		}
	}

	return DeviceRecord{}, false
}
