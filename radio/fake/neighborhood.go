package fake

import (
	"errors"
	"time"

	"github.com/darkhz/blescan/radio"
)

// The services advertised by the simulated peripherals.
const (
	serviceHeartRate     = "0000180d-0000-1000-8000-00805f9b34fb"
	serviceBattery       = "0000180f-0000-1000-8000-00805f9b34fb"
	serviceHID           = "00001812-0000-1000-8000-00805f9b34fb"
	serviceEnvironmental = "0000181a-0000-1000-8000-00805f9b34fb"
)

// Neighborhood returns a fake adapter which simulates a handful of nearby peripherals.
// Some devices only reveal their name after a few advertisements, and one device
// always refuses connections.
func Neighborhood() *Adapter {
	a := NewAdapter().Play(400*time.Millisecond,
		radio.Advertisement{ID: "C4:7C:8D:6A:1E:02", RSSI: -71, ServiceUUIDs: []string{serviceEnvironmental}},
		radio.Advertisement{ID: "E8:9F:6D:11:20:41", Name: "Heart Rate Strap", RSSI: -58, ServiceUUIDs: []string{serviceHeartRate, serviceBattery}},
		radio.Advertisement{ID: "D0:03:DF:52:7A:90", RSSI: -88},
		radio.Advertisement{ID: "C4:7C:8D:6A:1E:02", Name: "Plant Sensor", RSSI: -70, ServiceUUIDs: []string{serviceEnvironmental, serviceBattery}},
		radio.Advertisement{ID: "F1:22:9B:04:C3:7E", Name: "Keyboard K380", RSSI: -45, ServiceUUIDs: []string{serviceHID, serviceBattery}},
		radio.Advertisement{ID: "E8:9F:6D:11:20:41", RSSI: -60, ServiceUUIDs: []string{serviceHeartRate}},
		radio.Advertisement{ID: "5A:18:0B:E2:44:D9", RSSI: -92},
	)

	a.SetConnectResult("C4:7C:8D:6A:1E:02", nil, 800*time.Millisecond)
	a.SetConnectResult("E8:9F:6D:11:20:41", nil, 1200*time.Millisecond)
	a.SetConnectResult("D0:03:DF:52:7A:90", errors.New("device out of range"), 2*time.Second)
	a.SetConnectResult("5A:18:0B:E2:44:D9", errors.New("connection rejected by peer"), 500*time.Millisecond)

	return a
}
