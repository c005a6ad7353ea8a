package discovery

import (
	"cmp"
	"slices"
)

// unnamedLabel is displayed in place of a missing device name.
const unnamedLabel = "Unnamed Device"

// DeviceRecord represents one observed peripheral.
type DeviceRecord struct {
	ID             string
	DisplayName    string
	FirstSeenOrder uint64
}

// Named returns whether the device has advertised a name.
func (d DeviceRecord) Named() bool {
	return d.DisplayName != ""
}

// Label returns the name to display for the device.
func (d DeviceRecord) Label() string {
	if d.DisplayName == "" {
		return unnamedLabel
	}

	return d.DisplayName
}

// Registry is the deduplicated, ordered set of devices observed in a scan session.
// It is not safe for concurrent use.
type Registry struct {
	records map[string]*DeviceRecord
	ordered []DeviceRecord
	counter uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*DeviceRecord),
	}
}

// Observe records an advertisement for the device with the provided id.
// A new device is inserted with the next first-seen order. For a known device,
// the name is only filled in if none was known before, so a learned name never
// changes or disappears.
func (r *Registry) Observe(id, name string) (added, changed bool) {
	record, ok := r.records[id]
	if !ok {
		r.records[id] = &DeviceRecord{
			ID:             id,
			DisplayName:    name,
			FirstSeenOrder: r.counter,
		}
		r.counter++
		r.reorder()

		return true, true
	}

	if name == "" || record.DisplayName != "" {
		return false, false
	}

	record.DisplayName = name
	r.reorder()

	return false, true
}

// Lookup returns the record for the provided id.
func (r *Registry) Lookup(id string) (DeviceRecord, bool) {
	record, ok := r.records[id]
	if !ok {
		return DeviceRecord{}, false
	}

	return *record, true
}

// Devices returns a copy of the records in their visible order.
func (r *Registry) Devices() []DeviceRecord {
	return slices.Clone(r.ordered)
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.records)
}

// Reset removes all records and restarts the first-seen counter.
func (r *Registry) Reset() {
	clear(r.records)
	r.ordered = nil
	r.counter = 0
}

// reorder recomputes the visible order: named devices first, and
// within each group, the devices that were observed first.
func (r *Registry) reorder() {
	ordered := make([]DeviceRecord, 0, len(r.records))
	for _, record := range r.records {
		ordered = append(ordered, *record)
	}

	slices.SortFunc(ordered, compareRecords)
	r.ordered = ordered
}

// compareRecords orders named records before unnamed ones, then by first-seen order.
func compareRecords(a, b DeviceRecord) int {
	if a.Named() != b.Named() {
		if a.Named() {
			return -1
		}

		return 1
	}

	return cmp.Compare(a.FirstSeenOrder, b.FirstSeenOrder)
}
