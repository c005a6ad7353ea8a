package discovery

import (
	"math/rand"
	"strconv"
	"testing"
)

func ids(devices []DeviceRecord) []string {
	list := make([]string, 0, len(devices))
	for _, d := range devices {
		list = append(list, d.ID)
	}

	return list
}

func equalIDs(t *testing.T, got []DeviceRecord, want ...string) {
	t.Helper()

	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("Expected devices %v, got %v", want, gotIDs)
	}

	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("Expected devices %v, got %v", want, gotIDs)
		}
	}
}

func TestRegistry_Dedup(t *testing.T) {
	r := NewRegistry()

	r.Observe("A", "Foo")
	r.Observe("B", "")
	added, changed := r.Observe("A", "Foo")

	if added || changed {
		t.Errorf("Expected duplicate observation to be a no-op, got added=%v changed=%v", added, changed)
	}
	if r.Len() != 2 {
		t.Fatalf("Expected 2 records, got %d", r.Len())
	}

	devices := r.Devices()
	equalIDs(t, devices, "A", "B")
	if devices[0].DisplayName != "Foo" || devices[1].DisplayName != "" {
		t.Errorf("Unexpected names: %+v", devices)
	}
}

func TestRegistry_NamedDeviceMovesAhead(t *testing.T) {
	r := NewRegistry()

	r.Observe("B", "")
	r.Observe("A", "Foo")
	equalIDs(t, r.Devices(), "A", "B")

	added, changed := r.Observe("B", "Bar")
	if added || !changed {
		t.Fatalf("Expected B to be updated, got added=%v changed=%v", added, changed)
	}

	devices := r.Devices()
	equalIDs(t, devices, "B", "A")
	if devices[0].DisplayName != "Bar" || devices[0].FirstSeenOrder != 0 {
		t.Errorf("Expected B to keep its first-seen order, got %+v", devices[0])
	}
}

func TestRegistry_NameIsNeverLost(t *testing.T) {
	r := NewRegistry()

	r.Observe("A", "Foo")

	if _, changed := r.Observe("A", ""); changed {
		t.Error("Expected an empty name to leave the record unchanged")
	}
	if _, changed := r.Observe("A", "Other"); changed {
		t.Error("Expected a different name to leave the record unchanged")
	}

	record, ok := r.Lookup("A")
	if !ok || record.DisplayName != "Foo" {
		t.Errorf("Expected name Foo, got %+v", record)
	}
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()

	r.Observe("A", "")
	r.Observe("B", "")
	r.Reset()

	if r.Len() != 0 || len(r.Devices()) != 0 {
		t.Fatalf("Expected an empty registry after reset")
	}

	r.Observe("C", "")
	record, _ := r.Lookup("C")
	if record.FirstSeenOrder != 0 {
		t.Errorf("Expected the counter to restart, got %d", record.FirstSeenOrder)
	}
}

func TestRegistry_DevicesReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Observe("A", "Foo")

	devices := r.Devices()
	devices[0].DisplayName = "changed"

	if record, _ := r.Lookup("A"); record.DisplayName != "Foo" {
		t.Errorf("Expected registry to be unaffected by changes to a returned slice")
	}
}

func TestRegistry_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"", "", "alpha", "beta"}

	for run := 0; run < 200; run++ {
		r := NewRegistry()
		learned := make(map[string]string)
		firstSeen := make(map[string]int)

		for i := 0; i < 50; i++ {
			id := "dev-" + strconv.Itoa(rng.Intn(12))
			name := names[rng.Intn(len(names))]

			if _, ok := firstSeen[id]; !ok {
				firstSeen[id] = len(firstSeen)
			}
			if learned[id] == "" {
				learned[id] = name
			}

			r.Observe(id, name)
		}

		devices := r.Devices()
		if len(devices) != len(firstSeen) {
			t.Fatalf("run %d: expected %d distinct records, got %d", run, len(firstSeen), len(devices))
		}

		for i, d := range devices {
			if d.DisplayName != learned[d.ID] {
				t.Fatalf("run %d: expected %s to be named %q, got %q", run, d.ID, learned[d.ID], d.DisplayName)
			}
			if int(d.FirstSeenOrder) != firstSeen[d.ID] {
				t.Fatalf("run %d: expected %s first seen at %d, got %d", run, d.ID, firstSeen[d.ID], d.FirstSeenOrder)
			}

			if i == 0 {
				continue
			}

			prev := devices[i-1]
			if !prev.Named() && d.Named() {
				t.Fatalf("run %d: unnamed %s ordered before named %s", run, prev.ID, d.ID)
			}
			if prev.Named() == d.Named() && prev.FirstSeenOrder > d.FirstSeenOrder {
				t.Fatalf("run %d: %s ordered before %s, which was seen first", run, prev.ID, d.ID)
			}
		}
	}
}

func TestDeviceRecord_Label(t *testing.T) {
	if label := (DeviceRecord{ID: "A"}).Label(); label != "Unnamed Device" {
		t.Errorf("Expected placeholder label, got %q", label)
	}
	if label := (DeviceRecord{ID: "A", DisplayName: "Foo"}).Label(); label != "Foo" {
		t.Errorf("Expected Foo, got %q", label)
	}
}
