package discovery

import (
	"testing"
)

func TestLoop_RunsInOrder(t *testing.T) {
	l := newLoop()
	defer l.stop()

	var order []int
	for i := range 10 {
		l.post(func() { order = append(order, i) }, nil)
	}
	l.call(func() {})

	for i, v := range order {
		if v != i {
			t.Fatalf("Expected functions to run in order, got %v", order)
		}
	}
	if len(order) != 10 {
		t.Fatalf("Expected 10 functions to run, got %d", len(order))
	}
}

func TestLoop_Stopped(t *testing.T) {
	l := newLoop()
	l.stop()
	l.stop()

	if l.post(func() {}, nil) {
		t.Error("Expected post to fail on a stopped loop")
	}
	if l.call(func() {}) {
		t.Error("Expected call to fail on a stopped loop")
	}
}

func TestLoop_StoppedWithFreeQueue(t *testing.T) {
	l := newLoop()
	l.stop()

	for i := range 2 * busCapacity {
		if l.post(func() {}, nil) {
			t.Fatalf("Expected post %d to fail on a stopped loop", i)
		}
	}

	if len(l.queue) != 0 {
		t.Errorf("Expected nothing to be queued on a stopped loop, got %d", len(l.queue))
	}
}

func TestLoop_PostCancelled(t *testing.T) {
	l := &loop{
		queue: make(chan func()),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	cancel := make(chan struct{})
	close(cancel)

	if l.post(func() {}, cancel) {
		t.Error("Expected post to give up once cancelled")
	}
}
