package discovery

import (
	"strconv"
	"testing"
	"time"
)

func TestBus_NoticesNotDropped(t *testing.T) {
	b := newBus()
	defer b.shutdown()

	sub := b.subscribe()
	defer sub.Unsubscribe()

	count := 3 * busCapacity

	published := make(chan struct{})
	go func() {
		defer close(published)

		for i := range count {
			b.publishNotice(Notice{Kind: NoticeError, Message: strconv.Itoa(i)})
		}
	}()

	// Let the subscriber fall behind.
	time.Sleep(50 * time.Millisecond)

	for i := range count {
		select {
		case notice := <-sub.Notices:
			if notice.Message != strconv.Itoa(i) {
				t.Fatalf("Expected notice %d, got %s", i, notice.Message)
			}

		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for notice %d", i)
		}
	}

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("Expected the publisher to finish")
	}
}

func TestBus_UnsubscribeReleasesPublisher(t *testing.T) {
	b := newBus()
	defer b.shutdown()

	sub := b.subscribe()

	published := make(chan struct{})
	go func() {
		defer close(published)

		for i := range 2 * busCapacity {
			b.publishNotice(Notice{Message: strconv.Itoa(i)})
		}
	}()

	time.Sleep(50 * time.Millisecond)
	sub.Unsubscribe()
	sub.Unsubscribe()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("Expected unsubscribing to release the publisher")
	}
}

func TestBus_UnsubscribeAfterShutdown(t *testing.T) {
	b := newBus()
	sub := b.subscribe()

	b.shutdown()

	done := make(chan struct{})
	go func() {
		defer close(done)

		sub.Unsubscribe()
		b.publishNotice(Notice{Message: "late"})
		b.publishSnapshot(Snapshot{ScanState: ScanCompleted})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected unsubscribing and publishing after shutdown to return")
	}

	if _, ok := <-sub.Notices; ok {
		t.Error("Expected the notice channel to be closed")
	}
	if b.snapshot().ScanState != ScanCompleted {
		t.Error("Expected the latest snapshot to be stored after shutdown")
	}
}
