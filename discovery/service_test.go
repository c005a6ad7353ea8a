package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/darkhz/blescan/radio"
	"github.com/darkhz/blescan/radio/fake"
)

const waitTimeout = 2 * time.Second

func newTestService(t *testing.T, adapter *fake.Adapter, opts Options) (*Service, *test.Hook) {
	t.Helper()

	if opts.ScanTimeout == 0 {
		opts.ScanTimeout = time.Minute
	}

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	s := NewService(adapter, opts, log)
	t.Cleanup(func() { s.Close() })

	return s, hook
}

// flush waits until every event queued before it has been handled.
func flush(t *testing.T, s *Service) {
	t.Helper()

	if !s.loop.call(func() {}) {
		t.Fatal("loop is stopped")
	}
}

func waitSnapshot(t *testing.T, sub *Subscription, s *Service, match func(Snapshot) bool) Snapshot {
	t.Helper()

	if snapshot := s.Snapshot(); match(snapshot) {
		return snapshot
	}

	timeout := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-sub.Snapshots:
			if !ok {
				t.Fatal("subscription closed")
			}
			if snapshot := s.Snapshot(); match(snapshot) {
				return snapshot
			}

		case <-timeout:
			t.Fatalf("Timed out waiting for snapshot, last: %+v", s.Snapshot())
		}
	}
}

func waitNotice(t *testing.T, sub *Subscription, match func(Notice) bool) Notice {
	t.Helper()

	timeout := time.After(waitTimeout)
	for {
		select {
		case notice, ok := <-sub.Notices:
			if !ok {
				t.Fatal("subscription closed")
			}
			if match(notice) {
				return notice
			}

		case <-timeout:
			t.Fatal("Timed out waiting for notice")
		}
	}
}

// drainNotices collects notices until none arrive for a short while.
func drainNotices(sub *Subscription) []Notice {
	var notices []Notice

	for {
		select {
		case notice, ok := <-sub.Notices:
			if !ok {
				return notices
			}
			notices = append(notices, notice)

		case <-time.After(200 * time.Millisecond):
			return notices
		}
	}
}

func messageIs(message string) func(Notice) bool {
	return func(n Notice) bool {
		return n.Message == message
	}
}

func TestService_DuplicateAdvertisements(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	if err := s.StartScan(); err != nil {
		t.Fatalf("Failed to start scan: %v", err)
	}

	adapter.Emit("A", "Foo")
	adapter.Emit("B", "")
	adapter.Emit("A", "Foo")
	flush(t, s)

	snapshot := s.Snapshot()
	if snapshot.ScanState != ScanScanning {
		t.Errorf("Expected scanning, got %s", snapshot.ScanState)
	}

	equalIDs(t, snapshot.Devices, "A", "B")
	if snapshot.Devices[0].DisplayName != "Foo" || snapshot.Devices[1].DisplayName != "" {
		t.Errorf("Unexpected names: %+v", snapshot.Devices)
	}
}

func TestService_NameUpdateReorders(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	s.StartScan()
	adapter.Emit("B", "")
	adapter.Emit("A", "Foo")
	flush(t, s)
	equalIDs(t, s.Snapshot().Devices, "A", "B")

	adapter.Emit("B", "Bar")
	adapter.Emit("B", "")
	flush(t, s)

	devices := s.Snapshot().Devices
	equalIDs(t, devices, "B", "A")
	if devices[0].DisplayName != "Bar" {
		t.Errorf("Expected B to be named Bar, got %q", devices[0].DisplayName)
	}
}

func TestService_TimeoutWithoutDevices(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{ScanTimeout: 50 * time.Millisecond})
	sub := s.Subscribe()

	s.StartScan()

	snapshot := waitSnapshot(t, sub, s, func(s Snapshot) bool {
		return s.ScanState == ScanCompleted
	})
	if !snapshot.NoDevices() {
		t.Errorf("Expected no devices, got %+v", snapshot.Devices)
	}
	if adapter.Scanning() {
		t.Error("Expected the adapter scan to be stopped on timeout")
	}

	waitNotice(t, sub, messageIs("No devices found"))
}

func TestService_TimeoutKeepsDevices(t *testing.T) {
	adapter := fake.NewAdapter()
	s, hook := newTestService(t, adapter, Options{ScanTimeout: 100 * time.Millisecond})
	sub := s.Subscribe()

	s.StartScan()
	adapter.Emit("A", "")
	adapter.Emit("B", "Named")

	snapshot := waitSnapshot(t, sub, s, func(s Snapshot) bool {
		return s.ScanState == ScanCompleted
	})
	equalIDs(t, snapshot.Devices, "B", "A")

	if adapter.Emit("C", "") {
		t.Error("Expected the adapter to have no registered handler after completion")
	}

	var found int
	for _, entry := range hook.AllEntries() {
		if entry.Message == "found device" {
			found++
		}
	}
	if found != 2 {
		t.Errorf("Expected 2 'found device' log entries, got %d", found)
	}
}

func TestService_StartScanClearsRegistry(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	s.StartScan()
	adapter.Emit("A", "Foo")
	flush(t, s)
	first := s.Snapshot().Session

	s.StopScan()
	s.StartScan()

	snapshot := s.Snapshot()
	if len(snapshot.Devices) != 0 {
		t.Errorf("Expected an empty registry for a new session, got %+v", snapshot.Devices)
	}
	if snapshot.Session == first {
		t.Error("Expected a new session token")
	}
	if snapshot.Deadline.Before(snapshot.StartedAt) || snapshot.Deadline.Sub(snapshot.StartedAt) != time.Minute {
		t.Errorf("Unexpected session timing: %v to %v", snapshot.StartedAt, snapshot.Deadline)
	}
}

func TestService_StartScanWhileScanningIsIgnored(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})
	sub := s.Subscribe()

	s.StartScan()
	adapter.Emit("A", "Foo")
	flush(t, s)

	s.StartScan()
	adapter.Emit("B", "")
	flush(t, s)

	equalIDs(t, s.Snapshot().Devices, "A", "B")
	if calls := adapter.StartScanCalls(); calls != 1 {
		t.Errorf("Expected 1 adapter scan, got %d", calls)
	}

	waitNotice(t, sub, messageIs("Scan already in progress"))
}

func TestService_LateEventsAfterStop(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	s.StartScan()
	adapter.Emit("A", "Foo")
	late := adapter.Handler()
	s.StopScan()

	late(radio.Event{Device: &radio.Advertisement{ID: "B", Name: "Late"}})
	flush(t, s)

	snapshot := s.Snapshot()
	if snapshot.ScanState != ScanCompleted {
		t.Errorf("Expected completed, got %s", snapshot.ScanState)
	}
	equalIDs(t, snapshot.Devices, "A")
}

func TestService_LateEventsFromSupersededSession(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	s.StartScan()
	late := adapter.Handler()
	stale := s.Snapshot().Session
	s.StopScan()

	s.StartScan()
	adapter.Emit("C", "")
	late(radio.Event{Device: &radio.Advertisement{ID: "B"}})

	// An event which was already queued when the session ended still carries the old token.
	s.loop.call(func() {
		s.manager.handleEvent(stale, radio.Event{Device: &radio.Advertisement{ID: "D"}})
	})
	flush(t, s)

	equalIDs(t, s.Snapshot().Devices, "C")
}

func TestService_LateTimerIsIgnored(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	s.StartScan()
	stale := s.Snapshot().Session
	s.StopScan()
	s.StartScan()

	s.loop.call(func() {
		s.manager.expire(stale)
	})

	if state := s.Snapshot().ScanState; state != ScanScanning {
		t.Errorf("Expected the new session to keep scanning, got %s", state)
	}
	if !adapter.Scanning() {
		t.Error("Expected the adapter to keep scanning")
	}
}

func TestService_StopIsIdempotent(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	s.StopScan()
	if state := s.Snapshot().ScanState; state != ScanIdle {
		t.Errorf("Expected stopping an idle service to keep it idle, got %s", state)
	}
	if calls := adapter.StopScanCalls(); calls != 0 {
		t.Errorf("Expected no adapter stop, got %d", calls)
	}

	s.StartScan()
	adapter.Emit("A", "")
	s.StopScan()
	before := s.Snapshot()

	s.StopScan()
	after := s.Snapshot()

	if after.ScanState != ScanCompleted || after.Session != before.Session || len(after.Devices) != 1 {
		t.Errorf("Expected a second stop to leave the state unchanged, got %+v", after)
	}
	if calls := adapter.StopScanCalls(); calls != 1 {
		t.Errorf("Expected 1 adapter stop, got %d", calls)
	}
}

func TestService_ScanError(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})
	sub := s.Subscribe()

	s.StartScan()
	adapter.Emit("A", "")
	hardware := errors.New("radio disabled")
	adapter.FailScan(hardware)
	flush(t, s)

	snapshot := s.Snapshot()
	if snapshot.ScanState != ScanCompleted {
		t.Fatalf("Expected completed after a scan error, got %s", snapshot.ScanState)
	}
	equalIDs(t, snapshot.Devices, "A")
	if adapter.Scanning() {
		t.Error("Expected the adapter scan to be stopped")
	}

	notice := waitNotice(t, sub, func(n Notice) bool { return n.Kind == NoticeError })
	if !errors.Is(notice.Err, ErrScan) || !errors.Is(notice.Err, hardware) {
		t.Errorf("Expected a scan error wrapping the adapter error, got %v", notice.Err)
	}
	if notice.Message == "" {
		t.Error("Expected a user-facing message")
	}

	if err := s.StartScan(); err != nil {
		t.Fatalf("Expected scanning to be retryable: %v", err)
	}
	if state := s.Snapshot().ScanState; state != ScanScanning {
		t.Errorf("Expected scanning after retry, got %s", state)
	}
}

func TestService_PermissionDenied(t *testing.T) {
	adapter := fake.NewAdapter().DenyPermission()
	s, _ := newTestService(t, adapter, Options{})
	sub := s.Subscribe()

	if s.Enable() {
		t.Fatal("Expected the permission gate to be closed")
	}
	if s.Snapshot().PermissionGranted {
		t.Error("Expected the snapshot to report the denied permission")
	}

	if err := s.StartScan(); err != nil {
		t.Fatalf("Expected StartScan to remain callable: %v", err)
	}
	if state := s.Snapshot().ScanState; state != ScanCompleted {
		t.Errorf("Expected completed, got %s", state)
	}

	notice := waitNotice(t, sub, func(n Notice) bool { return n.Kind == NoticeError })
	if !errors.Is(notice.Err, radio.ErrPermissionDenied) {
		t.Errorf("Expected a permission error, got %v", notice.Err)
	}
}

func TestService_ConnectSuccessOverwrites(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	s.StartScan()
	adapter.Emit("X", "Sensor")
	flush(t, s)

	if err := s.Connect(context.Background(), "X"); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	snapshot := s.Snapshot()
	if snapshot.Connection != Connected("X") {
		t.Fatalf("Expected connected(X), got %s", snapshot.Connection)
	}
	if snapshot.ConnectedDevice.Label() != "Sensor" {
		t.Errorf("Expected the connected device to be labelled Sensor, got %q", snapshot.ConnectedDevice.Label())
	}

	if err := s.Connect(context.Background(), "Y"); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	if conn := s.Snapshot().Connection; conn != Connected("Y") {
		t.Errorf("Expected connected(Y), got %s", conn)
	}
}

func TestService_ConnectFailure(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})
	sub := s.Subscribe()

	unreachable := errors.New("device unreachable")
	adapter.SetConnectResult("X", unreachable, 0)

	err := s.Connect(context.Background(), "X")
	if !errors.Is(err, ErrConnection) || !errors.Is(err, unreachable) {
		t.Fatalf("Expected a connection error, got %v", err)
	}

	if conn := s.Snapshot().Connection; conn.IsConnected() {
		t.Errorf("Expected disconnected, got %s", conn)
	}

	var failures int
	for _, notice := range drainNotices(sub) {
		if notice.Kind == NoticeError {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("Expected exactly 1 failure notice, got %d", failures)
	}
	if calls := adapter.ConnectCalls(); calls != 1 {
		t.Errorf("Expected no automatic retry, got %d attempts", calls)
	}
}

func TestService_ConnectTimeout(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{ConnectTimeout: 30 * time.Millisecond})

	adapter.HoldConnect("X", nil)

	err := s.Connect(context.Background(), "X")
	if !errors.Is(err, ErrConnection) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected a timed out connection error, got %v", err)
	}
	if s.Snapshot().Connecting != "" {
		t.Error("Expected no attempt in progress")
	}
}

func TestService_ConnectAttemptInProgress(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})
	sub := s.Subscribe()

	release := adapter.HoldConnect("X", nil)

	result := make(chan error, 1)
	go func() {
		result <- s.Connect(context.Background(), "X")
	}()

	waitSnapshot(t, sub, s, func(s Snapshot) bool {
		return s.Connecting == "X"
	})

	if err := s.Connect(context.Background(), "Y"); !errors.Is(err, ErrAttemptInProgress) {
		t.Fatalf("Expected the second attempt to be rejected, got %v", err)
	}

	release()
	if err := <-result; err != nil {
		t.Fatalf("Expected the first attempt to succeed: %v", err)
	}

	if conn := s.Snapshot().Connection; conn != Connected("X") {
		t.Errorf("Expected connected(X), got %s", conn)
	}
	if err := s.Connect(context.Background(), "Y"); err != nil {
		t.Errorf("Expected a new attempt after resolution to be accepted: %v", err)
	}
}

func TestService_ConnectInvalidDevice(t *testing.T) {
	s, _ := newTestService(t, fake.NewAdapter(), Options{})

	if err := s.Connect(context.Background(), ""); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("Expected an invalid device error, got %v", err)
	}
}

func TestService_ConnectStaleSelection(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{})

	s.StartScan()
	adapter.Emit("OLD", "Old Device")
	s.StopScan()
	s.StartScan()

	if err := s.Connect(context.Background(), "OLD"); err != nil {
		t.Fatalf("Expected a stale selection to be attempted: %v", err)
	}
	if conn := s.Snapshot().Connection; conn != Connected("OLD") {
		t.Errorf("Expected connected(OLD), got %s", conn)
	}
}

func TestService_AutoConnect(t *testing.T) {
	adapter := fake.NewAdapter()
	s, _ := newTestService(t, adapter, Options{AutoConnectID: "A"})
	sub := s.Subscribe()

	s.StartScan()
	adapter.Emit("B", "")
	adapter.Emit("A", "Target")

	waitSnapshot(t, sub, s, func(s Snapshot) bool {
		return s.Connection == Connected("A")
	})

	s.StopScan()
	s.StartScan()
	adapter.Emit("A", "Target")
	flush(t, s)
	time.Sleep(50 * time.Millisecond)

	if calls := adapter.ConnectCalls(); calls != 1 {
		t.Errorf("Expected a single automatic connection, got %d", calls)
	}
}

func TestService_AutoConnectPendingUntilResolved(t *testing.T) {
	adapter := fake.NewAdapter()
	release := adapter.HoldConnect("A", nil)
	defer release()

	s, _ := newTestService(t, adapter, Options{AutoConnectID: "A"})
	sub := s.Subscribe()

	s.StartScan()
	adapter.Emit("A", "Target")
	flush(t, s)
	s.StopScan()

	snapshot := s.Snapshot()
	if !snapshot.AutoConnectPending || snapshot.Settled() {
		t.Fatalf("Expected the automatic connection to be pending, got %+v", snapshot)
	}

	release()

	snapshot = waitSnapshot(t, sub, s, Snapshot.Settled)
	if snapshot.Connection != Connected("A") {
		t.Errorf("Expected the automatic connection to be established, got %s", snapshot.Connection)
	}
}

func TestService_Close(t *testing.T) {
	adapter := fake.NewAdapter().FailDestroy(errors.New("hardware handle busy"))
	s, _ := newTestService(t, adapter, Options{})
	sub := s.Subscribe()

	s.StartScan()

	if err := s.Close(); err == nil {
		t.Error("Expected the teardown error to be returned")
	}
	if !adapter.Destroyed() || adapter.Scanning() {
		t.Error("Expected the adapter to be stopped and destroyed")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Expected a second close to be a no-op, got %v", err)
	}
	if calls := adapter.DestroyCalls(); calls != 1 {
		t.Errorf("Expected the adapter to be destroyed once, got %d", calls)
	}

	if err := s.StartScan(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := s.Connect(context.Background(), "A"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}

	timeout := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-sub.Snapshots:
			if !ok {
				return
			}

		case <-timeout:
			t.Fatal("Expected the subscription to be closed")
		}
	}
}

func TestService_ClosePanickingAdapter(t *testing.T) {
	adapter := fake.NewAdapter().PanicOnDestroy("driver crashed")
	s, hook := newTestService(t, adapter, Options{})
	sub := s.Subscribe()

	s.StartScan()

	err := s.Close()
	if err == nil {
		t.Error("Expected the teardown panic to be reported as an error")
	}
	if !adapter.Destroyed() || adapter.Scanning() {
		t.Error("Expected the scan to be stopped before the adapter was destroyed")
	}

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "adapter teardown panicked" {
			logged = true
		}
	}
	if !logged {
		t.Error("Expected the teardown panic to be logged")
	}

	if err := s.StartScan(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}

	timeout := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-sub.Notices:
			if !ok {
				return
			}

		case <-timeout:
			t.Fatal("Expected the bus to be shut down")
		}
	}
}
