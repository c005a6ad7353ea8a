package discovery

import (
	"sync"

	"github.com/cskr/pubsub/v2"
	"go.uber.org/atomic"
)

// busCapacity is the buffer size of every subscriber channel.
const busCapacity = 64

const (
	topicSnapshot = "snapshot"
	topicNotice   = "notice"
)

// NoticeKind describes the severity of a notice.
type NoticeKind int

// The different notice kinds.
const (
	NoticeInfo NoticeKind = iota
	NoticeWarning
	NoticeError
)

// Notice is a user-visible message emitted by the core.
type Notice struct {
	Kind    NoticeKind
	Message string

	// Err is set for NoticeError notices, and wraps either ErrScan or ErrConnection.
	Err error
}

// Subscription holds the channels of a subscriber.
// Subscribers that fall behind may miss intermediate snapshots, but
// [Service.Snapshot] always returns the latest one. Notices are never dropped,
// so a subscriber must keep reading Notices until it unsubscribes.
type Subscription struct {
	Snapshots <-chan Snapshot
	Notices   <-chan Notice

	snapshots chan Snapshot
	notices   chan Notice
	bus       *bus
	once      sync.Once
}

// bus publishes snapshots and notices to subscribers.
type bus struct {
	snapshots *pubsub.PubSub[string, Snapshot]
	notices   *pubsub.PubSub[string, Notice]

	latest atomic.Pointer[Snapshot]
	closed atomic.Bool

	// lock orders publishing and unsubscribing against shutdown, since the
	// pubsub goroutine no longer accepts commands once it is shut down.
	lock sync.RWMutex
}

// newBus returns a new bus.
func newBus() *bus {
	b := &bus{
		snapshots: pubsub.New[string, Snapshot](busCapacity),
		notices:   pubsub.New[string, Notice](busCapacity),
	}
	b.latest.Store(&Snapshot{})

	return b
}

// subscribe returns a new subscription.
func (b *bus) subscribe() *Subscription {
	s := &Subscription{bus: b}

	b.lock.RLock()
	defer b.lock.RUnlock()

	if b.closed.Load() {
		snapshots, notices := make(chan Snapshot), make(chan Notice)
		close(snapshots)
		close(notices)

		s.Snapshots, s.Notices = snapshots, notices

		return s
	}

	s.snapshots = b.snapshots.Sub(topicSnapshot)
	s.notices = b.notices.Sub(topicNotice)
	s.Snapshots, s.Notices = s.snapshots, s.notices

	return s
}

// publishSnapshot stores and publishes a snapshot.
func (b *bus) publishSnapshot(snapshot Snapshot) {
	b.latest.Store(&snapshot)

	b.lock.RLock()
	defer b.lock.RUnlock()

	if !b.closed.Load() {
		b.snapshots.TryPub(snapshot, topicSnapshot)
	}
}

// publishNotice publishes a notice, and waits until every subscriber has room for it.
func (b *bus) publishNotice(notice Notice) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if !b.closed.Load() {
		b.notices.Pub(notice, topicNotice)
	}
}

// snapshot returns the latest snapshot.
func (b *bus) snapshot() Snapshot {
	return *b.latest.Load()
}

// shutdown closes all subscriber channels.
func (b *bus) shutdown() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.snapshots.Shutdown()
	b.notices.Shutdown()
}

// Unsubscribe removes the subscription, and closes its channels.
// Pending values are discarded.
func (s *Subscription) Unsubscribe() {
	if s.snapshots == nil {
		return
	}

	s.once.Do(func() {
		// Keep the pubsub goroutine from blocking on this subscriber.
		go drain(s.snapshots)
		go drain(s.notices)

		s.bus.lock.Lock()
		defer s.bus.lock.Unlock()

		if s.bus.closed.Load() {
			return
		}

		s.bus.snapshots.Unsub(s.snapshots, topicSnapshot)
		s.bus.notices.Unsub(s.notices, topicNotice)
	})
}

// drain reads from the channel until it is closed.
func drain[T any](ch <-chan T) {
	for range ch {
	}
}
