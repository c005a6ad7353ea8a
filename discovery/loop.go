package discovery

import "sync"

// loop runs queued functions one at a time on a single goroutine.
// It is the only execution context that mutates the core state.
type loop struct {
	queue chan func()
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// newLoop starts a new loop.
func newLoop() *loop {
	l := &loop{
		queue: make(chan func(), busCapacity),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go l.run()

	return l
}

// run executes the queued functions until the loop is stopped.
func (l *loop) run() {
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			return

		case fn := <-l.queue:
			fn()
		}
	}
}

// post queues a function. It returns false if the loop was stopped, or if
// cancel is closed before the function could be queued.
// post must not be called from the loop goroutine.
func (l *loop) post(fn func(), cancel <-chan struct{}) bool {
	// A send on the buffered queue may still be selected once quit is closed.
	select {
	case <-l.quit:
		return false

	default:
	}

	select {
	case <-l.quit:
		return false

	case <-cancel:
		return false

	case l.queue <- fn:
		return true
	}
}

// call queues a function and waits for it to complete.
// call must not be called from the loop goroutine.
func (l *loop) call(fn func()) bool {
	wait := make(chan struct{})
	if !l.post(func() {
		defer close(wait)
		fn()
	}, nil) {
		return false
	}

	select {
	case <-wait:
		return true

	case <-l.done:
		return false
	}
}

// stop stops the loop, and waits for the running function to return.
// Queued functions that have not started are discarded.
func (l *loop) stop() {
	l.once.Do(func() {
		close(l.quit)
	})

	<-l.done
}
