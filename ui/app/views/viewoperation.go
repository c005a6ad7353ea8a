package views

import (
	"context"
	"sync"
)

// viewOperation holds an operation manager instance.
// Only one operation can run at a time.
type viewOperation struct {
	cancel context.CancelFunc
	lock   sync.Mutex

	root *Views
}

// newViewOperation returns a new operations manager.
func newViewOperation(root *Views) *viewOperation {
	return &viewOperation{root: root}
}

// startOperation starts the operation with a cancellable context.
// If the operation is cancelled by the user, onCancel is called after
// the operation's context is cancelled.
func (v *viewOperation) startOperation(dofunc func(ctx context.Context), onCancel func()) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.cancel != nil {
		v.root.status.InfoMessage("Operation still in progress", false)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = func() {
		cancel()
		if onCancel != nil {
			onCancel()
		}
	}

	go func() {
		defer cancel()

		dofunc(ctx)
		v.cancelOperation(false)
	}()
}

// cancelOperation removes the currently running operation, and
// cancels it if cancelfunc is set.
func (v *viewOperation) cancelOperation(cancelfunc bool) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.cancel == nil {
		return
	}

	cancel := v.cancel
	v.cancel = nil

	if cancelfunc {
		go cancel()
	}
}
