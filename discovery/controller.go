package discovery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/darkhz/blescan/radio"
)

// Controller attempts connections to selected devices, and tracks the
// most recently established connection.
type Controller struct {
	adapter radio.Adapter
	loop    *loop
	log     logrus.FieldLogger
	timeout time.Duration

	// inFlight guards against a second attempt while one is unresolved.
	inFlight atomic.Bool

	// The fields below are only accessed on the loop goroutine.
	state      ConnectionState
	device     DeviceRecord
	pending    DeviceRecord
	connecting string
	conn       radio.Connection

	changed func()
	notify  func(Notice)
	lookup  func(id string) DeviceRecord
}

// newController returns a new connection controller.
func newController(adapter radio.Adapter, l *loop, opts Options, log logrus.FieldLogger) *Controller {
	return &Controller{
		adapter: adapter,
		loop:    l,
		log:     log,
		timeout: opts.ConnectTimeout,
		changed: func() {},
		notify:  func(Notice) {},
		lookup:  func(id string) DeviceRecord { return DeviceRecord{ID: id} },
	}
}

// connect attempts a connection to the device with the provided id, and blocks
// until the adapter resolves the attempt. The outcome is applied to the connection
// state before connect returns.
func (c *Controller) connect(ctx context.Context, id string) error {
	if id == "" {
		return rejectedError(ErrInvalidDevice, id, "No device was selected")
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return rejectedError(ErrAttemptInProgress, id, "A connection attempt is already in progress")
	}
	defer c.inFlight.Store(false)

	if !c.loop.call(func() { c.begin(id) }) {
		return ErrClosed
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	conn, err := c.adapter.Connect(attemptCtx, id)
	cancel()

	var result error
	if !c.loop.call(func() { result = c.resolve(id, conn, err) }) {
		if conn != nil {
			conn.Disconnect()
		}

		return ErrClosed
	}

	return result
}

// begin marks the start of a connection attempt.
// The device is looked up now, since a new scan may clear the registry
// before the attempt resolves.
func (c *Controller) begin(id string) {
	c.connecting = id
	c.pending = c.lookup(id)

	c.log.WithField("device", id).Info("connecting")
	c.notify(Notice{Kind: NoticeInfo, Message: "Connecting to " + c.describe(id)})
	c.changed()
}

// resolve applies the outcome of a connection attempt.
func (c *Controller) resolve(id string, conn radio.Connection, err error) error {
	c.connecting = ""

	if err != nil {
		c.state = Disconnected()
		c.device = DeviceRecord{}

		err = connectionError(err, id)
		c.log.WithField("device", id).WithError(err).Error("connection failed")

		c.notify(Notice{Kind: NoticeError, Message: Issue(err), Err: err})
		c.changed()

		return err
	}

	c.state = Connected(id)
	c.device = c.pending
	c.conn = conn

	c.log.WithField("device", id).Info("connected")
	c.notify(Notice{Kind: NoticeInfo, Message: "Connected to " + c.describe(id)})
	c.changed()

	return nil
}

// describe returns a display string for the device.
func (c *Controller) describe(id string) string {
	return c.pending.Label() + " (" + id + ")"
}

// fill adds the connection state of the controller to the snapshot.
func (c *Controller) fill(snapshot *Snapshot) {
	snapshot.Connection = c.state
	snapshot.ConnectedDevice = c.device
	snapshot.Connecting = c.connecting
}
