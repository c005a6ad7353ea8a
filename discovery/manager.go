package discovery

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/darkhz/blescan/radio"
)

// scanSession holds a single bounded discovery attempt.
type scanSession struct {
	token uuid.UUID

	// done is closed when the session leaves the scanning state. Adapter
	// callbacks registered for this session stop delivering events once it is closed.
	done chan struct{}

	timer     *time.Timer
	startedAt time.Time
	deadline  time.Time
}

// Manager owns the scan lifecycle and the device registry.
// Apart from the handler closures it registers with the adapter, its methods
// must only be called on the loop goroutine.
type Manager struct {
	adapter radio.Adapter
	loop    *loop
	log     logrus.FieldLogger

	timeout time.Duration
	filter  []string

	registry *Registry
	state    ScanState
	session  *scanSession

	// changed is called after every state or registry change.
	changed func()

	// notify is called to emit a user-visible notice.
	notify func(Notice)

	// discovered is called when a device is first observed in a session.
	discovered func(DeviceRecord)
}

// newManager returns a new discovery session manager.
func newManager(adapter radio.Adapter, l *loop, opts Options, log logrus.FieldLogger) *Manager {
	return &Manager{
		adapter:    adapter,
		loop:       l,
		log:        log,
		timeout:    opts.ScanTimeout,
		filter:     opts.ServiceFilter,
		registry:   NewRegistry(),
		changed:    func() {},
		notify:     func(Notice) {},
		discovered: func(DeviceRecord) {},
	}
}

// startScan starts a new scan session. Calling it while a scan is in progress is ignored.
func (m *Manager) startScan() {
	if m.state == ScanScanning {
		m.log.WithField("session", m.session.token).Debug("scan already in progress, ignoring start")
		m.notify(Notice{Kind: NoticeInfo, Message: "Scan already in progress"})

		return
	}

	now := time.Now()
	session := &scanSession{
		token:     uuid.New(),
		done:      make(chan struct{}),
		startedAt: now,
		deadline:  now.Add(m.timeout),
	}

	m.registry.Reset()
	m.session = session
	m.state = ScanScanning

	log := m.log.WithField("session", session.token)
	log.WithField("timeout", m.timeout).Info("scan started")

	err := m.adapter.StartScan(radio.ScanOptions{ServiceFilter: m.filter}, m.handler(session))
	if err != nil {
		m.fail(session, err)
		return
	}

	token := session.token
	session.timer = time.AfterFunc(m.timeout, func() {
		m.loop.post(func() {
			m.expire(token)
		}, session.done)
	})

	m.notify(Notice{Kind: NoticeInfo, Message: "Scanning for devices..."})
	m.changed()
}

// stopScan stops the current scan session early. Stopping a session which is
// not scanning has no effect.
func (m *Manager) stopScan() {
	if m.state != ScanScanning {
		return
	}

	m.finish(m.session)
	m.log.WithField("session", m.session.token).Info("scan stopped")
	m.notify(Notice{Kind: NoticeInfo, Message: "Scanning stopped"})
	m.changed()
}

// handler returns the adapter event handler for a session.
// Events are queued onto the loop tagged with the session's token,
// and are not delivered at all once the session is done.
func (m *Manager) handler(session *scanSession) radio.EventHandler {
	token := session.token

	return func(ev radio.Event) {
		select {
		case <-session.done:
			return

		default:
		}

		m.loop.post(func() {
			m.handleEvent(token, ev)
		}, session.done)
	}
}

// handleEvent handles an adapter event for the session with the provided token.
func (m *Manager) handleEvent(token uuid.UUID, ev radio.Event) {
	if !m.current(token) {
		m.log.WithField("session", token).Debug("dropping event from inactive session")
		return
	}

	if ev.Err != nil {
		m.fail(m.session, ev.Err)
		return
	}
	if ev.Device == nil || ev.Device.ID == "" {
		return
	}

	added, changed := m.registry.Observe(ev.Device.ID, ev.Device.Name)
	if !changed {
		return
	}

	record, _ := m.registry.Lookup(ev.Device.ID)
	m.log.WithFields(logrus.Fields{
		"session":  token,
		"device":   record.ID,
		"name":     record.Label(),
		"rssi":     ev.Device.RSSI,
		"services": ev.Device.ServiceUUIDs,
	}).Debug("found device")

	m.changed()

	if added {
		m.discovered(record)
	}
}

// expire ends the session with the provided token once its timeout has elapsed.
// A timer which fires after the session has ended is ignored.
func (m *Manager) expire(token uuid.UUID) {
	if !m.current(token) {
		return
	}

	m.finish(m.session)

	count := m.registry.Len()
	m.log.WithFields(logrus.Fields{
		"session": token,
		"devices": count,
	}).Info("scan completed")

	if count == 0 {
		m.notify(Notice{Kind: NoticeInfo, Message: "No devices found"})
	} else {
		m.notify(Notice{Kind: NoticeInfo, Message: "Scan completed"})
	}

	m.changed()
}

// fail ends the session because of a scan error. The error is surfaced as a
// notice, and a new scan can be started afterwards.
func (m *Manager) fail(session *scanSession, err error) {
	m.finish(session)

	err = scanError(err, session.token.String())
	m.log.WithField("session", session.token).WithError(err).Error("scan failed")

	m.notify(Notice{Kind: NoticeError, Message: Issue(err), Err: err})
	m.changed()
}

// finish tears down the adapter callback registration and the timer of the session,
// stops the adapter scan, and moves to the completed state.
func (m *Manager) finish(session *scanSession) {
	close(session.done)
	if session.timer != nil {
		session.timer.Stop()
	}

	if err := m.adapter.StopScan(); err != nil {
		m.log.WithField("session", session.token).WithError(err).Warn("cannot stop adapter scan")
	}

	m.state = ScanCompleted
}

// current returns whether the token belongs to the session that is currently scanning.
func (m *Manager) current(token uuid.UUID) bool {
	return m.state == ScanScanning && m.session != nil && m.session.token == token
}

// fill adds the scan state of the manager to the snapshot.
func (m *Manager) fill(snapshot *Snapshot) {
	snapshot.Devices = m.registry.Devices()
	snapshot.ScanState = m.state

	if m.session != nil {
		snapshot.Session = m.session.token
		snapshot.StartedAt = m.session.startedAt
		snapshot.Deadline = m.session.deadline
	}
}
