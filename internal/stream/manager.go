package stream

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/errors"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

const defaultHandshakeTimeout = 10 * time.Second

// ManagerConfig configures a connection manager.
type ManagerConfig struct {
	// URL is the feed endpoint (ws:// or wss://).
	URL string
	// Credential is attached as the token query parameter at dial time.
	// Empty means no connection attempt is made.
	Credential string
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration
	// Gate is consulted before every dial. Nil means always enabled.
	Gate       *FeatureGate
	Dispatcher *Dispatcher
	// Schedule defaults to the standard reconnect ladder.
	Schedule *Schedule
	Log      *zap.Logger
}

// Manager owns the lifecycle of one streaming connection: dial, read,
// detect closure, and reconnect behind the backoff ladder. All state
// changes flow through the pure transition table in state.go; this type
// executes the resulting actions.
type Manager struct {
	feedURL    string
	credential string
	gate       *FeatureGate
	dispatcher *Dispatcher
	schedule   *Schedule
	log        *zap.Logger
	dialer     *websocket.Dialer

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	retryTimer *time.Timer
	gen        uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewManager(cfg ManagerConfig) *Manager {
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = NewSchedule()
	}
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	return &Manager{
		feedURL:    cfg.URL,
		credential: cfg.Credential,
		gate:       cfg.Gate,
		dispatcher: cfg.Dispatcher,
		schedule:   schedule,
		log:        cfg.Log.With(zap.String("module", "stream_manager")),
		dialer:     &websocket.Dialer{HandshakeTimeout: timeout},
		state:      StateIdle,
	}
}

// Connect starts the connection lifecycle. Without a credential the manager
// stays idle and ErrNoCredential is returned; with the feature gate off it
// lands in the terminal StateDisabled and ErrFeedDisabled is returned. A
// manager that is already connecting or connected returns ErrAlreadyStarted.
// The context governs dials and gate evaluations for the life of the manager.
func (m *Manager) Connect(ctx context.Context) error {
	gateOn := m.gateEnabled(ctx)
	hasCred := m.credential != ""

	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		return errors.ErrAlreadyStarted
	}
	if m.ctx == nil || m.ctx.Err() != nil {
		m.ctx, m.cancel = context.WithCancel(ctx)
	}
	m.mu.Unlock()

	m.handle(event{kind: evConnectRequested, gateOn: gateOn, hasCredential: hasCred})

	if !gateOn {
		return errors.ErrFeedDisabled
	}
	if !hasCred {
		return errors.ErrNoCredential
	}
	return nil
}

// Disconnect tears the connection down deliberately: any pending reconnect
// timer is cancelled, the backoff ladder rewinds, and the manager returns
// to idle. A stale timer can never resurrect a connection torn down here.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.handle(event{kind: evDisconnectRequested})
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) gateEnabled(ctx context.Context) bool {
	if m.gate == nil {
		return true
	}
	return m.gate.Enabled(ctx)
}

// handle feeds one event through the transition table and executes the
// resulting actions. It is the only place manager state changes.
func (m *Manager) handle(ev event) {
	m.mu.Lock()

	// Connection-scoped events from an abandoned dial generation are
	// dropped whole; their connections are closed, never adopted.
	switch ev.kind {
	case evDialSucceeded, evDialFailed, evClosed:
		if ev.gen != m.gen {
			m.mu.Unlock()
			if ev.conn != nil {
				ev.conn.Close()
			}
			return
		}
	}

	prev := m.state
	next, act := transition(m.state, ev)
	m.state = next

	if act.cancelRetry && m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if act.resetBackoff {
		m.schedule.Reset()
	}

	// Deliberate teardown and the terminal disabled state invalidate any
	// dial still in flight.
	if ev.kind == evDisconnectRequested || next == StateDisabled {
		m.gen++
	}

	var closeConn *websocket.Conn
	if next != StateConnected && m.conn != nil {
		closeConn = m.conn
		m.conn = nil
	}

	var startRead bool
	if ev.kind == evDialSucceeded {
		if next == StateConnected {
			m.conn = ev.conn
			startRead = true
		} else if ev.conn != nil {
			closeConn = ev.conn
		}
	}

	var dialGen uint64
	var dialCtx context.Context
	if act.dial {
		m.gen++
		dialGen = m.gen
		dialCtx = m.ctx
	}

	if act.scheduleRetry {
		delay := m.schedule.NextBackOff()
		metrics.StreamReconnects.Inc()
		m.retryTimer = time.AfterFunc(delay, m.onRetryTimer)
		m.log.Info("reconnect scheduled",
			zap.Duration("delay", delay),
			zap.Int("attempt", m.schedule.Attempt()),
		)
	}

	readConn := m.conn
	readGen := m.gen
	m.mu.Unlock()

	if closeConn != nil {
		closeConn.Close()
	}
	if prev != next {
		metrics.ConnectionState.Set(metrics.StateCode(next.String()))
		m.log.Info("connection state changed",
			zap.String("from", prev.String()),
			zap.String("to", next.String()),
		)
	}
	if act.dial {
		go m.dial(dialCtx, dialGen)
	}
	if startRead {
		go m.readLoop(readConn, readGen)
	}
}

func (m *Manager) onRetryTimer() {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		m.handle(event{kind: evDisconnectRequested})
		return
	}
	m.handle(event{kind: evRetryTimerFired, gateOn: m.gateEnabled(ctx)})
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	u, err := url.Parse(m.feedURL)
	if err != nil {
		m.log.Error("invalid feed URL", zap.String("url", m.feedURL), zap.Error(err))
		m.handle(event{kind: evDialFailed, gen: gen})
		return
	}
	q := u.Query()
	q.Set("token", m.credential)
	u.RawQuery = q.Encode()

	conn, resp, err := m.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		m.log.Warn("feed dial failed", zap.Error(err))
		m.handle(event{kind: evDialFailed, gen: gen})
		return
	}

	m.log.Info("feed connected", zap.String("host", u.Host))
	m.handle(event{kind: evDialSucceeded, gen: gen, conn: conn})
}

// readLoop drives one connection: every inbound payload runs through a
// fresh framer and into the dispatcher on this single goroutine. Exits by
// feeding the close back into the state machine.
func (m *Manager) readLoop(conn *websocket.Conn, gen uint64) {
	framer := NewFramer()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			code := -1
			if closeErr, ok := err.(*websocket.CloseError); ok {
				code = closeErr.Code
			}
			deliberate := code == websocket.CloseNormalClosure || code == websocket.ClosePolicyViolation
			if deliberate {
				m.log.Info("feed closed deliberately", zap.Int("code", code))
			} else {
				m.log.Warn("feed connection lost", zap.Int("code", code), zap.Error(err))
			}
			m.handle(event{kind: evClosed, gen: gen, deliberate: deliberate, closeCode: code})
			return
		}
		for _, frame := range framer.Feed(data) {
			m.dispatcher.Dispatch(frame)
		}
	}
}
