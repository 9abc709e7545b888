package stream

import "github.com/gorilla/websocket"

// State is the connection lifecycle state. Transitions are driven solely by
// the manager through the transition table below.
type State int

const (
	// StateIdle means no connection exists and none is wanted.
	StateIdle State = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateConnected means the feed is live.
	StateConnected
	// StateDisconnected is reached by a deliberate close (normal closure or
	// policy violation). The manager halts; no reconnect is scheduled.
	StateDisconnected
	// StateError means the connection was lost abnormally and a reconnect
	// is pending behind the backoff ladder.
	StateError
	// StateDisabled is terminal: the feature was turned off upstream.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

type eventKind int

const (
	evConnectRequested eventKind = iota
	evDialSucceeded
	evDialFailed
	evClosed
	evRetryTimerFired
	evDisconnectRequested
)

// event is one input to the state machine. gateOn and hasCredential are
// evaluated by the run loop before the event is fed in, keeping the
// transition function pure. gen ties connection-scoped events (dial
// results, closes) to the dial generation that produced them so a stale
// read loop cannot disturb a newer connection.
type event struct {
	kind          eventKind
	gen           uint64
	gateOn        bool
	hasCredential bool
	deliberate    bool
	closeCode     int
	conn          *websocket.Conn
}

// action is the effect list the run loop must execute after a transition.
type action struct {
	dial          bool
	scheduleRetry bool
	cancelRetry   bool
	resetBackoff  bool
}

// transition is the pure state machine: (state, event) -> (state, action).
// It touches no manager fields, so every path is table-testable without a
// socket.
func transition(s State, ev event) (State, action) {
	// Disabled is terminal regardless of input.
	if s == StateDisabled {
		return StateDisabled, action{}
	}

	switch ev.kind {
	case evConnectRequested:
		if !ev.gateOn {
			return StateDisabled, action{cancelRetry: true}
		}
		if !ev.hasCredential {
			return s, action{}
		}
		switch s {
		case StateIdle, StateDisconnected, StateError:
			return StateConnecting, action{dial: true, cancelRetry: true}
		default:
			// Already connecting or connected.
			return s, action{}
		}

	case evDialSucceeded:
		if s != StateConnecting {
			return s, action{}
		}
		return StateConnected, action{resetBackoff: true}

	case evDialFailed:
		if s != StateConnecting {
			return s, action{}
		}
		return StateError, action{scheduleRetry: true}

	case evClosed:
		if s != StateConnected {
			return s, action{}
		}
		if ev.deliberate {
			return StateDisconnected, action{resetBackoff: true}
		}
		return StateError, action{scheduleRetry: true}

	case evRetryTimerFired:
		if s != StateError {
			return s, action{}
		}
		if !ev.gateOn {
			return StateDisabled, action{}
		}
		return StateConnecting, action{dial: true}

	case evDisconnectRequested:
		return StateIdle, action{cancelRetry: true, resetBackoff: true}
	}

	return s, action{}
}
