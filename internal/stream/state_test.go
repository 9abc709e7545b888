package stream

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name      string
		state     State
		ev        event
		wantState State
		wantAct   action
	}{
		{
			name:      "idle connect with credential and gate dials",
			state:     StateIdle,
			ev:        event{kind: evConnectRequested, gateOn: true, hasCredential: true},
			wantState: StateConnecting,
			wantAct:   action{dial: true, cancelRetry: true},
		},
		{
			name:      "idle connect without credential stays put",
			state:     StateIdle,
			ev:        event{kind: evConnectRequested, gateOn: true, hasCredential: false},
			wantState: StateIdle,
			wantAct:   action{},
		},
		{
			name:      "connect with gate off disables",
			state:     StateIdle,
			ev:        event{kind: evConnectRequested, gateOn: false, hasCredential: true},
			wantState: StateDisabled,
			wantAct:   action{cancelRetry: true},
		},
		{
			name:      "connect while connected is a no-op",
			state:     StateConnected,
			ev:        event{kind: evConnectRequested, gateOn: true, hasCredential: true},
			wantState: StateConnected,
			wantAct:   action{},
		},
		{
			name:      "reconnect allowed after deliberate close",
			state:     StateDisconnected,
			ev:        event{kind: evConnectRequested, gateOn: true, hasCredential: true},
			wantState: StateConnecting,
			wantAct:   action{dial: true, cancelRetry: true},
		},
		{
			name:      "dial success connects and rewinds backoff",
			state:     StateConnecting,
			ev:        event{kind: evDialSucceeded},
			wantState: StateConnected,
			wantAct:   action{resetBackoff: true},
		},
		{
			name:      "dial failure schedules retry",
			state:     StateConnecting,
			ev:        event{kind: evDialFailed},
			wantState: StateError,
			wantAct:   action{scheduleRetry: true},
		},
		{
			name:      "normal closure is terminal",
			state:     StateConnected,
			ev:        event{kind: evClosed, deliberate: true, closeCode: websocket.CloseNormalClosure},
			wantState: StateDisconnected,
			wantAct:   action{resetBackoff: true},
		},
		{
			name:      "policy violation is terminal",
			state:     StateConnected,
			ev:        event{kind: evClosed, deliberate: true, closeCode: websocket.ClosePolicyViolation},
			wantState: StateDisconnected,
			wantAct:   action{resetBackoff: true},
		},
		{
			name:      "abnormal close schedules retry",
			state:     StateConnected,
			ev:        event{kind: evClosed, deliberate: false, closeCode: websocket.CloseAbnormalClosure},
			wantState: StateError,
			wantAct:   action{scheduleRetry: true},
		},
		{
			name:      "close in idle is ignored",
			state:     StateIdle,
			ev:        event{kind: evClosed, deliberate: false},
			wantState: StateIdle,
			wantAct:   action{},
		},
		{
			name:      "retry timer redials when gate on",
			state:     StateError,
			ev:        event{kind: evRetryTimerFired, gateOn: true},
			wantState: StateConnecting,
			wantAct:   action{dial: true},
		},
		{
			name:      "retry timer with gate off disables",
			state:     StateError,
			ev:        event{kind: evRetryTimerFired, gateOn: false},
			wantState: StateDisabled,
			wantAct:   action{},
		},
		{
			name:      "stale retry timer in idle is ignored",
			state:     StateIdle,
			ev:        event{kind: evRetryTimerFired, gateOn: true},
			wantState: StateIdle,
			wantAct:   action{},
		},
		{
			name:      "disconnect cancels retry and rewinds",
			state:     StateError,
			ev:        event{kind: evDisconnectRequested},
			wantState: StateIdle,
			wantAct:   action{cancelRetry: true, resetBackoff: true},
		},
		{
			name:      "disconnect while connected idles",
			state:     StateConnected,
			ev:        event{kind: evDisconnectRequested},
			wantState: StateIdle,
			wantAct:   action{cancelRetry: true, resetBackoff: true},
		},
		{
			name:      "disabled is terminal for connect",
			state:     StateDisabled,
			ev:        event{kind: evConnectRequested, gateOn: true, hasCredential: true},
			wantState: StateDisabled,
			wantAct:   action{},
		},
		{
			name:      "disabled is terminal for retry",
			state:     StateDisabled,
			ev:        event{kind: evRetryTimerFired, gateOn: true},
			wantState: StateDisabled,
			wantAct:   action{},
		},
		{
			name:      "disabled is terminal for disconnect",
			state:     StateDisabled,
			ev:        event{kind: evDisconnectRequested},
			wantState: StateDisabled,
			wantAct:   action{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotState, gotAct := transition(tt.state, tt.ev)
			assert.Equal(t, tt.wantState, gotState)
			assert.Equal(t, tt.wantAct, gotAct)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "disabled", StateDisabled.String())
	assert.Equal(t, "unknown", State(99).String())
}
