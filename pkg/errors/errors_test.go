package errors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/logger"
)

func TestWrap(t *testing.T) {
	base := New("boom")
	wrapped := Wrap(base, "forwarding request")
	require.Error(t, wrapped)
	assert.Equal(t, "forwarding request: boom", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "anything"))
}

func TestLogWithError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	log := zap.New(core)

	ctx := logger.WithRequestID(context.Background(), "req-42")
	err := LogWithError(ctx, log, "mint credential", ErrUnauthenticated, zap.String("route", "/api/events"))
	require.Error(t, err)
	assert.Equal(t, "mint credential: not authenticated", err.Error())

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "mint credential", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/api/events", fields["route"])
}

func TestLogWithErrorNilLogger(t *testing.T) {
	err := LogWithError(context.Background(), nil, "no logger", ErrFeedDisabled)
	require.Error(t, err)
	assert.Equal(t, "no logger: live feed disabled", err.Error())
}

func TestSentinelsDistinct(t *testing.T) {
	sentinels := []error{
		ErrUnauthenticated,
		ErrUnverified,
		ErrFeedDisabled,
		ErrNoCredential,
		ErrAlreadyStarted,
	}
	seen := map[string]bool{}
	for _, s := range sentinels {
		assert.False(t, seen[s.Error()], "duplicate sentinel message %q", s.Error())
		seen[s.Error()] = true
	}
}
