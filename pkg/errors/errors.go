package errors

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/logger"
)

// Gateway errors.
var (
	// ErrUnauthenticated is returned when a request carries no usable credential.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrUnverified is returned when a credential exists but the subject is not verified.
	ErrUnverified = errors.New("principal not verified")
)

// Stream errors.
var (
	// ErrFeedDisabled is returned when the live feed feature is turned off upstream.
	ErrFeedDisabled = errors.New("live feed disabled")
	// ErrNoCredential is returned when a connection is requested without a feed credential.
	ErrNoCredential = errors.New("no feed credential")
	// ErrAlreadyStarted is returned when a connection manager is started twice.
	ErrAlreadyStarted = errors.New("connection manager already started")
)

// New creates a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.New(msg + ": " + err.Error())
}

// LogWithError logs the error with context and returns a wrapped error. Use this for standardized error logging across services.
func LogWithError(ctx context.Context, log *zap.Logger, msg string, err error, fields ...zap.Field) error {
	if log != nil {
		if ctx != nil {
			if reqID := logger.RequestID(ctx); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
		}
		log.Error(msg, append(fields, zap.Error(err))...)
	}
	return Wrap(err, msg)
}
