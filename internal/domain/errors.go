package domain

import (
	"errors"
	"fmt"
)

var (
	// Input errors
	ErrInvalidRegion = errors.New("invalid region")
	ErrInvalidName   = errors.New("invalid name")

	// Upstream transient errors - retried by the stats provider
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrSourceUnavailable = errors.New("source unavailable")

	// Upstream data errors
	ErrNoPlayersFound      = errors.New("no players found")
	ErrAmbiguousName       = errors.New("ambiguous name")
	ErrInsufficientBattles = errors.New("insufficient battles")
	ErrUpstream            = errors.New("upstream error")

	// Pipeline errors
	ErrNoDiffData         = errors.New("no diff data")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrIncompleteSnapshot = errors.New("incomplete snapshot")
	ErrSessionNotStarted  = errors.New("session not started")
	ErrUnknownStatField   = errors.New("unknown stat field")
)

// UpstreamError is returned when the stats API responds with a non-200 status or a
// non-ok status field. It matches ErrUpstream with errors.Is.
type UpstreamError struct {
	StatusCode int
	Payload    []byte
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrUpstream.Error(), e.StatusCode, e.Message)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// IsTransient reports whether err is an upstream error that may go away on retry
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrSourceUnavailable)
}
