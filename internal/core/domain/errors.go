package domain

import (
	"errors"
	"fmt"
)

// Synchronous, caller-facing failures of the command operations.
var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidThreshold = errors.New("threshold must be a positive number")
	ErrSubscriberLimit  = errors.New("subscriber wallet limit reached")
	ErrNoTokensFound    = errors.New("wallet holds no tokens")
	ErrNotFound         = errors.New("not found")
)

// UpstreamError marks an analytics-API failure as transient. It is recorded
// per entity to drive backoff and never fails a whole scan cycle.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err originated from the analytics upstream.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
