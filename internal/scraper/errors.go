package scraper

import (
	"errors"
	"fmt"
)

// ErrNoMatch is the semantic negative result of identifier resolution: the
// movie does not exist on the source as far as every strategy can tell.
var ErrNoMatch = errors.New("no matching movie found")

// TransportError wraps a network or timeout failure. Always retryable with
// bounded attempts; exhaustion cascades to the next resolution stage.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StructureMismatchError reports that an expected markup shape was absent.
// Never retried at the same selector; the caller moves to the next fallback
// selector or stage instead.
type StructureMismatchError struct {
	Selector string
}

func (e *StructureMismatchError) Error() string {
	return fmt.Sprintf("structure mismatch: no elements for %q", e.Selector)
}

// SessionError reports a broken or unusable browser session. The session
// owner restarts it a bounded number of times before giving up on the
// movie's pipeline (never on the whole batch).
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another bounded attempt.
func IsRetryable(err error) bool {
	var transport *TransportError
	var session *SessionError
	return errors.As(err, &transport) || errors.As(err, &session)
}
