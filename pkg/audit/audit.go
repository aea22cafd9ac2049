// Package audit records the terminal outcome of every request chain run
// for operators. The log is append-only and is never consulted by the
// chain itself: it holds no authorization state and is not a verification
// cache.
package audit

import (
	"context"
	"time"
)

// Record is one terminal chain outcome.
type Record struct {
	RequestID   string
	Path        string
	Outcome     string // "allowed" or a ChainError code
	AccountID   string // empty when the chain halted before identity
	UserID      string
	TokenSource string
	At          time.Time
}

// Sink persists chain outcomes. Implementations must be safe for
// concurrent use; Record is called from per-request goroutines.
type Sink interface {
	Record(ctx context.Context, rec Record) error
	Close()
}

// DetachedContext returns a context with the given timeout that is not
// derived from any request context, so audit writes survive client
// disconnects.
func DetachedContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
