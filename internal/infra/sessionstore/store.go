// Package sessionstore persists per-session pipeline state keyed by the
// session cookie identifier.
package sessionstore

import (
	"context"
	"time"

	"github.com/tmoana/uvwatch/internal/domain/exposure"
)

// Store abstracts session state persistence.
type Store interface {
	Get(ctx context.Context, sessionID string) (exposure.SessionState, bool, error)
	Save(ctx context.Context, sessionID string, state exposure.SessionState, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}
