package ports

import (
	"context"
	"time"

	"github.com/atomm/taskpilot/internal/core/domain"
)

// SessionInfo is what survives a process restart about a login session. The
// workspace itself is always rebuilt from the RecordStore.
type SessionInfo struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// SessionDirectory remembers which session ids are live.
// Get returns domain.ErrSessionNotFound for unknown or expired ids.
type SessionDirectory interface {
	Put(ctx context.Context, sid string, info SessionInfo, ttl time.Duration) error
	Get(ctx context.Context, sid string) (SessionInfo, error)
	Delete(ctx context.Context, sid string) error
	Ping(ctx context.Context) error
}
