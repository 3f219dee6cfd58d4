package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
)

// SessionDirectory records live session ids in Redis so a token stays usable
// across restarts and across instances.
// Key format: session:<sid>
type SessionDirectory struct {
	client *redis.Client
}

// NewSessionDirectory creates a SessionDirectory wrapping the given Redis client.
func NewSessionDirectory(client *redis.Client) *SessionDirectory {
	return &SessionDirectory{client: client}
}

// Put stores info under sid; it expires after ttl.
func (d *SessionDirectory) Put(ctx context.Context, sid string, info ports.SessionInfo, ttl time.Duration) error {
	value, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("session directory put: %w", err)
	}
	if err := d.client.Set(ctx, key(sid), value, ttl).Err(); err != nil {
		return fmt.Errorf("session directory put: %w", err)
	}
	return nil
}

// Get returns domain.ErrSessionNotFound for unknown or expired ids.
func (d *SessionDirectory) Get(ctx context.Context, sid string) (ports.SessionInfo, error) {
	raw, err := d.client.Get(ctx, key(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.SessionInfo{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return ports.SessionInfo{}, fmt.Errorf("session directory get: %w", err)
	}
	return decodeInfo(raw)
}

func (d *SessionDirectory) Delete(ctx context.Context, sid string) error {
	if err := d.client.Del(ctx, key(sid)).Err(); err != nil {
		return fmt.Errorf("session directory delete: %w", err)
	}
	return nil
}

func (d *SessionDirectory) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func key(sid string) string {
	return "session:" + sid
}

func decodeInfo(raw []byte) (ports.SessionInfo, error) {
	var info ports.SessionInfo
	if err := json.Unmarshal(raw, &info); err != nil || info.Username == "" {
		return ports.SessionInfo{}, domain.ErrSessionNotFound
	}
	info.Role = domain.ParseRole(string(info.Role))
	return info, nil
}
