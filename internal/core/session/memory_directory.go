package session

import (
	"context"
	"sync"
	"time"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
)

// MemoryDirectory is a process-local SessionDirectory, used when no Redis is
// configured. Sessions do not survive a restart with it.
type MemoryDirectory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	info    ports.SessionInfo
	expires time.Time
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (d *MemoryDirectory) Put(_ context.Context, sid string, info ports.SessionInfo, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[sid] = memoryEntry{info: info, expires: d.now().Add(ttl)}
	return nil
}

func (d *MemoryDirectory) Get(_ context.Context, sid string) (ports.SessionInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[sid]
	if !ok {
		return ports.SessionInfo{}, domain.ErrSessionNotFound
	}
	if d.now().After(e.expires) {
		delete(d.entries, sid)
		return ports.SessionInfo{}, domain.ErrSessionNotFound
	}
	return e.info, nil
}

func (d *MemoryDirectory) Delete(_ context.Context, sid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, sid)
	return nil
}

func (d *MemoryDirectory) Ping(context.Context) error { return nil }
