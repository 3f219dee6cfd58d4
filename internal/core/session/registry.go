package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
)

const defaultTTL = 12 * time.Hour

// Registry tracks the live sessions of this process. The session directory
// lets a valid token reopen its session after a restart; the workspace is
// then seeded from the record store again.
type Registry struct {
	store ports.RecordStore
	dir   ports.SessionDirectory
	ttl   time.Duration
	log   zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	newID    func() string
}

func NewRegistry(store ports.RecordStore, dir ports.SessionDirectory, ttl time.Duration, log zerolog.Logger) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Registry{
		store:    store,
		dir:      dir,
		ttl:      ttl,
		log:      log.With().Str("component", "session_registry").Logger(),
		sessions: make(map[string]*Session),
		newID:    uuid.NewString,
	}
}

// Open starts a session for an authenticated user and loads its workspace.
func (r *Registry) Open(ctx context.Context, username string, role domain.Role) (*Session, error) {
	sid := r.newID()
	if err := r.dir.Put(ctx, sid, ports.SessionInfo{Username: username, Role: role}, r.ttl); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	s := New(sid, username, role, r.store, r.log)
	s.Load(ctx)

	r.mu.Lock()
	r.sessions[sid] = s
	r.mu.Unlock()

	r.log.Info().Str("session_id", sid).Str("user", username).Str("role", string(role)).Msg("session opened")
	return s, nil
}

// Resolve returns the live session for sid, reopening it from the directory
// when this process has not seen it yet.
func (r *Registry) Resolve(ctx context.Context, sid string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[sid]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	info, err := r.dir.Get(ctx, sid)
	if err != nil {
		return nil, err
	}

	fresh := New(sid, info.Username, info.Role, r.store, r.log)
	fresh.Load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[sid]; ok {
		return existing, nil
	}
	r.sessions[sid] = fresh
	r.log.Info().Str("session_id", sid).Str("user", info.Username).Msg("session restored")
	return fresh, nil
}

// Close forgets the session. Unflushed changes are discarded; callers flush first.
func (r *Registry) Close(ctx context.Context, sid string) error {
	r.mu.Lock()
	delete(r.sessions, sid)
	r.mu.Unlock()

	if err := r.dir.Delete(ctx, sid); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// Prune forgets sessions whose directory entry has expired. Unsaved changes
// are flushed first; a session whose flush fails stays until the next Prune.
func (r *Registry) Prune(ctx context.Context) int {
	pruned := 0
	r.Each(func(s *Session) {
		_, err := r.dir.Get(ctx, s.ID)
		if err == nil {
			return
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			r.log.Debug().Err(err).Str("session_id", s.ID).Msg("session directory lookup failed")
			return
		}
		if err := s.FlushDirty(ctx); err != nil {
			r.log.Warn().Err(err).Str("session_id", s.ID).Msg("expired session not flushed, keeping it")
			return
		}

		r.mu.Lock()
		if r.sessions[s.ID] == s {
			delete(r.sessions, s.ID)
			pruned++
		}
		r.mu.Unlock()
		r.log.Info().Str("session_id", s.ID).Str("user", s.Username).Msg("session expired")
	})
	return pruned
}

// Each calls fn for a snapshot of the live sessions.
func (r *Registry) Each(fn func(s *Session)) {
	r.mu.RLock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.RUnlock()

	for _, s := range live {
		fn(s)
	}
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
