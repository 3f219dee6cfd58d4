// Package session holds the per-login working copy of the user, task and
// audit collections. Every lifecycle operation reads and writes a Session;
// nothing reaches the record store until the caller flushes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/policy"
	"github.com/atomm/taskpilot/internal/core/ports"
)

// Workspace is the mutable working set of a session. It is only reachable
// through Session.View and Session.Update, which hold the session lock.
type Workspace struct {
	Users []domain.User
	Tasks []domain.Task
	Audit []domain.AuditEntry

	gen map[ports.Collection]uint64
}

// Touch marks collections as changed since the last successful flush.
func (w *Workspace) Touch(collections ...ports.Collection) {
	for _, c := range collections {
		w.gen[c]++
	}
}

// Session is one authenticated user's workspace.
type Session struct {
	ID       string
	Username string
	Role     domain.Role

	store ports.RecordStore
	log   zerolog.Logger

	mu     sync.Mutex
	loaded bool
	ws     Workspace
	saved  map[ports.Collection]uint64

	flushMu sync.Mutex
}

// New returns an unloaded session. The workspace is seeded from store by
// Load, or lazily on first access.
func New(id, username string, role domain.Role, store ports.RecordStore, log zerolog.Logger) *Session {
	return &Session{
		ID:       id,
		Username: username,
		Role:     role,
		store:    store,
		log:      log.With().Str("session_id", id).Str("user", username).Logger(),
		ws:       Workspace{gen: make(map[ports.Collection]uint64)},
		saved:    make(map[ports.Collection]uint64),
	}
}

// Load seeds the workspace from the record store once. A collection that
// cannot be read starts empty so the session stays usable.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
}

func (s *Session) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}

	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("collection", string(ports.CollectionUsers)).Msg("load failed, starting empty")
		users = nil
	}
	tasks, err := s.store.LoadTasks(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("collection", string(ports.CollectionTasks)).Msg("load failed, starting empty")
		tasks = nil
	}
	audit, err := s.store.LoadAudit(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("collection", string(ports.CollectionAudit)).Msg("load failed, starting empty")
		audit = nil
	}

	s.ws.Users = users
	s.ws.Tasks = tasks
	s.ws.Audit = audit
	s.loaded = true

	s.log.Debug().Int("users", len(users)).Int("tasks", len(tasks)).Int("audit", len(audit)).Msg("workspace loaded")
}

// View runs fn with the workspace locked. fn must not modify it.
func (s *Session) View(ctx context.Context, fn func(w *Workspace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return fn(&s.ws)
}

// Update runs fn with the workspace locked. fn is expected to validate
// before it mutates, and to Touch whatever it changed.
func (s *Session) Update(ctx context.Context, fn func(w *Workspace) error) error {
	return s.View(ctx, fn)
}

// Actor resolves the session user against the workspace user list.
// Callers must hold the workspace, i.e. call it from inside View or Update.
func (s *Session) Actor(w *Workspace) policy.Actor {
	return policy.ActorFor(w.Users, s.Username, s.Role)
}

// Dirty lists the collections changed since they were last flushed.
func (s *Session) Dirty() []ports.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dirty []ports.Collection
	for _, c := range ports.AllCollections {
		if s.ws.gen[c] > s.saved[c] {
			dirty = append(dirty, c)
		}
	}
	return dirty
}

// Flush writes the named collections to the record store. Collections not
// named are left untouched in storage. A failed write is reported but the
// in-memory workspace is kept as is.
func (s *Session) Flush(ctx context.Context, collections ...ports.Collection) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if !s.loaded {
		// Nothing was read, so there is nothing that could be written back.
		s.mu.Unlock()
		return nil
	}
	type pending struct {
		collection ports.Collection
		gen        uint64
		save       func() error
	}
	jobs := make([]pending, 0, len(collections))
	var errs []error
	for _, c := range collections {
		gen := s.ws.gen[c]
		switch c {
		case ports.CollectionUsers:
			snapshot := append([]domain.User(nil), s.ws.Users...)
			jobs = append(jobs, pending{c, gen, func() error { return s.store.SaveUsers(ctx, snapshot) }})
		case ports.CollectionTasks:
			snapshot := append([]domain.Task(nil), s.ws.Tasks...)
			jobs = append(jobs, pending{c, gen, func() error { return s.store.SaveTasks(ctx, snapshot) }})
		case ports.CollectionAudit:
			snapshot := append([]domain.AuditEntry(nil), s.ws.Audit...)
			jobs = append(jobs, pending{c, gen, func() error { return s.store.SaveAudit(ctx, snapshot) }})
		default:
			errs = append(errs, fmt.Errorf("%w: collection %q is not held by a session", domain.ErrValidation, c))
		}
	}
	s.mu.Unlock()

	for _, job := range jobs {
		if err := job.save(); err != nil {
			s.log.Warn().Err(err).Str("collection", string(job.collection)).Msg("flush failed")
			errs = append(errs, fmt.Errorf("flush %s: %w", job.collection, err))
			continue
		}
		s.mu.Lock()
		if job.gen > s.saved[job.collection] {
			s.saved[job.collection] = job.gen
		}
		s.mu.Unlock()
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrStoreIO, err)
	}
	return nil
}

// FlushDirty flushes every collection changed since its last flush.
func (s *Session) FlushDirty(ctx context.Context) error {
	dirty := s.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	return s.Flush(ctx, dirty...)
}
