// Package memory is a RecordStore that keeps every collection in process
// memory. It backs STORE_DRIVER=memory and the tests of the core packages.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
)

// Store is safe for concurrent use. Slices are copied on the way in and out
// so callers never share backing arrays with the store.
type Store struct {
	mu       sync.RWMutex
	users    []domain.User
	tasks    []domain.Task
	audit    []domain.AuditEntry
	files    []domain.FileMeta
	messages []domain.Message

	// FailSave and FailLoad make the named collections return domain.ErrStoreIO.
	FailSave map[ports.Collection]bool
	FailLoad map[ports.Collection]bool
	// Saves counts successful saves per collection.
	Saves map[ports.Collection]int
}

func New() *Store {
	return &Store{
		FailSave: make(map[ports.Collection]bool),
		FailLoad: make(map[ports.Collection]bool),
		Saves:    make(map[ports.Collection]int),
	}
}

func (s *Store) loadErr(c ports.Collection) error {
	if s.FailLoad[c] {
		return fmt.Errorf("%w: load %s", domain.ErrStoreIO, c)
	}
	return nil
}

func (s *Store) saveErr(c ports.Collection) error {
	if s.FailSave[c] {
		return fmt.Errorf("%w: save %s", domain.ErrStoreIO, c)
	}
	s.Saves[c]++
	return nil
}

func (s *Store) LoadUsers(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadErr(ports.CollectionUsers); err != nil {
		return nil, err
	}
	return append([]domain.User(nil), s.users...), nil
}

func (s *Store) SaveUsers(_ context.Context, users []domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr(ports.CollectionUsers); err != nil {
		return err
	}
	s.users = append([]domain.User(nil), users...)
	return nil
}

func (s *Store) LoadTasks(context.Context) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadErr(ports.CollectionTasks); err != nil {
		return nil, err
	}
	return append([]domain.Task(nil), s.tasks...), nil
}

func (s *Store) SaveTasks(_ context.Context, tasks []domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr(ports.CollectionTasks); err != nil {
		return err
	}
	s.tasks = append([]domain.Task(nil), tasks...)
	return nil
}

func (s *Store) LoadAudit(context.Context) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadErr(ports.CollectionAudit); err != nil {
		return nil, err
	}
	return append([]domain.AuditEntry(nil), s.audit...), nil
}

func (s *Store) SaveAudit(_ context.Context, entries []domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr(ports.CollectionAudit); err != nil {
		return err
	}
	s.audit = append([]domain.AuditEntry(nil), entries...)
	return nil
}

func (s *Store) LoadFiles(context.Context) ([]domain.FileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadErr(ports.CollectionFiles); err != nil {
		return nil, err
	}
	return append([]domain.FileMeta(nil), s.files...), nil
}

func (s *Store) SaveFiles(_ context.Context, files []domain.FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr(ports.CollectionFiles); err != nil {
		return err
	}
	s.files = append([]domain.FileMeta(nil), files...)
	return nil
}

func (s *Store) LoadMessages(context.Context) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadErr(ports.CollectionMessages); err != nil {
		return nil, err
	}
	return append([]domain.Message(nil), s.messages...), nil
}

func (s *Store) SaveMessages(_ context.Context, messages []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr(ports.CollectionMessages); err != nil {
		return err
	}
	s.messages = append([]domain.Message(nil), messages...)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
