// Package csvstore is the flat-file RecordStore: one CSV file per collection
// in a data directory. Every save rewrites the whole file through a
// temporary file and a rename, so a reader sees either the old or the new
// collection.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/infrastructure/db/tabular"
)

// Store implements ports.RecordStore.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates the data directory when it does not exist yet.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", domain.ErrStoreIO, err)
	}
	return &Store{dir: dir}, nil
}

// Path is the file backing a collection.
func (s *Store) Path(c ports.Collection) string {
	return filepath.Join(s.dir, string(c)+".csv")
}

func (s *Store) LoadUsers(ctx context.Context) ([]domain.User, error) {
	t, err := s.read(ctx, ports.CollectionUsers)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeUsers(t), nil
}

func (s *Store) SaveUsers(ctx context.Context, users []domain.User) error {
	return s.write(ctx, ports.CollectionUsers, tabular.EncodeUsers(users))
}

func (s *Store) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	t, err := s.read(ctx, ports.CollectionTasks)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeTasks(t), nil
}

func (s *Store) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	return s.write(ctx, ports.CollectionTasks, tabular.EncodeTasks(tasks))
}

func (s *Store) LoadAudit(ctx context.Context) ([]domain.AuditEntry, error) {
	t, err := s.read(ctx, ports.CollectionAudit)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeAudit(t), nil
}

func (s *Store) SaveAudit(ctx context.Context, entries []domain.AuditEntry) error {
	return s.write(ctx, ports.CollectionAudit, tabular.EncodeAudit(entries))
}

func (s *Store) LoadFiles(ctx context.Context) ([]domain.FileMeta, error) {
	t, err := s.read(ctx, ports.CollectionFiles)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeFiles(t), nil
}

func (s *Store) SaveFiles(ctx context.Context, files []domain.FileMeta) error {
	return s.write(ctx, ports.CollectionFiles, tabular.EncodeFiles(files))
}

func (s *Store) LoadMessages(ctx context.Context) ([]domain.Message, error) {
	t, err := s.read(ctx, ports.CollectionMessages)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeMessages(t), nil
}

func (s *Store) SaveMessages(ctx context.Context, messages []domain.Message) error {
	return s.write(ctx, ports.CollectionMessages, tabular.EncodeMessages(messages))
}

// Ping checks that the data directory is still there.
func (s *Store) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreIO, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrStoreIO, s.dir)
	}
	return nil
}

func (s *Store) read(ctx context.Context, c ports.Collection) (tabular.Table, error) {
	if err := ctx.Err(); err != nil {
		return tabular.Table{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return tabular.Table{Header: tabular.Columns(c)}, nil
	}
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%w: open %s: %w", domain.ErrStoreIO, c, err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%w: read %s: %w", domain.ErrStoreIO, c, err)
	}
	return t, nil
}

func (s *Store) write(ctx context.Context, c ports.Collection, t tabular.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(c)
	tmp, err := os.CreateTemp(s.dir, string(c)+".csv.*.tmp")
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrStoreIO, c, err)
	}
	tmpPath := tmp.Name()

	if err := WriteCSV(tmp, t); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", domain.ErrStoreIO, c, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", domain.ErrStoreIO, c, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replace %s: %w", domain.ErrStoreIO, c, err)
	}
	return nil
}

// ReadCSV reads a header row and data rows. Rows may be shorter or longer
// than the header.
func ReadCSV(r io.Reader) (tabular.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return tabular.Table{}, err
	}
	if len(records) == 0 {
		return tabular.Table{}, nil
	}
	return tabular.Table{Header: records[0], Rows: records[1:]}, nil
}

// WriteCSV writes t with its header row. Report downloads use it too.
func WriteCSV(w io.Writer, t tabular.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
