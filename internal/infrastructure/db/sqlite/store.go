// Package sqlite is the RecordStore on a single SQLite database file. Each
// collection is a table of TEXT columns named like the CSV headers, plus a
// seq column that keeps the row order.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/infrastructure/db/tabular"
)

// Store implements ports.RecordStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and creates missing tables.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, c := range ports.AllCollections {
		cols := make([]string, 0, len(tabular.Columns(c))+1)
		cols = append(cols, "seq INTEGER PRIMARY KEY")
		for _, name := range tabular.Columns(c) {
			cols = append(cols, quote(name)+" TEXT")
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(string(c)), strings.Join(cols, ", "))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", c, err)
		}
	}
	return nil
}

func (s *Store) LoadUsers(ctx context.Context) ([]domain.User, error) {
	t, err := s.read(ctx, ports.CollectionUsers)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeUsers(t), nil
}

func (s *Store) SaveUsers(ctx context.Context, users []domain.User) error {
	return s.replace(ctx, ports.CollectionUsers, tabular.EncodeUsers(users))
}

func (s *Store) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	t, err := s.read(ctx, ports.CollectionTasks)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeTasks(t), nil
}

func (s *Store) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	return s.replace(ctx, ports.CollectionTasks, tabular.EncodeTasks(tasks))
}

func (s *Store) LoadAudit(ctx context.Context) ([]domain.AuditEntry, error) {
	t, err := s.read(ctx, ports.CollectionAudit)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeAudit(t), nil
}

func (s *Store) SaveAudit(ctx context.Context, entries []domain.AuditEntry) error {
	return s.replace(ctx, ports.CollectionAudit, tabular.EncodeAudit(entries))
}

func (s *Store) LoadFiles(ctx context.Context) ([]domain.FileMeta, error) {
	t, err := s.read(ctx, ports.CollectionFiles)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeFiles(t), nil
}

func (s *Store) SaveFiles(ctx context.Context, files []domain.FileMeta) error {
	return s.replace(ctx, ports.CollectionFiles, tabular.EncodeFiles(files))
}

func (s *Store) LoadMessages(ctx context.Context) ([]domain.Message, error) {
	t, err := s.read(ctx, ports.CollectionMessages)
	if err != nil {
		return nil, err
	}
	return tabular.DecodeMessages(t), nil
}

func (s *Store) SaveMessages(ctx context.Context, messages []domain.Message) error {
	return s.replace(ctx, ports.CollectionMessages, tabular.EncodeMessages(messages))
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreIO, err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, c ports.Collection) (tabular.Table, error) {
	header := tabular.Columns(c)
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", columnList(header), quote(string(c)))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%w: query %s: %w", domain.ErrStoreIO, c, err)
	}
	defer rows.Close()

	t := tabular.Table{Header: header}
	for rows.Next() {
		cells := make([]sql.NullString, len(header))
		dest := make([]any, len(header))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return tabular.Table{}, fmt.Errorf("%w: scan %s: %w", domain.ErrStoreIO, c, err)
		}
		row := make([]string, len(header))
		for i, cell := range cells {
			row[i] = cell.String
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return tabular.Table{}, fmt.Errorf("%w: read %s: %w", domain.ErrStoreIO, c, err)
	}
	return t, nil
}

// replace swaps the whole table contents inside one transaction.
func (s *Store) replace(ctx context.Context, c ports.Collection, t tabular.Table) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin %s: %w", domain.ErrStoreIO, c, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM "+quote(string(c))); err != nil {
		return fmt.Errorf("%w: clear %s: %w", domain.ErrStoreIO, c, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Header)+1), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (seq, %s) VALUES (%s)",
		quote(string(c)), columnList(t.Header), placeholders))
	if err != nil {
		return fmt.Errorf("%w: prepare %s: %w", domain.ErrStoreIO, c, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		args := make([]any, 0, len(row)+1)
		args = append(args, i+1)
		for _, cell := range row {
			args = append(args, cell)
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("%w: insert %s: %w", domain.ErrStoreIO, c, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %w", domain.ErrStoreIO, c, err)
	}
	return nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}
