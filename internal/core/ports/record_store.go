package ports

import (
	"context"

	"github.com/atomm/taskpilot/internal/core/domain"
)

// Collection names one durable record collection.
type Collection string

const (
	CollectionUsers    Collection = "users"
	CollectionTasks    Collection = "tasks"
	CollectionAudit    Collection = "audit"
	CollectionFiles    Collection = "files"
	CollectionMessages Collection = "comm"
)

// AllCollections lists every collection in a stable order.
var AllCollections = []Collection{
	CollectionUsers, CollectionTasks, CollectionAudit, CollectionFiles, CollectionMessages,
}

// RecordStore persists whole collections. There are no row-level writes: every
// Save replaces the stored collection, and an implementation must never leave
// a collection half-written.
//
// A collection that was never saved loads as empty, not as an error. Any other
// failure is wrapped in domain.ErrStoreIO.
type RecordStore interface {
	LoadUsers(ctx context.Context) ([]domain.User, error)
	SaveUsers(ctx context.Context, users []domain.User) error

	LoadTasks(ctx context.Context) ([]domain.Task, error)
	SaveTasks(ctx context.Context, tasks []domain.Task) error

	LoadAudit(ctx context.Context) ([]domain.AuditEntry, error)
	SaveAudit(ctx context.Context, entries []domain.AuditEntry) error

	LoadFiles(ctx context.Context) ([]domain.FileMeta, error)
	SaveFiles(ctx context.Context, files []domain.FileMeta) error

	LoadMessages(ctx context.Context) ([]domain.Message, error)
	SaveMessages(ctx context.Context, messages []domain.Message) error

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}
