package handler

import (
	"context"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/service"
	"github.com/atomm/taskpilot/internal/core/session"
)

// The handlers depend on these narrow views of the core services so tests
// can substitute stubs.

type AuthService interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, sid string) error
}

type TaskService interface {
	Visible(ctx context.Context, sess *session.Session) ([]domain.Task, error)
	Create(ctx context.Context, sess *session.Session, in ports.CreateTaskInput) (*domain.Task, error)
	UpdateStatus(ctx context.Context, sess *session.Session, id int, status domain.TaskStatus) (*domain.Task, error)
	BulkComplete(ctx context.Context, sess *session.Session, ids []int) (int, error)
	Reassign(ctx context.Context, sess *session.Session, ids []int, assignee string) (int, error)
	Edit(ctx context.Context, sess *session.Session, id int, in ports.EditTaskInput) (*domain.Task, error)
}

type ReportService interface {
	Dashboard(ctx context.Context, sess *session.Session) (ports.Dashboard, error)
	Analytics(ctx context.Context, sess *session.Session) (ports.Analytics, error)
	Tasks(ctx context.Context, sess *session.Session, filter ports.TaskFilter) (ports.TaskReport, error)
}

type AuditService interface {
	Recent(ctx context.Context, sess *session.Session, n int) ([]domain.AuditEntry, error)
	Get(ctx context.Context, sess *session.Session, id int) (domain.AuditEntry, error)
}

type FileService interface {
	Track(ctx context.Context, uploadedBy, filename string, size int64) (domain.FileMeta, error)
	List(ctx context.Context, limit int) ([]domain.FileMeta, error)
}

type MessageService interface {
	Send(ctx context.Context, sender, to, text string) (domain.Message, error)
	Recent(ctx context.Context, limit int) ([]domain.Message, error)
}

type SettingsService interface {
	Get(ctx context.Context, sess *session.Session) (domain.Settings, error)
	Save(ctx context.Context, sess *session.Session, in domain.Settings) (domain.Settings, bool, error)
	Reset(ctx context.Context) (domain.Settings, error)
}
