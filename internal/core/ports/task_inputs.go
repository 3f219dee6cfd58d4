package ports

import (
	"time"

	"github.com/atomm/taskpilot/internal/core/domain"
)

// CreateTaskInput carries the fields a caller supplies for a new task.
// Everything else (id, status, dates, team) is derived by the lifecycle engine.
type CreateTaskInput struct {
	Title       string
	Description string
	AssignedTo  string
	Priority    domain.Priority // empty defaults to Medium
	DueDate     *time.Time
}

// EditTaskInput is a partial update; nil fields are left unchanged.
type EditTaskInput struct {
	Title       *string
	Description *string
	AssignedTo  *string
	Priority    *domain.Priority
	Team        *string
	DueDate     *time.Time
	ClearDue    bool
}

// TaskFilter narrows report queries. Empty fields match everything.
type TaskFilter struct {
	AssignedTo string
	Status     domain.TaskStatus
	IDs        []int
}

// FlushResult tells the caller whether the mutation reached durable storage.
type FlushResult struct {
	Persisted bool
	Warning   string
}
