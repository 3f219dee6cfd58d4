package handler

import (
	"time"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	Username    string      `json:"username"`
	Role        domain.Role `json:"role"`
	Team        string      `json:"team,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// --- Tasks ---

type createTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	AssignedTo  string `json:"assigned_to" validate:"required"`
	Priority    string `json:"priority"    validate:"omitempty,oneof=High Medium Low"`
	DueDate     string `json:"due_date"    validate:"omitempty,datetime=2006-01-02"`
}

// editTaskRequest is a partial update; absent fields are left alone and an
// empty due_date clears it.
type editTaskRequest struct {
	Title       *string `json:"title,omitempty"       validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	Priority    *string `json:"priority,omitempty"    validate:"omitempty,oneof=High Medium Low"`
	Team        *string `json:"team,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type bulkCompleteRequest struct {
	TaskIDs []int `json:"task_ids" validate:"required,min=1"`
}

type reassignRequest struct {
	TaskIDs    []int  `json:"task_ids"    validate:"required,min=1"`
	AssignedTo string `json:"assigned_to" validate:"required"`
}

type taskResponse struct {
	TaskID         int        `json:"task_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	AssignedTo     string     `json:"assigned_to"`
	AssignedBy     string     `json:"assigned_by"`
	DueDate        string     `json:"due_date,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Team           string     `json:"team,omitempty"`
	CreatedDate    time.Time  `json:"created_date"`
	CompletionDate *time.Time `json:"completion_date"`
}

type taskListResponse struct {
	Tasks []taskResponse `json:"tasks"`
	Count int            `json:"count"`
}

type taskMutationResponse struct {
	Task      taskResponse `json:"task"`
	Persisted bool         `json:"persisted"`
	Warning   string       `json:"warning,omitempty"`
}

type bulkResponse struct {
	Updated   int    `json:"updated"`
	Persisted bool   `json:"persisted"`
	Warning   string `json:"warning,omitempty"`
}

// --- Reports ---

type dashboardResponse struct {
	Role           domain.Role         `json:"role"`
	Username       string              `json:"username"`
	Team           string              `json:"team,omitempty"`
	Counts         ports.TaskCounts    `json:"counts"`
	TasksByMember  []ports.MemberCount `json:"tasks_by_member,omitempty"`
	OpenTasks      []taskResponse      `json:"open_tasks,omitempty"`
	RecentActivity []domain.AuditEntry `json:"recent_activity,omitempty"`
	Warning        string              `json:"warning,omitempty"`
}

type taskReportResponse struct {
	Tasks      []taskResponse        `json:"tasks"`
	ByPriority []ports.PriorityCount `json:"by_priority"`
}

// --- Audit, files, messages, settings ---

type auditListResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
	Count   int                 `json:"count"`
}

type fileListResponse struct {
	Files []domain.FileMeta `json:"files"`
}

type messageRequest struct {
	To      string `json:"to"`
	Message string `json:"message" validate:"required,max=2000"`
}

type messageListResponse struct {
	Messages []domain.Message `json:"messages"`
}

type settingsRequest struct {
	Theme              string `json:"theme"               validate:"omitempty,oneof=Dark Light Auto"`
	DisplayName        string `json:"display_name"        validate:"max=100"`
	EmailNotifications bool   `json:"email_notifications"`
}

type settingsResponse struct {
	Settings  domain.Settings `json:"settings"`
	Persisted bool            `json:"persisted"`
	Warning   string          `json:"warning,omitempty"`
}
