package ports

import "github.com/atomm/taskpilot/internal/core/domain"

// TaskCounts are the dashboard KPIs over a set of tasks.
type TaskCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Complete   int `json:"complete"`
	Blocked    int `json:"blocked"`
}

// MemberCount is the number of tasks assigned to one team member.
type MemberCount struct {
	Username  string `json:"username"`
	TaskCount int    `json:"task_count"`
}

// Dashboard is the role-aware overview.
type Dashboard struct {
	Role           domain.Role         `json:"role"`
	Username       string              `json:"username"`
	Team           string              `json:"team,omitempty"`
	Counts         TaskCounts          `json:"counts"`
	TasksByMember  []MemberCount       `json:"tasks_by_member,omitempty"`
	OpenTasks      []domain.Task       `json:"open_tasks,omitempty"`
	RecentActivity []domain.AuditEntry `json:"recent_activity,omitempty"`
	Warning        string              `json:"warning,omitempty"`
}

// PriorityCount is a bar of the by-priority chart.
type PriorityCount struct {
	Priority domain.Priority `json:"priority"`
	Count    int             `json:"count"`
}

// StatusShare is a slice of the status distribution chart.
type StatusShare struct {
	Status  domain.TaskStatus `json:"status"`
	Count   int               `json:"count"`
	Percent float64           `json:"percent"`
}

// CompletionRate is the share of an assignee's tasks that are complete.
type CompletionRate struct {
	User    string  `json:"user"`
	Percent float64 `json:"percent"`
}

// Analytics feeds the analytics charts.
type Analytics struct {
	Counts         TaskCounts       `json:"counts"`
	ByPriority     []PriorityCount  `json:"by_priority"`
	ByStatus       []StatusShare    `json:"by_status"`
	CompletionRate []CompletionRate `json:"completion_rate"`
}

// TaskReport is a filtered task list with its priority summary.
type TaskReport struct {
	Tasks      []domain.Task   `json:"tasks"`
	ByPriority []PriorityCount `json:"by_priority"`
}
