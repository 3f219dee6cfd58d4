package domain

import "time"

// TaskStatus is the lifecycle state of a task. Any status may move to any other.
type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusComplete   TaskStatus = "Complete"
	StatusBlocked    TaskStatus = "Blocked"
)

// Statuses lists every status in display order.
var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusComplete, StatusBlocked}

// Valid reports whether s is one of the four known statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority ranks tasks for display.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Rank orders priorities High < Medium < Low; unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Task is a unit of work assigned to a user.
//
// CompletionDate is non-nil exactly when Status is Complete. Use SetStatus to
// change the status so both fields move together.
type Task struct {
	ID             int        `json:"task_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	AssignedTo     string     `json:"assigned_to"`
	AssignedBy     string     `json:"assigned_by"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	Team           string     `json:"team,omitempty"`
	CreatedDate    time.Time  `json:"created_date"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// SetStatus changes the status and keeps CompletionDate consistent with it.
func (t *Task) SetStatus(status TaskStatus, at time.Time) {
	t.Status = status
	if status == StatusComplete {
		done := at
		t.CompletionDate = &done
		return
	}
	t.CompletionDate = nil
}

// RestoreCompletion applies a stored completion date while loading. Only a
// Complete task keeps one, and a Complete task whose stored date is missing
// falls back to its created date.
func (t *Task) RestoreCompletion(stored *time.Time) {
	if t.Status != StatusComplete {
		t.CompletionDate = nil
		return
	}
	if stored != nil {
		done := *stored
		t.CompletionDate = &done
		return
	}
	done := t.CreatedDate
	t.CompletionDate = &done
}

// FindTask returns the index of the task with id, or -1.
func FindTask(tasks []Task, id int) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
