package domain

import "time"

// Audit categories, one per call site family.
const (
	CategoryTaskManagement = "Task Management"
	CategorySettings       = "Settings"
)

// AuditEntry is one immutable line of the audit trail.
type AuditEntry struct {
	ID        int       `json:"log_id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Category  string    `json:"category"`
}
