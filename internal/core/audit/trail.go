// Package audit appends to and reads the audit trail held in a session
// workspace. Entries are never updated or removed.
package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/identity"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
)

// Trail writes audit entries into a workspace.
type Trail struct {
	now func() time.Time
}

func NewTrail() *Trail {
	return &Trail{now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}
}

// Append allocates the next log id, stamps the entry and adds it to w.
// The caller must hold the workspace (Session.Update).
func (t *Trail) Append(w *session.Workspace, actor, action, details, category string) (domain.AuditEntry, error) {
	if strings.TrimSpace(actor) == "" || strings.TrimSpace(action) == "" {
		return domain.AuditEntry{}, fmt.Errorf("%w: audit entry needs an actor and an action", domain.ErrValidation)
	}

	ids := make([]int, len(w.Audit))
	for i, e := range w.Audit {
		ids[i] = e.ID
	}

	entry := domain.AuditEntry{
		ID:        identity.NextInt(ids),
		Timestamp: t.now(),
		User:      actor,
		Action:    action,
		Details:   details,
		Category:  category,
	}
	w.Audit = append(w.Audit, entry)
	w.Touch(ports.CollectionAudit)
	return entry, nil
}

// Recent returns up to n entries, newest first. Entries with equal timestamps
// keep their insertion order. n <= 0 returns every entry.
func Recent(entries []domain.AuditEntry, n int) []domain.AuditEntry {
	out := append([]domain.AuditEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Find returns the entry with log id id.
func Find(entries []domain.AuditEntry, id int) (domain.AuditEntry, error) {
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.AuditEntry{}, fmt.Errorf("%w: log %d", domain.ErrAuditNotFound, id)
}
