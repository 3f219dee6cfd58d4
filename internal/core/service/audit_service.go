package service

import (
	"context"

	"github.com/atomm/taskpilot/internal/core/audit"
	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/policy"
	"github.com/atomm/taskpilot/internal/core/session"
)

// AuditService answers audit trail queries. Admins see every entry; everyone
// else sees the entries they authored.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// Recent returns up to n visible entries, newest first. n <= 0 returns all.
func (s *AuditService) Recent(ctx context.Context, sess *session.Session, n int) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := sess.View(ctx, func(w *session.Workspace) error {
		out = audit.Recent(visibleEntries(w.Audit, sess.Actor(w)), n)
		return nil
	})
	return out, err
}

// Get returns one entry by log id.
func (s *AuditService) Get(ctx context.Context, sess *session.Session, id int) (domain.AuditEntry, error) {
	var entry domain.AuditEntry
	err := sess.View(ctx, func(w *session.Workspace) error {
		found, err := audit.Find(w.Audit, id)
		if err != nil {
			return err
		}
		if !policy.CanViewAudit(sess.Actor(w), found) {
			return domain.ErrForbidden
		}
		entry = found
		return nil
	})
	return entry, err
}

func visibleEntries(entries []domain.AuditEntry, actor policy.Actor) []domain.AuditEntry {
	out := make([]domain.AuditEntry, 0, len(entries))
	for _, e := range entries {
		if policy.CanViewAudit(actor, e) {
			out = append(out, e)
		}
	}
	return out
}
