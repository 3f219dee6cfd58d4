package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/identity"
	"github.com/atomm/taskpilot/internal/core/policy"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
)

// Audit actions written by the lifecycle engine.
const (
	ActionTaskCreated   = "Task Created"
	ActionStatusUpdated = "Status Updated"
	ActionBulkComplete  = "Bulk Complete"
	ActionBulkReassign  = "Bulk Reassign"
	ActionTaskEdited    = "Task Edited"
)

// AuditAppender abstracts the audit trail (audit.Trail).
type AuditAppender interface {
	Append(w *session.Workspace, actor, action, details, category string) (domain.AuditEntry, error)
}

// TaskService is the task lifecycle engine. Every operation validates and
// authorizes first, then mutates the session workspace inside one critical
// section, then appends to the audit trail. It never flushes; callers decide
// what to persist.
type TaskService struct {
	audit  AuditAppender
	logger zerolog.Logger
	now    func() time.Time
}

func NewTaskService(audit AuditAppender, logger zerolog.Logger) *TaskService {
	return &TaskService{
		audit:  audit,
		logger: logger.With().Str("component", "task_service").Logger(),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Visible returns the tasks the session user may see, sorted for display.
func (s *TaskService) Visible(ctx context.Context, sess *session.Session) ([]domain.Task, error) {
	var visible []domain.Task
	err := sess.View(ctx, func(w *session.Workspace) error {
		visible = policy.VisibleTasks(w.Tasks, sess.Actor(w))
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortTasks(visible)
	return visible, nil
}

// Create adds a Pending task assigned by the session user.
func (s *TaskService) Create(ctx context.Context, sess *session.Session, in ports.CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	assignedTo := strings.TrimSpace(in.AssignedTo)

	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if assignedTo == "" {
		missing = append(missing, "assigned_to")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s required", domain.ErrValidation, strings.Join(missing, ", "))
	}

	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: priority must be one of High, Medium, Low", domain.ErrValidation)
	}

	var created domain.Task
	err := sess.Update(ctx, func(w *session.Workspace) error {
		actor := sess.Actor(w)

		assignee := domain.FindUser(w.Users, assignedTo)
		if assignee == nil && len(w.Users) > 0 {
			return fmt.Errorf("%w: unknown assignee %q", domain.ErrValidation, assignedTo)
		}
		if err := policy.CanCreate(actor, assignee); err != nil {
			return err
		}

		team := actor.Team
		if actor.Role != domain.RoleManager {
			team = ""
			if assignee != nil {
				team = assignee.Team
			}
		}

		ids := make([]int, len(w.Tasks))
		for i, t := range w.Tasks {
			ids[i] = t.ID
		}

		created = domain.Task{
			ID:          identity.NextInt(ids),
			Title:       title,
			Description: description,
			AssignedTo:  assignedTo,
			AssignedBy:  actor.Username,
			DueDate:     copyTime(in.DueDate),
			Status:      domain.StatusPending,
			Priority:    priority,
			Team:        team,
			CreatedDate: s.now(),
		}
		w.Tasks = append(w.Tasks, created)
		w.Touch(ports.CollectionTasks)

		s.record(w, actor.Username, ActionTaskCreated,
			fmt.Sprintf("Task %d -> %s: %s", created.ID, created.AssignedTo, created.Title))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("task_id", created.ID).Str("assigned_to", created.AssignedTo).Str("by", created.AssignedBy).Msg("task created")
	return &created, nil
}

// UpdateStatus sets the status of one task. CompletionDate is set to now when
// the new status is Complete and cleared otherwise, in the same step.
func (s *TaskService) UpdateStatus(ctx context.Context, sess *session.Session, id int, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}

	var updated domain.Task
	err := sess.Update(ctx, func(w *session.Workspace) error {
		actor := sess.Actor(w)

		i := domain.FindTask(w.Tasks, id)
		if i < 0 {
			return fmt.Errorf("%w: task %d", domain.ErrTaskNotFound, id)
		}
		if err := policy.CanMutate(actor, w.Tasks[i], policy.ActionUpdateStatus); err != nil {
			return err
		}

		t := w.Tasks[i]
		t.SetStatus(status, s.now())
		w.Tasks[i] = t
		w.Touch(ports.CollectionTasks)
		updated = t

		s.record(w, actor.Username, ActionStatusUpdated, fmt.Sprintf("Task %d -> %s", id, status))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("task_id", id).Str("status", string(status)).Msg("task status updated")
	return &updated, nil
}

// BulkComplete marks every existing task in ids Complete. Unknown ids are
// skipped. If the session user may not complete one of the found tasks,
// nothing is changed. One audit entry lists the affected ids.
func (s *TaskService) BulkComplete(ctx context.Context, sess *session.Session, ids []int) (int, error) {
	var done []int
	err := sess.Update(ctx, func(w *session.Workspace) error {
		actor := sess.Actor(w)

		found, err := authorizeAll(w.Tasks, uniqueIDs(ids), actor, policy.ActionBulkComplete)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return nil
		}

		at := s.now()
		for _, i := range found {
			w.Tasks[i].SetStatus(domain.StatusComplete, at)
			done = append(done, w.Tasks[i].ID)
		}
		w.Touch(ports.CollectionTasks)

		s.record(w, actor.Username, ActionBulkComplete,
			fmt.Sprintf("Marked %d tasks complete: %s", len(done), formatIDs(done)))
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int("requested", len(ids)).Int("updated", len(done)).Msg("bulk complete")
	return len(done), nil
}

// Reassign hands every existing task in ids to assignee. The task team is
// left as it was.
func (s *TaskService) Reassign(ctx context.Context, sess *session.Session, ids []int, assignee string) (int, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return 0, fmt.Errorf("%w: new assignee required", domain.ErrValidation)
	}

	var moved []int
	err := sess.Update(ctx, func(w *session.Workspace) error {
		actor := sess.Actor(w)

		user := domain.FindUser(w.Users, assignee)
		if user == nil && len(w.Users) > 0 {
			return fmt.Errorf("%w: unknown assignee %q", domain.ErrValidation, assignee)
		}
		if err := policy.CanAssign(actor, user); err != nil {
			return err
		}

		found, err := authorizeAll(w.Tasks, uniqueIDs(ids), actor, policy.ActionReassign)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return nil
		}

		for _, i := range found {
			w.Tasks[i].AssignedTo = assignee
			moved = append(moved, w.Tasks[i].ID)
		}
		w.Touch(ports.CollectionTasks)

		s.record(w, actor.Username, ActionBulkReassign,
			fmt.Sprintf("Reassigned %s -> %s", formatIDs(moved), assignee))
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int("updated", len(moved)).Str("assignee", assignee).Msg("tasks reassigned")
	return len(moved), nil
}

// Edit applies a partial update to one task. Status and dates other than the
// due date are not editable here; CreatedDate never changes.
func (s *TaskService) Edit(ctx context.Context, sess *session.Session, id int, in ports.EditTaskInput) (*domain.Task, error) {
	for field, v := range map[string]*string{"title": in.Title, "description": in.Description, "assigned_to": in.AssignedTo} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return nil, fmt.Errorf("%w: %s cannot be empty", domain.ErrValidation, field)
		}
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: priority must be one of High, Medium, Low", domain.ErrValidation)
	}

	var edited domain.Task
	err := sess.Update(ctx, func(w *session.Workspace) error {
		actor := sess.Actor(w)

		i := domain.FindTask(w.Tasks, id)
		if i < 0 {
			return fmt.Errorf("%w: task %d", domain.ErrTaskNotFound, id)
		}
		if err := policy.CanMutate(actor, w.Tasks[i], policy.ActionEdit); err != nil {
			return err
		}

		t := w.Tasks[i]
		var changed []string
		if in.AssignedTo != nil {
			name := strings.TrimSpace(*in.AssignedTo)
			user := domain.FindUser(w.Users, name)
			if user == nil && len(w.Users) > 0 {
				return fmt.Errorf("%w: unknown assignee %q", domain.ErrValidation, name)
			}
			if err := policy.CanAssign(actor, user); err != nil {
				return err
			}
			t.AssignedTo = name
			changed = append(changed, "assigned_to")
		}
		if in.Title != nil {
			t.Title = strings.TrimSpace(*in.Title)
			changed = append(changed, "title")
		}
		if in.Description != nil {
			t.Description = strings.TrimSpace(*in.Description)
			changed = append(changed, "description")
		}
		if in.Priority != nil {
			t.Priority = *in.Priority
			changed = append(changed, "priority")
		}
		if in.Team != nil {
			t.Team = strings.TrimSpace(*in.Team)
			changed = append(changed, "team")
		}
		if in.ClearDue {
			t.DueDate = nil
			changed = append(changed, "due_date")
		} else if in.DueDate != nil {
			t.DueDate = copyTime(in.DueDate)
			changed = append(changed, "due_date")
		}

		edited = t
		if len(changed) == 0 {
			return nil
		}
		w.Tasks[i] = t
		w.Touch(ports.CollectionTasks)

		s.record(w, actor.Username, ActionTaskEdited,
			fmt.Sprintf("Task %d: %s", id, strings.Join(changed, ", ")))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &edited, nil
}

// record appends to the audit trail. A failure here never undoes the task
// mutation that preceded it.
func (s *TaskService) record(w *session.Workspace, actor, action, details string) {
	if _, err := s.audit.Append(w, actor, action, details, domain.CategoryTaskManagement); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to append audit entry")
	}
}

// authorizeAll returns the workspace indexes of the tasks in ids that exist
// and are visible to the actor, or the first authorization failure among them.
func authorizeAll(tasks []domain.Task, ids []int, actor policy.Actor, action policy.Action) ([]int, error) {
	found := make([]int, 0, len(ids))
	for _, id := range ids {
		i := domain.FindTask(tasks, id)
		if i < 0 {
			continue
		}
		err := policy.CanMutate(actor, tasks[i], action)
		if errors.Is(err, domain.ErrTaskNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, i)
	}
	return found, nil
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func formatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SortTasks orders tasks High before Medium before Low, then by due date with
// undated tasks last, then by id.
func SortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		switch {
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		}
		return a.ID < b.ID
	})
}
