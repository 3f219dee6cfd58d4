// Package policy is the single place that decides which tasks a user can see
// and which task mutations they may perform. Handlers and services never
// re-derive role or team checks on their own.
package policy

import (
	"fmt"

	"github.com/atomm/taskpilot/internal/core/domain"
)

// Action is a kind of task mutation.
type Action string

const (
	ActionUpdateStatus Action = "update_status"
	ActionReassign     Action = "reassign"
	ActionBulkComplete Action = "bulk_complete"
	ActionEdit         Action = "edit"
)

// Actor is the authenticated user together with the team resolved from the
// user collection.
type Actor struct {
	Username string
	Role     domain.Role
	Team     string
}

// ActorFor builds an Actor, resolving the team of username from users.
func ActorFor(users []domain.User, username string, role domain.Role) Actor {
	a := Actor{Username: username, Role: role}
	if u := domain.FindUser(users, username); u != nil {
		a.Team = u.Team
	}
	return a
}

// VisibleTasks returns the subset of tasks the actor may see:
//
//	Employee  tasks assigned to them
//	Manager   tasks of their team, nothing when they have no team
//	Admin     everything
func VisibleTasks(tasks []domain.Task, actor Actor) []domain.Task {
	visible := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if CanView(actor, t) {
			visible = append(visible, t)
		}
	}
	return visible
}

// CanView reports whether a single task is visible to the actor.
func CanView(actor Actor, t domain.Task) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleManager:
		return actor.Team != "" && t.Team == actor.Team
	case domain.RoleEmployee:
		return actor.Username != "" && t.AssignedTo == actor.Username
	default:
		return false
	}
}

// CanMutate checks a mutation of an existing task. A task the actor cannot
// see is reported as domain.ErrTaskNotFound; other denials wrap domain.ErrForbidden.
func CanMutate(actor Actor, t domain.Task, action Action) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	if !CanView(actor, t) {
		return fmt.Errorf("%w: task %d", domain.ErrTaskNotFound, t.ID)
	}
	switch actor.Role {
	case domain.RoleManager:
		if action == ActionEdit {
			return fmt.Errorf("%w: only admins can edit tasks", domain.ErrForbidden)
		}
		return nil
	case domain.RoleEmployee:
		if action != ActionUpdateStatus {
			return fmt.Errorf("%w: employees may only change task status", domain.ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", domain.ErrForbidden, actor.Role)
	}
}

// CanAssign checks that the actor may hand work to assignee. A nil assignee
// is an unknown user; only admins may assign to users outside the collection.
func CanAssign(actor Actor, assignee *domain.User) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleManager:
		if actor.Team == "" {
			return fmt.Errorf("%w: manager %s has no team", domain.ErrForbidden, actor.Username)
		}
		if assignee == nil || assignee.Team != actor.Team {
			return fmt.Errorf("%w: assignee is not a member of team %s", domain.ErrForbidden, actor.Team)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s users cannot assign tasks", domain.ErrForbidden, actor.Role)
	}
}

// CanCreate checks that the actor may create a task for assignee.
func CanCreate(actor Actor, assignee *domain.User) error {
	return CanAssign(actor, assignee)
}

// CanViewAudit reports whether an audit entry is visible to the actor. Admins
// see the whole trail, everyone else only the entries they authored.
func CanViewAudit(actor Actor, e domain.AuditEntry) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	return actor.Username != "" && e.User == actor.Username
}
