package service

import (
	"context"
	"math"
	"sort"

	"github.com/atomm/taskpilot/internal/core/audit"
	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/policy"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
)

const (
	recentActivityLimit = 10
	noTeamWarning       = "No team is set for your account. Ask an administrator to assign one."
)

// ReportService builds the read-only views: dashboard, analytics and task
// reports. Every view is computed over the tasks visible to the session user.
type ReportService struct{}

func NewReportService() *ReportService {
	return &ReportService{}
}

// Dashboard returns the role-aware overview.
func (s *ReportService) Dashboard(ctx context.Context, sess *session.Session) (ports.Dashboard, error) {
	var d ports.Dashboard
	err := sess.View(ctx, func(w *session.Workspace) error {
		actor := sess.Actor(w)
		visible := policy.VisibleTasks(w.Tasks, actor)

		d = ports.Dashboard{
			Role:     actor.Role,
			Username: actor.Username,
			Team:     actor.Team,
			Counts:   CountTasks(visible),
		}

		switch actor.Role {
		case domain.RoleAdmin:
			d.RecentActivity = audit.Recent(w.Audit, recentActivityLimit)
		case domain.RoleManager:
			if actor.Team == "" {
				d.Warning = noTeamWarning
				return nil
			}
			d.TasksByMember = countByMember(visible, domain.TeamMembers(w.Users, actor.Team))
		default:
			for _, t := range visible {
				if t.Status != domain.StatusComplete {
					d.OpenTasks = append(d.OpenTasks, t)
				}
			}
			SortTasks(d.OpenTasks)
		}
		return nil
	})
	return d, err
}

// Analytics returns the chart data.
func (s *ReportService) Analytics(ctx context.Context, sess *session.Session) (ports.Analytics, error) {
	var a ports.Analytics
	err := sess.View(ctx, func(w *session.Workspace) error {
		visible := policy.VisibleTasks(w.Tasks, sess.Actor(w))
		a = ports.Analytics{
			Counts:         CountTasks(visible),
			ByPriority:     CountByPriority(visible),
			ByStatus:       statusShares(visible),
			CompletionRate: completionRates(visible),
		}
		return nil
	})
	return a, err
}

// Tasks returns the visible tasks matching filter, sorted for display.
func (s *ReportService) Tasks(ctx context.Context, sess *session.Session, filter ports.TaskFilter) (ports.TaskReport, error) {
	var r ports.TaskReport
	err := sess.View(ctx, func(w *session.Workspace) error {
		visible := policy.VisibleTasks(w.Tasks, sess.Actor(w))
		r.Tasks = applyFilter(visible, filter)
		return nil
	})
	if err != nil {
		return ports.TaskReport{}, err
	}
	SortTasks(r.Tasks)
	r.ByPriority = CountByPriority(r.Tasks)
	return r, nil
}

func applyFilter(tasks []domain.Task, f ports.TaskFilter) []domain.Task {
	var ids map[int]struct{}
	if len(f.IDs) > 0 {
		ids = make(map[int]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = struct{}{}
		}
	}

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if ids != nil {
			if _, ok := ids[t.ID]; !ok {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// CountTasks computes the KPI counters.
func CountTasks(tasks []domain.Task) ports.TaskCounts {
	c := ports.TaskCounts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case domain.StatusPending:
			c.Pending++
		case domain.StatusInProgress:
			c.InProgress++
		case domain.StatusComplete:
			c.Complete++
		case domain.StatusBlocked:
			c.Blocked++
		}
	}
	return c
}

// CountByPriority always reports all three priorities, High first.
func CountByPriority(tasks []domain.Task) []ports.PriorityCount {
	counts := make(map[domain.Priority]int, len(domain.Priorities))
	for _, t := range tasks {
		counts[t.Priority]++
	}
	out := make([]ports.PriorityCount, len(domain.Priorities))
	for i, p := range domain.Priorities {
		out[i] = ports.PriorityCount{Priority: p, Count: counts[p]}
	}
	return out
}

func countByMember(tasks []domain.Task, members []string) []ports.MemberCount {
	counts := make(map[string]int, len(members))
	for _, t := range tasks {
		counts[t.AssignedTo]++
	}
	out := make([]ports.MemberCount, len(members))
	for i, m := range members {
		out[i] = ports.MemberCount{Username: m, TaskCount: counts[m]}
	}
	return out
}

func statusShares(tasks []domain.Task) []ports.StatusShare {
	counts := make(map[domain.TaskStatus]int, len(domain.Statuses))
	for _, t := range tasks {
		counts[t.Status]++
	}
	out := make([]ports.StatusShare, len(domain.Statuses))
	for i, st := range domain.Statuses {
		share := ports.StatusShare{Status: st, Count: counts[st]}
		if len(tasks) > 0 {
			share.Percent = round(float64(counts[st])/float64(len(tasks))*100, 1)
		}
		out[i] = share
	}
	return out
}

// completionRates lists every assignee with the share of their tasks that are
// complete, highest first.
func completionRates(tasks []domain.Task) []ports.CompletionRate {
	total := make(map[string]int)
	done := make(map[string]int)
	for _, t := range tasks {
		if t.AssignedTo == "" {
			continue
		}
		total[t.AssignedTo]++
		if t.Status == domain.StatusComplete {
			done[t.AssignedTo]++
		}
	}

	out := make([]ports.CompletionRate, 0, len(total))
	for user, n := range total {
		out = append(out, ports.CompletionRate{User: user, Percent: round(float64(done[user])/float64(n)*100, 2)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].User < out[j].User
	})
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
