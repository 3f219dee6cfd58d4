package service

import (
	"context"
	"testing"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
)

func reportTasks() []domain.Task {
	return []domain.Task{
		{ID: 1, AssignedTo: "bob", Status: domain.StatusComplete, Priority: domain.PriorityHigh, Team: "core"},
		{ID: 2, AssignedTo: "bob", Status: domain.StatusPending, Priority: domain.PriorityLow, Team: "core"},
		{ID: 3, AssignedTo: "mia", Status: domain.StatusInProgress, Priority: domain.PriorityHigh, Team: "core"},
		{ID: 4, AssignedTo: "dan", Status: domain.StatusComplete, Priority: domain.PriorityMedium, Team: "ops"},
	}
}

func TestReportService_DashboardByRole(t *testing.T) {
	svc := NewReportService()
	ctx := context.Background()

	admin := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), reportTasks())
	d, err := svc.Dashboard(ctx, admin)
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	want := ports.TaskCounts{Total: 4, Pending: 1, InProgress: 1, Complete: 2}
	if d.Counts != want {
		t.Fatalf("expected %+v, got %+v", want, d.Counts)
	}

	manager := newTestSession(t, "mia", domain.RoleManager, testUsers(), reportTasks())
	d, _ = svc.Dashboard(ctx, manager)
	if d.Counts.Total != 3 {
		t.Fatalf("expected 3 team tasks, got %d", d.Counts.Total)
	}
	if len(d.TasksByMember) != 2 || d.TasksByMember[0] != (ports.MemberCount{Username: "mia", TaskCount: 1}) ||
		d.TasksByMember[1] != (ports.MemberCount{Username: "bob", TaskCount: 2}) {
		t.Fatalf("unexpected members %+v", d.TasksByMember)
	}

	employee := newTestSession(t, "bob", domain.RoleEmployee, testUsers(), reportTasks())
	d, _ = svc.Dashboard(ctx, employee)
	if len(d.OpenTasks) != 1 || d.OpenTasks[0].ID != 2 {
		t.Fatalf("expected only open task 2, got %+v", d.OpenTasks)
	}
}

func TestReportService_DashboardManagerWithoutTeam(t *testing.T) {
	users := []domain.User{{Username: "mia", Role: domain.RoleManager}}
	sess := newTestSession(t, "mia", domain.RoleManager, users, reportTasks())

	d, err := NewReportService().Dashboard(context.Background(), sess)
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if d.Warning == "" || d.Counts.Total != 0 {
		t.Fatalf("expected warning and no tasks, got %+v", d)
	}
}

func TestReportService_Analytics(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), reportTasks())

	a, err := NewReportService().Analytics(context.Background(), sess)
	if err != nil {
		t.Fatalf("Analytics returned error: %v", err)
	}
	if a.ByPriority[0].Count != 2 || a.ByPriority[1].Count != 1 || a.ByPriority[2].Count != 1 {
		t.Fatalf("unexpected priorities %+v", a.ByPriority)
	}
	if a.ByStatus[2].Status != domain.StatusComplete || a.ByStatus[2].Percent != 50 {
		t.Fatalf("unexpected complete share %+v", a.ByStatus[2])
	}
	want := []ports.CompletionRate{{User: "dan", Percent: 100}, {User: "bob", Percent: 50}, {User: "mia", Percent: 0}}
	if len(a.CompletionRate) != len(want) {
		t.Fatalf("expected %+v, got %+v", want, a.CompletionRate)
	}
	for i := range want {
		if a.CompletionRate[i] != want[i] {
			t.Fatalf("position %d: expected %+v, got %+v", i, want[i], a.CompletionRate[i])
		}
	}
}

func TestReportService_AnalyticsEmpty(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), nil)

	a, err := NewReportService().Analytics(context.Background(), sess)
	if err != nil {
		t.Fatalf("Analytics returned error: %v", err)
	}
	for _, share := range a.ByStatus {
		if share.Percent != 0 {
			t.Fatalf("expected zero shares, got %+v", a.ByStatus)
		}
	}
	if len(a.CompletionRate) != 0 {
		t.Fatalf("expected no completion rates, got %+v", a.CompletionRate)
	}
}

func TestReportService_TasksFilter(t *testing.T) {
	svc := NewReportService()
	ctx := context.Background()
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), reportTasks())

	r, err := svc.Tasks(ctx, sess, ports.TaskFilter{AssignedTo: "bob"})
	if err != nil {
		t.Fatalf("Tasks returned error: %v", err)
	}
	if len(r.Tasks) != 2 || r.Tasks[0].ID != 1 {
		t.Fatalf("unexpected tasks %+v", r.Tasks)
	}

	r, _ = svc.Tasks(ctx, sess, ports.TaskFilter{Status: domain.StatusComplete, IDs: []int{4, 2}})
	if len(r.Tasks) != 1 || r.Tasks[0].ID != 4 {
		t.Fatalf("unexpected tasks %+v", r.Tasks)
	}

	employee := newTestSession(t, "dan", domain.RoleEmployee, testUsers(), reportTasks())
	r, _ = svc.Tasks(ctx, employee, ports.TaskFilter{IDs: []int{1, 4}})
	if len(r.Tasks) != 1 || r.Tasks[0].ID != 4 {
		t.Fatalf("expected only own task, got %+v", r.Tasks)
	}
}
