package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/audit"
	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
	"github.com/atomm/taskpilot/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testUsers() []domain.User {
	return []domain.User{
		{Username: "carol", Role: domain.RoleAdmin},
		{Username: "mia", Role: domain.RoleManager, Team: "core"},
		{Username: "bob", Role: domain.RoleEmployee, Team: "core"},
		{Username: "dan", Role: domain.RoleEmployee, Team: "ops"},
	}
}

func testTasks() []domain.Task {
	return []domain.Task{
		{ID: 1, Title: "one", AssignedTo: "bob", Status: domain.StatusPending, Priority: domain.PriorityLow, Team: "core"},
		{ID: 2, Title: "two", AssignedTo: "bob", Status: domain.StatusInProgress, Priority: domain.PriorityHigh, Team: "core"},
		{ID: 3, Title: "three", AssignedTo: "dan", Status: domain.StatusBlocked, Priority: domain.PriorityMedium, Team: "ops"},
	}
}

func newTestSession(t *testing.T, username string, role domain.Role, users []domain.User, tasks []domain.Task) *session.Session {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	if err := st.SaveUsers(ctx, users); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	if err := st.SaveTasks(ctx, tasks); err != nil {
		t.Fatalf("seed tasks: %v", err)
	}
	return session.New("sid-"+username, username, role, st, zerolog.Nop())
}

func newTestTaskService() *TaskService {
	svc := NewTaskService(audit.NewTrail(), zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func snapshot(t *testing.T, sess *session.Session) session.Workspace {
	t.Helper()
	var out session.Workspace
	_ = sess.View(context.Background(), func(w *session.Workspace) error {
		out.Users = append(out.Users, w.Users...)
		out.Tasks = append(out.Tasks, w.Tasks...)
		out.Audit = append(out.Audit, w.Audit...)
		return nil
	})
	return out
}

type failingAppender struct{}

func (failingAppender) Append(*session.Workspace, string, string, string, string) (domain.AuditEntry, error) {
	return domain.AuditEntry{}, errors.New("audit unavailable")
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestTaskService_Create_FirstTask(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), nil)
	svc := newTestTaskService()

	task, err := svc.Create(context.Background(), sess, ports.CreateTaskInput{
		Title:       "Ship release",
		Description: "Cut the tag",
		AssignedTo:  "bob",
		Priority:    domain.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if task.ID != 1 {
		t.Fatalf("expected task_id 1, got %d", task.ID)
	}
	if task.Status != domain.StatusPending || task.CompletionDate != nil {
		t.Fatalf("expected Pending with no completion date, got %+v", task)
	}
	if task.AssignedBy != "carol" || task.Team != "core" {
		t.Fatalf("unexpected assigned_by/team: %+v", task)
	}
	if !task.CreatedDate.Equal(fixedNow) {
		t.Fatalf("unexpected created date %v", task.CreatedDate)
	}

	ws := snapshot(t, sess)
	if len(ws.Audit) != 1 || ws.Audit[0].Action != ActionTaskCreated || ws.Audit[0].User != "carol" {
		t.Fatalf("expected one Task Created entry, got %+v", ws.Audit)
	}
	if ws.Audit[0].Category != domain.CategoryTaskManagement {
		t.Fatalf("unexpected category %q", ws.Audit[0].Category)
	}
	dirty := sess.Dirty()
	if len(dirty) != 2 {
		t.Fatalf("expected tasks and audit dirty, got %v", dirty)
	}
}

func TestTaskService_Create_NextID(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), testTasks())
	task, err := newTestTaskService().Create(context.Background(), sess, ports.CreateTaskInput{
		Title: "t", Description: "d", AssignedTo: "dan",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if task.ID != 4 {
		t.Fatalf("expected id 4, got %d", task.ID)
	}
	if task.Priority != domain.PriorityMedium {
		t.Fatalf("expected default priority Medium, got %s", task.Priority)
	}
}

func TestTaskService_Create_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   ports.CreateTaskInput
	}{
		{"missing title", ports.CreateTaskInput{Description: "d", AssignedTo: "bob"}},
		{"blank description", ports.CreateTaskInput{Title: "t", Description: "  ", AssignedTo: "bob"}},
		{"missing assignee", ports.CreateTaskInput{Title: "t", Description: "d"}},
		{"bad priority", ports.CreateTaskInput{Title: "t", Description: "d", AssignedTo: "bob", Priority: "Urgent"}},
		{"unknown assignee", ports.CreateTaskInput{Title: "t", Description: "d", AssignedTo: "ghost"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), nil)
			_, err := newTestTaskService().Create(context.Background(), sess, tc.in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if ws := snapshot(t, sess); len(ws.Tasks) != 0 || len(ws.Audit) != 0 {
				t.Fatalf("expected no mutation, got %+v", ws)
			}
		})
	}
}

func TestTaskService_Create_ManagerScopedToTeam(t *testing.T) {
	svc := newTestTaskService()

	sess := newTestSession(t, "mia", domain.RoleManager, testUsers(), nil)
	task, err := svc.Create(context.Background(), sess, ports.CreateTaskInput{Title: "t", Description: "d", AssignedTo: "bob"})
	if err != nil {
		t.Fatalf("manager create in team: %v", err)
	}
	if task.Team != "core" {
		t.Fatalf("expected team core, got %q", task.Team)
	}

	_, err = svc.Create(context.Background(), sess, ports.CreateTaskInput{Title: "t", Description: "d", AssignedTo: "dan"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for other team, got %v", err)
	}
}

func TestTaskService_Create_EmployeeForbidden(t *testing.T) {
	sess := newTestSession(t, "bob", domain.RoleEmployee, testUsers(), nil)
	_, err := newTestTaskService().Create(context.Background(), sess, ports.CreateTaskInput{Title: "t", Description: "d", AssignedTo: "bob"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTaskService_Create_AuditFailureKeepsTask(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), nil)
	svc := NewTaskService(failingAppender{}, zerolog.Nop())

	if _, err := svc.Create(context.Background(), sess, ports.CreateTaskInput{Title: "t", Description: "d", AssignedTo: "bob"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	ws := snapshot(t, sess)
	if len(ws.Tasks) != 1 || len(ws.Audit) != 0 {
		t.Fatalf("expected task kept without audit, got tasks=%d audit=%d", len(ws.Tasks), len(ws.Audit))
	}
}

// ---------------------------------------------------------------------------
// UpdateStatus
// ---------------------------------------------------------------------------

func TestTaskService_UpdateStatus_CompletionDate(t *testing.T) {
	sess := newTestSession(t, "bob", domain.RoleEmployee, testUsers(), testTasks())
	svc := newTestTaskService()
	ctx := context.Background()

	task, err := svc.UpdateStatus(ctx, sess, 1, domain.StatusComplete)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if task.CompletionDate == nil || !task.CompletionDate.Equal(fixedNow) {
		t.Fatalf("expected completion date %v, got %v", fixedNow, task.CompletionDate)
	}

	task, err = svc.UpdateStatus(ctx, sess, 1, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if task.CompletionDate != nil {
		t.Fatalf("expected completion date cleared, got %v", task.CompletionDate)
	}

	ws := snapshot(t, sess)
	if len(ws.Audit) != 2 || ws.Audit[1].Details != "Task 1 -> In Progress" {
		t.Fatalf("unexpected audit: %+v", ws.Audit)
	}
}

func TestTaskService_UpdateStatus_Errors(t *testing.T) {
	svc := newTestTaskService()
	ctx := context.Background()
	sess := newTestSession(t, "bob", domain.RoleEmployee, testUsers(), testTasks())

	if _, err := svc.UpdateStatus(ctx, sess, 1, "Done"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, sess, 99, domain.StatusComplete); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, sess, 3, domain.StatusComplete); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for a task assigned elsewhere, got %v", err)
	}
	if ws := snapshot(t, sess); ws.Tasks[2].Status != domain.StatusBlocked || len(ws.Audit) != 0 {
		t.Fatalf("expected no mutation, got %+v", ws)
	}
}

// ---------------------------------------------------------------------------
// BulkComplete
// ---------------------------------------------------------------------------

func TestTaskService_BulkComplete_SkipsUnknown(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), testTasks())

	n, err := newTestTaskService().BulkComplete(context.Background(), sess, []int{1, 2, 999})
	if err != nil {
		t.Fatalf("BulkComplete returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updated, got %d", n)
	}

	ws := snapshot(t, sess)
	for _, task := range ws.Tasks[:2] {
		if task.Status != domain.StatusComplete || task.CompletionDate == nil {
			t.Fatalf("task %d not completed: %+v", task.ID, task)
		}
	}
	if len(ws.Audit) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(ws.Audit))
	}
	entry := ws.Audit[0]
	if entry.Action != ActionBulkComplete || !strings.Contains(entry.Details, "1") || !strings.Contains(entry.Details, "2") {
		t.Fatalf("unexpected audit entry %+v", entry)
	}
	if strings.Contains(entry.Details, "999") {
		t.Fatalf("audit details mention skipped id: %q", entry.Details)
	}
}

func TestTaskService_BulkComplete_NothingFound(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), testTasks())

	n, err := newTestTaskService().BulkComplete(context.Background(), sess, []int{42})
	if err != nil || n != 0 {
		t.Fatalf("expected 0, nil; got %d, %v", n, err)
	}
	if ws := snapshot(t, sess); len(ws.Audit) != 0 {
		t.Fatalf("expected no audit entry, got %+v", ws.Audit)
	}
	if len(sess.Dirty()) != 0 {
		t.Fatalf("expected nothing dirty, got %v", sess.Dirty())
	}
}

func TestTaskService_BulkComplete_SkipsInvisibleTasks(t *testing.T) {
	sess := newTestSession(t, "mia", domain.RoleManager, testUsers(), testTasks())

	n, err := newTestTaskService().BulkComplete(context.Background(), sess, []int{1, 3})
	if err != nil || n != 1 {
		t.Fatalf("expected 1, nil; got %d, %v", n, err)
	}
	ws := snapshot(t, sess)
	if ws.Tasks[0].Status != domain.StatusComplete || ws.Tasks[2].Status != domain.StatusBlocked {
		t.Fatalf("expected only the team task completed, got %+v", ws.Tasks)
	}
	if strings.Contains(ws.Audit[0].Details, "3") {
		t.Fatalf("audit details mention invisible task: %q", ws.Audit[0].Details)
	}
}

func TestTaskService_BulkComplete_AllOrNothing(t *testing.T) {
	sess := newTestSession(t, "bob", domain.RoleEmployee, testUsers(), testTasks())

	_, err := newTestTaskService().BulkComplete(context.Background(), sess, []int{1, 2})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if ws := snapshot(t, sess); ws.Tasks[0].Status != domain.StatusPending {
		t.Fatalf("expected task 1 untouched, got %+v", ws.Tasks[0])
	}
}

// ---------------------------------------------------------------------------
// Reassign
// ---------------------------------------------------------------------------

func TestTaskService_Reassign(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), testTasks())

	n, err := newTestTaskService().Reassign(context.Background(), sess, []int{1, 3}, "dan")
	if err != nil {
		t.Fatalf("Reassign returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 moved, got %d", n)
	}
	ws := snapshot(t, sess)
	if ws.Tasks[0].AssignedTo != "dan" || ws.Tasks[0].Team != "core" {
		t.Fatalf("expected assignee dan with team unchanged, got %+v", ws.Tasks[0])
	}
	if len(ws.Audit) != 1 || ws.Audit[0].Details != "Reassigned [1, 3] -> dan" {
		t.Fatalf("unexpected audit %+v", ws.Audit)
	}
}

func TestTaskService_Reassign_Errors(t *testing.T) {
	svc := newTestTaskService()
	ctx := context.Background()

	admin := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), testTasks())
	if _, err := svc.Reassign(ctx, admin, []int{1}, " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank assignee, got %v", err)
	}
	if _, err := svc.Reassign(ctx, admin, []int{1}, "ghost"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown assignee, got %v", err)
	}

	manager := newTestSession(t, "mia", domain.RoleManager, testUsers(), testTasks())
	if _, err := svc.Reassign(ctx, manager, []int{1}, "dan"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden assigning outside team, got %v", err)
	}

	employee := newTestSession(t, "bob", domain.RoleEmployee, testUsers(), testTasks())
	if _, err := svc.Reassign(ctx, employee, []int{1}, "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for employee, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Edit
// ---------------------------------------------------------------------------

func TestTaskService_Edit(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), testTasks())
	title := "renamed"
	team := "ops"
	high := domain.PriorityHigh
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	task, err := newTestTaskService().Edit(context.Background(), sess, 1, ports.EditTaskInput{
		Title: &title, Team: &team, Priority: &high, DueDate: &due,
	})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if task.Title != "renamed" || task.Team != "ops" || task.Priority != domain.PriorityHigh || task.DueDate == nil {
		t.Fatalf("unexpected task %+v", task)
	}
	ws := snapshot(t, sess)
	if len(ws.Audit) != 1 || ws.Audit[0].Details != "Task 1: title, priority, team, due_date" {
		t.Fatalf("unexpected audit %+v", ws.Audit)
	}
}

func TestTaskService_Edit_OnlyAdmin(t *testing.T) {
	title := "x"
	sess := newTestSession(t, "mia", domain.RoleManager, testUsers(), testTasks())
	_, err := newTestTaskService().Edit(context.Background(), sess, 1, ports.EditTaskInput{Title: &title})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTaskService_Edit_NoChangesNoAudit(t *testing.T) {
	sess := newTestSession(t, "carol", domain.RoleAdmin, testUsers(), testTasks())
	if _, err := newTestTaskService().Edit(context.Background(), sess, 2, ports.EditTaskInput{}); err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if len(sess.Dirty()) != 0 {
		t.Fatalf("expected nothing dirty, got %v", sess.Dirty())
	}
}

// ---------------------------------------------------------------------------
// Visible / SortTasks
// ---------------------------------------------------------------------------

func TestTaskService_VisibleByRole(t *testing.T) {
	svc := newTestTaskService()
	ctx := context.Background()

	cases := []struct {
		user string
		role domain.Role
		want []int
	}{
		{"carol", domain.RoleAdmin, []int{2, 3, 1}},
		{"mia", domain.RoleManager, []int{2, 1}},
		{"bob", domain.RoleEmployee, []int{2, 1}},
		{"dan", domain.RoleEmployee, []int{3}},
	}
	for _, tc := range cases {
		t.Run(tc.user, func(t *testing.T) {
			sess := newTestSession(t, tc.user, tc.role, testUsers(), testTasks())
			tasks, err := svc.Visible(ctx, sess)
			if err != nil {
				t.Fatalf("Visible returned error: %v", err)
			}
			if len(tasks) != len(tc.want) {
				t.Fatalf("expected %v, got %+v", tc.want, tasks)
			}
			for i, id := range tc.want {
				if tasks[i].ID != id {
					t.Fatalf("position %d: expected %d, got %d", i, id, tasks[i].ID)
				}
			}
		})
	}
}

func TestSortTasks_DueDateThenID(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 1, 0)
	tasks := []domain.Task{
		{ID: 5, Priority: domain.PriorityMedium},
		{ID: 4, Priority: domain.PriorityMedium, DueDate: &late},
		{ID: 3, Priority: domain.PriorityMedium, DueDate: &early},
		{ID: 2, Priority: domain.PriorityMedium},
	}
	SortTasks(tasks)

	want := []int{3, 4, 2, 5}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d: expected %d, got %d", i, id, tasks[i].ID)
		}
	}
}
