package tabular

import (
	"reflect"
	"testing"
	"time"

	"github.com/atomm/taskpilot/internal/core/domain"
)

func TestTasks_RoundTrip(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 4, 2, 8, 15, 30, 0, time.UTC)
	done := time.Date(2026, 4, 3, 17, 0, 5, 0, time.UTC)

	in := []domain.Task{
		{ID: 1, Title: "Ship release", Description: "v2, final", AssignedTo: "bob", AssignedBy: "carol",
			DueDate: &due, Status: domain.StatusPending, Priority: domain.PriorityHigh, Team: "core", CreatedDate: created},
		{ID: 2, Title: "Write \"notes\"", Description: "line1\nline2", AssignedTo: "dan", AssignedBy: "carol",
			Status: domain.StatusComplete, Priority: domain.PriorityLow, CreatedDate: created, CompletionDate: &done},
	}

	out := DecodeTasks(EncodeTasks(in))
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

func TestDecodeTasks_Lenient(t *testing.T) {
	table := Table{
		Header: []string{"\ufefftask_id", "title", "status", "due_date", "created_date", "completion_date"},
		Rows: [][]string{
			{"7.0", "a", "Complete", "not a date", "2026-01-02 03:04:05", "2026-01-03"},
			{"abc", "b", "Pending", "NaT", "NaN", "2026-01-03"},
			{"3", "c"},
		},
	}

	tasks := DecodeTasks(table)
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != 7 || tasks[0].DueDate != nil || tasks[0].CompletionDate == nil {
		t.Fatalf("unexpected first task %+v", tasks[0])
	}
	if !tasks[0].CreatedDate.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected created date %v", tasks[0].CreatedDate)
	}
	if tasks[1].ID != 0 || tasks[1].CompletionDate != nil || !tasks[1].CreatedDate.IsZero() {
		t.Fatalf("unexpected second task %+v", tasks[1])
	}
	if tasks[2].ID != 3 || tasks[2].Title != "c" {
		t.Fatalf("short row not decoded: %+v", tasks[2])
	}
}

func TestDecodeTasks_CompleteWithoutCompletionDate(t *testing.T) {
	table := Table{
		Header: []string{"task_id", "status", "created_date", "completion_date"},
		Rows: [][]string{
			{"1", "Complete", "2026-01-01T00:00:00Z", ""},
			{"2", "Complete", "2026-01-05T09:30:00Z", "garbage"},
			{"3", "Complete", "", ""},
		},
	}

	tasks := DecodeTasks(table)
	for _, task := range tasks {
		if task.CompletionDate == nil {
			t.Fatalf("task %d: Complete without completion date", task.ID)
		}
		if !task.CompletionDate.Equal(task.CreatedDate) {
			t.Fatalf("task %d: completion %v, want created date %v", task.ID, task.CompletionDate, task.CreatedDate)
		}
	}
}

func TestUsers_RoleFallback(t *testing.T) {
	table := Table{
		Header: UserColumns,
		Rows: [][]string{
			{"carol", "pw", "admin", "", "Carol"},
			{"bob", "pw", "", "core", ""},
			{"", "pw", "Admin", "", ""},
		},
	}
	users := DecodeUsers(table)
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Role != domain.RoleAdmin || users[1].Role != domain.RoleEmployee {
		t.Fatalf("unexpected roles %+v", users)
	}
}

func TestAuditFilesMessages_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	entries := []domain.AuditEntry{{ID: 4, Timestamp: ts, User: "carol", Action: "Task Created", Details: "Task 1 -> bob: x", Category: domain.CategoryTaskManagement}}
	if got := DecodeAudit(EncodeAudit(entries)); !reflect.DeepEqual(entries, got) {
		t.Fatalf("audit mismatch: %+v", got)
	}

	files := []domain.FileMeta{{Filename: "a.pdf", Size: 1024, UploadedBy: "bob", Timestamp: ts}}
	if got := DecodeFiles(EncodeFiles(files)); !reflect.DeepEqual(files, got) {
		t.Fatalf("files mismatch: %+v", got)
	}

	messages := []domain.Message{{ID: 1, Timestamp: ts, User: "bob", To: domain.Broadcast, Message: "hi"}}
	if got := DecodeMessages(EncodeMessages(messages)); !reflect.DeepEqual(messages, got) {
		t.Fatalf("messages mismatch: %+v", got)
	}
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2026-03-01T10:00:00Z", "2026-03-01T10:00:00Z"},
		{"2026-03-01T12:00:00+02:00", "2026-03-01T10:00:00Z"},
		{"2026-03-01 10:00:00.123456", "2026-03-01T10:00:00Z"},
		{"2026-03-01", "2026-03-01T00:00:00Z"},
		{"NaT", ""},
		{"", ""},
		{"yesterday", ""},
	}
	for _, tc := range cases {
		got := FormatTimestamp(ParseTime(tc.in))
		if got != tc.want {
			t.Errorf("ParseTime(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
