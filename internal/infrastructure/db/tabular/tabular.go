// Package tabular maps the record collections to header-plus-rows tables.
// It is shared by the CSV and SQLite stores so both persist exactly the same
// columns.
package tabular

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/identity"
	"github.com/atomm/taskpilot/internal/core/ports"
)

const (
	TimestampLayout = time.RFC3339
	DateLayout      = "2006-01-02"
)

// Column headers per collection, in storage order.
var (
	UserColumns    = []string{"username", "password", "role", "team", "display_name"}
	TaskColumns    = []string{"task_id", "title", "description", "assigned_to", "assigned_by", "due_date", "status", "priority", "team", "created_date", "completion_date"}
	AuditColumns   = []string{"log_id", "timestamp", "user", "action", "details", "category"}
	FileColumns    = []string{"filename", "size", "uploaded_by", "timestamp"}
	MessageColumns = []string{"msg_id", "timestamp", "user", "to", "message"}
)

// Columns returns the header of a collection.
func Columns(c ports.Collection) []string {
	switch c {
	case ports.CollectionUsers:
		return UserColumns
	case ports.CollectionTasks:
		return TaskColumns
	case ports.CollectionAudit:
		return AuditColumns
	case ports.CollectionFiles:
		return FileColumns
	case ports.CollectionMessages:
		return MessageColumns
	}
	return nil
}

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// row reads cells by column name, so stored files may order or omit columns.
type row struct {
	index map[string]int
	cells []string
}

func (t Table) rows() []row {
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	out := make([]row, len(t.Rows))
	for i, cells := range t.Rows {
		out[i] = row{index: index, cells: cells}
	}
	return out
}

func (r row) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	v := strings.TrimSpace(r.cells[i])
	if isNull(v) {
		return ""
	}
	return v
}

func isNull(v string) bool {
	switch v {
	case "", "NaN", "nan", "NaT", "None", "null", "<NA>":
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func EncodeUsers(users []domain.User) Table {
	t := Table{Header: UserColumns, Rows: make([][]string, len(users))}
	for i, u := range users {
		t.Rows[i] = []string{u.Username, u.Password, string(u.Role), u.Team, u.DisplayName}
	}
	return t
}

// DecodeUsers skips rows without a username. Unknown roles become Employee.
func DecodeUsers(t Table) []domain.User {
	var users []domain.User
	for _, r := range t.rows() {
		name := r.get("username")
		if name == "" {
			continue
		}
		users = append(users, domain.User{
			Username:    name,
			Password:    r.get("password"),
			Role:        domain.ParseRole(r.get("role")),
			Team:        r.get("team"),
			DisplayName: r.get("display_name"),
		})
	}
	return users
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func EncodeTasks(tasks []domain.Task) Table {
	t := Table{Header: TaskColumns, Rows: make([][]string, len(tasks))}
	for i, task := range tasks {
		t.Rows[i] = []string{
			formatID(task.ID),
			task.Title,
			task.Description,
			task.AssignedTo,
			task.AssignedBy,
			FormatDate(task.DueDate),
			string(task.Status),
			string(task.Priority),
			task.Team,
			FormatTimestamp(&task.CreatedDate),
			FormatTimestamp(task.CompletionDate),
		}
	}
	return t
}

// DecodeTasks is lenient: a non-numeric task_id decodes as 0 and unparseable
// dates decode as absent. See domain.Task.RestoreCompletion for completion dates.
func DecodeTasks(t Table) []domain.Task {
	var tasks []domain.Task
	for _, r := range t.rows() {
		task := domain.Task{
			ID:          parseID(r.get("task_id")),
			Title:       r.get("title"),
			Description: r.get("description"),
			AssignedTo:  r.get("assigned_to"),
			AssignedBy:  r.get("assigned_by"),
			DueDate:     ParseTime(r.get("due_date")),
			Status:      domain.TaskStatus(r.get("status")),
			Priority:    domain.Priority(r.get("priority")),
			Team:        r.get("team"),
		}
		if created := ParseTime(r.get("created_date")); created != nil {
			task.CreatedDate = *created
		}
		task.RestoreCompletion(ParseTime(r.get("completion_date")))
		tasks = append(tasks, task)
	}
	return tasks
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func EncodeAudit(entries []domain.AuditEntry) Table {
	t := Table{Header: AuditColumns, Rows: make([][]string, len(entries))}
	for i, e := range entries {
		t.Rows[i] = []string{formatID(e.ID), FormatTimestamp(&e.Timestamp), e.User, e.Action, e.Details, e.Category}
	}
	return t
}

func DecodeAudit(t Table) []domain.AuditEntry {
	var entries []domain.AuditEntry
	for _, r := range t.rows() {
		e := domain.AuditEntry{
			ID:       parseID(r.get("log_id")),
			User:     r.get("user"),
			Action:   r.get("action"),
			Details:  r.get("details"),
			Category: r.get("category"),
		}
		if ts := ParseTime(r.get("timestamp")); ts != nil {
			e.Timestamp = *ts
		}
		entries = append(entries, e)
	}
	return entries
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func EncodeFiles(files []domain.FileMeta) Table {
	t := Table{Header: FileColumns, Rows: make([][]string, len(files))}
	for i, f := range files {
		t.Rows[i] = []string{f.Filename, strconv.FormatInt(f.Size, 10), f.UploadedBy, FormatTimestamp(&f.Timestamp)}
	}
	return t
}

func DecodeFiles(t Table) []domain.FileMeta {
	var files []domain.FileMeta
	for _, r := range t.rows() {
		f := domain.FileMeta{
			Filename:   r.get("filename"),
			Size:       parseSize(r.get("size")),
			UploadedBy: r.get("uploaded_by"),
		}
		if ts := ParseTime(r.get("timestamp")); ts != nil {
			f.Timestamp = *ts
		}
		files = append(files, f)
	}
	return files
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func EncodeMessages(messages []domain.Message) Table {
	t := Table{Header: MessageColumns, Rows: make([][]string, len(messages))}
	for i, m := range messages {
		t.Rows[i] = []string{formatID(m.ID), FormatTimestamp(&m.Timestamp), m.User, m.To, m.Message}
	}
	return t
}

func DecodeMessages(t Table) []domain.Message {
	var messages []domain.Message
	for _, r := range t.rows() {
		m := domain.Message{
			ID:      parseID(r.get("msg_id")),
			User:    r.get("user"),
			To:      r.get("to"),
			Message: r.get("message"),
		}
		if ts := ParseTime(r.get("timestamp")); ts != nil {
			m.Timestamp = *ts
		}
		if m.To == "" {
			m.To = domain.Broadcast
		}
		messages = append(messages, m)
	}
	return messages
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	DateLayout,
}

// ParseTime accepts RFC 3339, space separated timestamps and plain dates.
// Values without a zone are read as UTC. Anything else is absent.
func ParseTime(v string) *time.Time {
	v = strings.TrimSpace(v)
	if isNull(v) {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FormatTimestamp renders t in UTC at second precision; nil or zero is empty.
func FormatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// FormatDate renders the calendar day of t; nil is empty.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func formatID(id int) string {
	if id <= 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func parseID(v string) int {
	id, ok := identity.Parse(v)
	if !ok {
		return 0
	}
	return id
}

func parseSize(v string) int64 {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}
