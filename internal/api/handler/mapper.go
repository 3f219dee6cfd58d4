package handler

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/infrastructure/db/csvstore"
	"github.com/atomm/taskpilot/internal/infrastructure/db/tabular"
)

// --- Request → Service input ---

func toCreateInput(req createTaskRequest) (ports.CreateTaskInput, error) {
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return ports.CreateTaskInput{}, err
	}
	return ports.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Priority:    domain.Priority(req.Priority),
		DueDate:     due,
	}, nil
}

func toEditInput(req editTaskRequest) (ports.EditTaskInput, error) {
	in := ports.EditTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Team:        req.Team,
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		in.Priority = &p
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			in.ClearDue = true
		} else {
			due, err := parseDueDate(*req.DueDate)
			if err != nil {
				return ports.EditTaskInput{}, err
			}
			in.DueDate = due
		}
	}
	return in, nil
}

// parseDueDate accepts a calendar date or an RFC 3339 timestamp.
func parseDueDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{tabular.DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: due_date must be YYYY-MM-DD", domain.ErrValidation)
}

// parseIDList reads "1,2,3".
func parseIDList(v string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid task id %q", domain.ErrValidation, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// --- Service result → HTTP response ---

func toTaskResponse(t domain.Task) taskResponse {
	return taskResponse{
		TaskID:         t.ID,
		Title:          t.Title,
		Description:    t.Description,
		AssignedTo:     t.AssignedTo,
		AssignedBy:     t.AssignedBy,
		DueDate:        tabular.FormatDate(t.DueDate),
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		Team:           t.Team,
		CreatedDate:    t.CreatedDate.UTC(),
		CompletionDate: t.CompletionDate,
	}
}

func toTaskResponses(tasks []domain.Task) []taskResponse {
	out := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskResponse(t)
	}
	return out
}

func toDashboardResponse(d ports.Dashboard) dashboardResponse {
	resp := dashboardResponse{
		Role:           d.Role,
		Username:       d.Username,
		Team:           d.Team,
		Counts:         d.Counts,
		TasksByMember:  d.TasksByMember,
		RecentActivity: d.RecentActivity,
		Warning:        d.Warning,
	}
	if len(d.OpenTasks) > 0 {
		resp.OpenTasks = toTaskResponses(d.OpenTasks)
	}
	return resp
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{Username: u.Username, Role: u.Role, Team: u.Team, DisplayName: u.DisplayName}
}

// writeTasksCSV renders tasks with the same columns as the tasks store.
func writeTasksCSV(w io.Writer, tasks []domain.Task) error {
	return csvstore.WriteCSV(w, tabular.EncodeTasks(tasks))
}
