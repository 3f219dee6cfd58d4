package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/api/metrics"
	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
	"github.com/atomm/taskpilot/pkg/logger"
)

// TaskHandler handles HTTP requests for task operations. Every mutation is
// flushed to the record store before the response is written.
type TaskHandler struct {
	service TaskService
	log     zerolog.Logger
}

func NewTaskHandler(service TaskService, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{service: service, log: logger.Component(log, "task_handler")}
}

// List handles GET /v1/tasks.
//
// @Summary      List the tasks visible to the caller
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  taskListResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	tasks, err := h.service.Visible(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, taskListResponse{Tasks: toTaskResponses(tasks), Count: len(tasks)})
}

// Create handles POST /v1/tasks.
//
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTaskRequest  true  "Task details"
// @Success      201   {object}  taskMutationResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	in, err := toCreateInput(req)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	task, err := h.service.Create(ctx, sess, in)
	if err != nil {
		return err
	}
	metrics.TasksCreatedTotal.WithLabelValues(string(task.Priority)).Inc()

	res := flush(ctx, sess, h.log, ports.CollectionTasks, ports.CollectionAudit)
	return c.JSON(http.StatusCreated, taskMutationResponse{
		Task:      toTaskResponse(*task),
		Persisted: res.Persisted,
		Warning:   res.Warning,
	})
}

// UpdateStatus handles PUT /v1/tasks/:id/status.
//
// @Summary      Change the status of a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Task id"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  taskMutationResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tasks/{id}/status [put]
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	task, err := h.service.UpdateStatus(ctx, sess, id, domain.TaskStatus(req.Status))
	if err != nil {
		return err
	}
	metrics.TaskStatusChangesTotal.WithLabelValues(string(task.Status)).Inc()

	res := flush(ctx, sess, h.log, ports.CollectionTasks, ports.CollectionAudit)
	return c.JSON(http.StatusOK, taskMutationResponse{
		Task:      toTaskResponse(*task),
		Persisted: res.Persisted,
		Warning:   res.Warning,
	})
}

// Edit handles PATCH /v1/tasks/:id.
//
// @Summary      Edit task fields
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int              true  "Task id"
// @Param        body  body      editTaskRequest  true  "Fields to change"
// @Success      200   {object}  taskMutationResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tasks/{id} [patch]
func (h *TaskHandler) Edit(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}

	var req editTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	in, err := toEditInput(req)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	task, err := h.service.Edit(ctx, sess, id, in)
	if err != nil {
		return err
	}

	res := flush(ctx, sess, h.log, ports.CollectionTasks, ports.CollectionAudit)
	return c.JSON(http.StatusOK, taskMutationResponse{
		Task:      toTaskResponse(*task),
		Persisted: res.Persisted,
		Warning:   res.Warning,
	})
}

// BulkComplete handles POST /v1/tasks/bulk/complete.
//
// @Summary      Mark several tasks complete
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      bulkCompleteRequest  true  "Task ids"
// @Success      200   {object}  bulkResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tasks/bulk/complete [post]
func (h *TaskHandler) BulkComplete(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req bulkCompleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	n, err := h.service.BulkComplete(ctx, sess, req.TaskIDs)
	if err != nil {
		return err
	}
	metrics.BulkTasksTotal.WithLabelValues("complete").Add(float64(n))

	return c.JSON(http.StatusOK, h.bulkResult(ctx, sess, n))
}

// BulkReassign handles POST /v1/tasks/bulk/reassign.
//
// @Summary      Reassign several tasks
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      reassignRequest  true  "Task ids and new assignee"
// @Success      200   {object}  bulkResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/tasks/bulk/reassign [post]
func (h *TaskHandler) BulkReassign(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req reassignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	n, err := h.service.Reassign(ctx, sess, req.TaskIDs, req.AssignedTo)
	if err != nil {
		return err
	}
	metrics.BulkTasksTotal.WithLabelValues("reassign").Add(float64(n))

	return c.JSON(http.StatusOK, h.bulkResult(ctx, sess, n))
}

// bulkResult flushes only when something changed.
func (h *TaskHandler) bulkResult(ctx context.Context, sess *session.Session, n int) bulkResponse {
	if n == 0 {
		return bulkResponse{Persisted: true}
	}
	res := flush(ctx, sess, h.log, ports.CollectionTasks, ports.CollectionAudit)
	return bulkResponse{Updated: n, Persisted: res.Persisted, Warning: res.Warning}
}

func taskID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	return id, nil
}
