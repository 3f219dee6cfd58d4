package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
)

const mimeTextCSV = "text/csv; charset=utf-8"

// ReportHandler serves the read-only views over visible tasks.
type ReportHandler struct {
	service ReportService
}

func NewReportHandler(service ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Dashboard handles GET /v1/dashboard.
//
// @Summary      Role-aware dashboard
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboardResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/dashboard [get]
func (h *ReportHandler) Dashboard(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	d, err := h.service.Dashboard(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDashboardResponse(d))
}

// Analytics handles GET /v1/analytics.
//
// @Summary      Task analytics
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.Analytics
// @Failure      401  {object}  errorResponse
// @Router       /v1/analytics [get]
func (h *ReportHandler) Analytics(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	a, err := h.service.Analytics(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// TaskReport handles GET /v1/reports/tasks.
//
// @Summary      Filtered task report
// @Tags         reports
// @Produce      json
// @Produce      text/csv
// @Security     BearerAuth
// @Param        assigned_to  query     string  false  "Assignee"
// @Param        status       query     string  false  "Status"
// @Param        format       query     string  false  "json (default) or csv"
// @Success      200          {object}  taskReportResponse
// @Failure      422          {object}  errorResponse
// @Router       /v1/reports/tasks [get]
func (h *ReportHandler) TaskReport(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	filter := ports.TaskFilter{
		AssignedTo: c.QueryParam("assigned_to"),
		Status:     domain.TaskStatus(c.QueryParam("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}

	report, err := h.service.Tasks(c.Request().Context(), sess, filter)
	if err != nil {
		return err
	}

	if c.QueryParam("format") == "csv" {
		return writeCSV(c, "task_report.csv", report.Tasks)
	}
	return c.JSON(http.StatusOK, taskReportResponse{
		Tasks:      toTaskResponses(report.Tasks),
		ByPriority: report.ByPriority,
	})
}

// Export handles GET /v1/tasks/export.
//
// @Summary      Export selected tasks as CSV
// @Tags         tasks
// @Produce      text/csv
// @Security     BearerAuth
// @Param        ids  query     string  true  "Comma separated task ids"
// @Success      200  {string}  string
// @Failure      403  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/tasks/export [get]
func (h *ReportHandler) Export(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	ids, err := parseIDList(c.QueryParam("ids"))
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: ids is required", domain.ErrValidation)
	}

	report, err := h.service.Tasks(c.Request().Context(), sess, ports.TaskFilter{IDs: ids})
	if err != nil {
		return err
	}
	return writeCSV(c, "tasks_export.csv", report.Tasks)
}

func writeCSV(c echo.Context, filename string, tasks []domain.Task) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, mimeTextCSV)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	res.WriteHeader(http.StatusOK)
	return writeTasksCSV(res, tasks)
}
