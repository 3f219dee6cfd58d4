package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultAuditLimit = 100

type AuditHandler struct {
	service AuditService
}

func NewAuditHandler(service AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List handles GET /v1/audit.
//
// @Summary      Recent audit entries visible to the caller
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum entries, newest first (default 100)"
// @Success      200    {object}  auditListResponse
// @Failure      400    {object}  errorResponse
// @Router       /v1/audit [get]
func (h *AuditHandler) List(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	limit := defaultAuditLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	entries, err := h.service.Recent(c.Request().Context(), sess, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, auditListResponse{Entries: entries, Count: len(entries)})
}

// Get handles GET /v1/audit/:id.
//
// @Summary      One audit entry
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Log id"
// @Success      200  {object}  domain.AuditEntry
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/audit/{id} [get]
func (h *AuditHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid log id")
	}

	entry, err := h.service.Get(c.Request().Context(), sess, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}
