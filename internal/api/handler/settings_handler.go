package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/pkg/logger"
)

type SettingsHandler struct {
	service SettingsService
	log     zerolog.Logger
}

func NewSettingsHandler(service SettingsService, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{service: service, log: logger.Component(log, "settings_handler")}
}

// Get handles GET /v1/settings.
//
// @Summary      Dashboard preferences
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Settings
// @Router       /v1/settings [get]
func (h *SettingsHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	s, err := h.service.Get(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Put handles PUT /v1/settings. A changed display name is written to the
// caller's user record as well.
//
// @Summary      Save dashboard preferences
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      settingsRequest  true  "Preferences"
// @Success      200   {object}  settingsResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/settings [put]
func (h *SettingsHandler) Put(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	saved, changed, err := h.service.Save(ctx, sess, domain.Settings{
		Theme:              req.Theme,
		DisplayName:        req.DisplayName,
		EmailNotifications: req.EmailNotifications,
	})
	if err != nil {
		return err
	}

	res := ports.FlushResult{Persisted: true}
	if changed {
		res = flush(ctx, sess, h.log, ports.CollectionUsers, ports.CollectionAudit)
	}
	return c.JSON(http.StatusOK, settingsResponse{Settings: saved, Persisted: res.Persisted, Warning: res.Warning})
}

// Reset handles POST /v1/settings/reset.
//
// @Summary      Restore default preferences
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  settingsResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/settings/reset [post]
func (h *SettingsHandler) Reset(c echo.Context) error {
	s, err := h.service.Reset(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settingsResponse{Settings: s, Persisted: true})
}
