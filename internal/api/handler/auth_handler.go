package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/api/metrics"
	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/session"
	"github.com/atomm/taskpilot/pkg/logger"
)

type AuthHandler struct {
	authService AuthService
	log         zerolog.Logger
}

func NewAuthHandler(authService AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: logger.Component(log, "auth_handler")}
}

// Login authenticates a user, opens a session and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrInvalidCredentials) {
			result = "rejected"
		}
		metrics.LoginsTotal.WithLabelValues(result).Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	return c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      toUserResponse(res.User),
	})
}

// Logout saves the session's pending changes and ends it.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sid, _ := c.Get("sid").(string)
	if sid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	if err := h.authService.Logout(c.Request().Context(), sid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in user.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	resp := userResponse{Username: sess.Username, Role: sess.Role}
	err = sess.View(c.Request().Context(), func(w *session.Workspace) error {
		if u := domain.FindUser(w.Users, sess.Username); u != nil {
			resp = toUserResponse(*u)
			resp.Role = sess.Role
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
