package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atomm/taskpilot/internal/core/session"
)

// ctxSession returns the session injected by the Auth middleware. Its
// absence means the route was registered without Auth.
func ctxSession(c echo.Context) (*session.Session, error) {
	sess, _ := c.Get("session").(*session.Session)
	if sess == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return sess, nil
}
