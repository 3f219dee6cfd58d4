package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/session"
)

// SessionResolver finds the live session named by a token (session.Registry).
type SessionResolver interface {
	Resolve(ctx context.Context, sid string) (*session.Session, error)
}

// Auth validates the JWT, resolves its session and injects both into context
// under "username", "role", "sid" and "session".
func Auth(jwtSecret string, sessions SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sid, _ := claims["sid"].(string)
			username, _ := claims["username"].(string)
			if sid == "" || username == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing session")
			}

			sess, err := sessions.Resolve(c.Request().Context(), sid)
			if errors.Is(err, domain.ErrSessionNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
			}
			if err != nil {
				return err
			}
			if sess.Username != username {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("username", sess.Username)
			c.Set("role", sess.Role)
			c.Set("sid", sess.ID)
			c.Set("session", sess)

			return next(c)
		}
	}
}
