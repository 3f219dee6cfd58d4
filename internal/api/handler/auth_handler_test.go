package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/service"
	"github.com/atomm/taskpilot/internal/infrastructure/db/memory"
)

type stubAuthService struct {
	loginFn  func(ctx context.Context, username, password string) (*service.LoginResult, error)
	logoutFn func(ctx context.Context, sid string) error
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*service.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Logout(ctx context.Context, sid string) error {
	return s.logoutFn(ctx, sid)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	expires := time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)
	stub := &stubAuthService{
		loginFn: func(_ context.Context, username, password string) (*service.LoginResult, error) {
			if username != "bob" || password != "pw" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &service.LoginResult{
				Token:     "signed.jwt.token",
				ExpiresAt: expires,
				SessionID: "sid-1",
				User:      domain.User{Username: "bob", Role: domain.RoleEmployee, Team: "core"},
			}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())

	c, rec := newContext(http.MethodPost, "/auth/login", `{"username":"bob","password":"pw"}`, nil)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp loginResponse
	decodeBody(t, rec, &resp)
	if resp.Token != "signed.jwt.token" || !resp.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected token payload: %+v", resp)
	}
	if resp.User.Username != "bob" || resp.User.Role != domain.RoleEmployee || resp.User.Team != "core" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*service.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())

	c, _ := newContext(http.MethodPost, "/auth/login", `{"username":"bob","password":"wrong"}`, nil)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*service.LoginResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())

	c, _ := newContext(http.MethodPost, "/auth/login", `{"username":"bob"}`, nil)
	if err := h.Login(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())

	c, _ := newContext(http.MethodPost, "/auth/login", `{"username":`, nil)
	err := h.Login(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "bob", domain.RoleEmployee)
	var got string
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, sid string) error {
			got = sid
			return nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())

	c, rec := newContext(http.MethodPost, "/auth/logout", "", sess)
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got != sess.ID {
		t.Fatalf("expected logout of %q, got %q", sess.ID, got)
	}
}

func TestAuthHandler_Logout_FlushFailure(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "bob", domain.RoleEmployee)
	stub := &stubAuthService{
		logoutFn: func(context.Context, string) error { return domain.ErrStoreIO },
	}
	h := NewAuthHandler(stub, zerolog.Nop())

	c, _ := newContext(http.MethodPost, "/auth/logout", "", sess)
	if err := h.Logout(c); !errors.Is(err, domain.ErrStoreIO) {
		t.Fatalf("expected ErrStoreIO, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	store := memory.New()
	_ = store.SaveUsers(context.Background(), []domain.User{
		{Username: "mia", Password: "pw", Role: domain.RoleManager, Team: "core", DisplayName: "Mia R."},
	})
	sess := newLoadedSession(t, store, "mia", domain.RoleManager)
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())

	c, rec := newContext(http.MethodGet, "/v1/me", "", sess)
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp userResponse
	decodeBody(t, rec, &resp)
	if resp.Username != "mia" || resp.Team != "core" || resp.DisplayName != "Mia R." {
		t.Fatalf("unexpected user: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), `"pw"`) {
		t.Fatalf("password leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Me_BootstrapAdmin(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "admin", domain.RoleAdmin)
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())

	c, rec := newContext(http.MethodGet, "/v1/me", "", sess)
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp userResponse
	decodeBody(t, rec, &resp)
	if resp.Username != "admin" || resp.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user: %+v", resp)
	}
}
