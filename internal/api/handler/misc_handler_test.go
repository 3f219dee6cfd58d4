package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
	"github.com/atomm/taskpilot/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

type stubAuditService struct {
	recentFn func(ctx context.Context, sess *session.Session, n int) ([]domain.AuditEntry, error)
	getFn    func(ctx context.Context, sess *session.Session, id int) (domain.AuditEntry, error)
}

func (s *stubAuditService) Recent(ctx context.Context, sess *session.Session, n int) ([]domain.AuditEntry, error) {
	return s.recentFn(ctx, sess, n)
}

func (s *stubAuditService) Get(ctx context.Context, sess *session.Session, id int) (domain.AuditEntry, error) {
	return s.getFn(ctx, sess, id)
}

func TestAuditHandler_List_Limit(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "bob", domain.RoleEmployee)
	var gotLimit int
	stub := &stubAuditService{
		recentFn: func(_ context.Context, _ *session.Session, n int) ([]domain.AuditEntry, error) {
			gotLimit = n
			return []domain.AuditEntry{{ID: 2, User: "bob", Action: "Status Updated"}}, nil
		},
	}
	h := NewAuditHandler(stub)

	c, rec := newContext(http.MethodGet, "/v1/audit?limit=5", "", sess)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if gotLimit != 5 {
		t.Fatalf("expected limit 5, got %d", gotLimit)
	}

	var resp auditListResponse
	decodeBody(t, rec, &resp)
	if resp.Count != 1 || resp.Entries[0].ID != 2 {
		t.Fatalf("unexpected entries: %+v", resp)
	}

	c, _ = newContext(http.MethodGet, "/v1/audit?limit=-1", "", sess)
	var he *echo.HTTPError
	if err := h.List(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %v", err)
	}
}

func TestAuditHandler_Get_Forbidden(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "bob", domain.RoleEmployee)
	stub := &stubAuditService{
		getFn: func(context.Context, *session.Session, int) (domain.AuditEntry, error) {
			return domain.AuditEntry{}, domain.ErrForbidden
		},
	}
	h := NewAuditHandler(stub)

	c, _ := newContext(http.MethodGet, "/v1/audit/1", "", sess)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

type stubFileService struct {
	trackFn func(ctx context.Context, uploadedBy, filename string, size int64) (domain.FileMeta, error)
	listFn  func(ctx context.Context, limit int) ([]domain.FileMeta, error)
}

func (s *stubFileService) Track(ctx context.Context, uploadedBy, filename string, size int64) (domain.FileMeta, error) {
	return s.trackFn(ctx, uploadedBy, filename, size)
}

func (s *stubFileService) List(ctx context.Context, limit int) ([]domain.FileMeta, error) {
	return s.listFn(ctx, limit)
}

func TestFileHandler_Upload_RecordsMetadata(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "bob", domain.RoleEmployee)
	stub := &stubFileService{
		trackFn: func(_ context.Context, by, name string, size int64) (domain.FileMeta, error) {
			if by != "bob" || name != "report.pdf" || size != 11 {
				t.Fatalf("unexpected args: %s %s %d", by, name, size)
			}
			return domain.FileMeta{Filename: name, Size: size, UploadedBy: by, Timestamp: created}, nil
		},
	}
	h := NewFileHandler(stub)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "../../report.pdf")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("hello world"))
	_ = mw.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/files", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("session", sess)

	if err := h.Upload(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestFileHandler_Upload_MissingFile(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "bob", domain.RoleEmployee)
	h := NewFileHandler(&stubFileService{})

	c, _ := newContext(http.MethodPost, "/v1/files", `{}`, sess)
	if err := h.Upload(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFileHandler_List_EmptyIsArray(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "bob", domain.RoleEmployee)
	stub := &stubFileService{
		listFn: func(_ context.Context, limit int) ([]domain.FileMeta, error) {
			if limit != 50 {
				t.Fatalf("expected limit 50, got %d", limit)
			}
			return nil, nil
		},
	}
	h := NewFileHandler(stub)

	c, rec := newContext(http.MethodGet, "/v1/files", "", sess)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Body.String(); got != "{\"files\":[]}\n" {
		t.Fatalf("unexpected body: %q", got)
	}
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type stubMessageService struct {
	sendFn   func(ctx context.Context, sender, to, text string) (domain.Message, error)
	recentFn func(ctx context.Context, limit int) ([]domain.Message, error)
}

func (s *stubMessageService) Send(ctx context.Context, sender, to, text string) (domain.Message, error) {
	return s.sendFn(ctx, sender, to, text)
}

func (s *stubMessageService) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	return s.recentFn(ctx, limit)
}

func TestMessageHandler_Send(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "mia", domain.RoleManager)
	stub := &stubMessageService{
		sendFn: func(_ context.Context, sender, to, text string) (domain.Message, error) {
			if sender != "mia" || to != "" || text != "standup at 10" {
				t.Fatalf("unexpected args: %q %q %q", sender, to, text)
			}
			return domain.Message{ID: 1, User: sender, To: domain.Broadcast, Message: text, Timestamp: created}, nil
		},
	}
	h := NewMessageHandler(stub)

	c, rec := newContext(http.MethodPost, "/v1/messages", `{"message":"standup at 10"}`, sess)
	if err := h.Send(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var msg domain.Message
	decodeBody(t, rec, &msg)
	if msg.To != domain.Broadcast || msg.ID != 1 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestMessageHandler_Send_EmptyMessage(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "mia", domain.RoleManager)
	h := NewMessageHandler(&stubMessageService{})

	c, _ := newContext(http.MethodPost, "/v1/messages", `{"to":"bob"}`, sess)
	if err := h.Send(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

type stubSettingsService struct {
	getFn   func(ctx context.Context, sess *session.Session) (domain.Settings, error)
	saveFn  func(ctx context.Context, sess *session.Session, in domain.Settings) (domain.Settings, bool, error)
	resetFn func(ctx context.Context) (domain.Settings, error)
}

func (s *stubSettingsService) Get(ctx context.Context, sess *session.Session) (domain.Settings, error) {
	return s.getFn(ctx, sess)
}

func (s *stubSettingsService) Save(ctx context.Context, sess *session.Session, in domain.Settings) (domain.Settings, bool, error) {
	return s.saveFn(ctx, sess, in)
}

func (s *stubSettingsService) Reset(ctx context.Context) (domain.Settings, error) {
	return s.resetFn(ctx)
}

func TestSettingsHandler_Put_ChangedNameFlushesUsers(t *testing.T) {
	store := memory.New()
	sess := newLoadedSession(t, store, "bob", domain.RoleEmployee)
	stub := &stubSettingsService{
		saveFn: func(_ context.Context, _ *session.Session, in domain.Settings) (domain.Settings, bool, error) {
			if in.Theme != domain.ThemeLight || in.DisplayName != "Bobby" || !in.EmailNotifications {
				t.Fatalf("unexpected settings: %+v", in)
			}
			return in, true, nil
		},
	}
	h := NewSettingsHandler(stub, zerolog.Nop())

	c, rec := newContext(http.MethodPut, "/v1/settings", `{"theme":"Light","display_name":"Bobby","email_notifications":true}`, sess)
	if err := h.Put(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp settingsResponse
	decodeBody(t, rec, &resp)
	if !resp.Persisted || resp.Settings.DisplayName != "Bobby" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if store.Saves[ports.CollectionUsers] != 1 || store.Saves[ports.CollectionAudit] != 1 {
		t.Fatalf("expected users and audit flushed, got %v", store.Saves)
	}
}

func TestSettingsHandler_Put_UnchangedSkipsFlush(t *testing.T) {
	store := memory.New()
	sess := newLoadedSession(t, store, "bob", domain.RoleEmployee)
	stub := &stubSettingsService{
		saveFn: func(_ context.Context, _ *session.Session, in domain.Settings) (domain.Settings, bool, error) {
			return in, false, nil
		},
	}
	h := NewSettingsHandler(stub, zerolog.Nop())

	c, _ := newContext(http.MethodPut, "/v1/settings", `{"theme":"Auto"}`, sess)
	if err := h.Put(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(store.Saves) != 0 {
		t.Fatalf("expected no saves, got %v", store.Saves)
	}
}

func TestSettingsHandler_Put_UnknownTheme(t *testing.T) {
	sess := newLoadedSession(t, memory.New(), "bob", domain.RoleEmployee)
	h := NewSettingsHandler(&stubSettingsService{}, zerolog.Nop())

	c, _ := newContext(http.MethodPut, "/v1/settings", `{"theme":"Neon"}`, sess)
	if err := h.Put(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name string
		deps map[string]Pinger
		want int
	}{
		{
			name: "all dependencies up",
			deps: map[string]Pinger{"record_store": stubPinger{}, "session_directory": stubPinger{}},
			want: http.StatusOK,
		},
		{
			name: "session directory down",
			deps: map[string]Pinger{"record_store": stubPinger{}, "session_directory": stubPinger{err: errors.New("connection refused")}},
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.deps)
			c, rec := newContext(http.MethodGet, "/health/ready", "", nil)
			if err := h.Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}

			var resp readinessResponse
			decodeBody(t, rec, &resp)
			if len(resp.Dependencies) != len(tt.deps) {
				t.Fatalf("expected every dependency reported, got %+v", resp.Dependencies)
			}
		})
	}
}
