package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/session"
)

// Bootstrap credentials accepted only while the users collection is empty.
const (
	bootstrapUsername = "admin"
	bootstrapPassword = "admin"
)

// UserLoader reads the users collection.
type UserLoader interface {
	LoadUsers(ctx context.Context) ([]domain.User, error)
}

// SessionManager opens and closes login sessions (session.Registry).
type SessionManager interface {
	Open(ctx context.Context, username string, role domain.Role) (*session.Session, error)
	Resolve(ctx context.Context, sid string) (*session.Session, error)
	Close(ctx context.Context, sid string) error
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	SessionID string      `json:"session_id"`
	User      domain.User `json:"user"`
}

// AuthService implements login and logout.
type AuthService struct {
	users     UserLoader
	sessions  SessionManager
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAuthService(users UserLoader, sessions SessionManager, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

// Login checks the credentials against the users collection and opens a
// session. While no users exist, admin/admin signs in as Admin.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if len(users) == 0 {
		if username != bootstrapUsername || password != bootstrapPassword {
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Warn().Msg("users collection is empty, signing in with bootstrap admin")
		user = domain.User{Username: bootstrapUsername, Role: domain.RoleAdmin}
	} else {
		found := domain.FindUser(users, username)
		if found == nil || !checkPassword(found.Password, password) {
			return nil, domain.ErrInvalidCredentials
		}
		user = *found
		user.Password = ""
	}
	if user.Role == "" {
		user.Role = domain.RoleEmployee
	}

	sess, err := s.sessions.Open(ctx, user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.tokenTTL).UTC()
	token, err := s.generateToken(user, sess.ID, expiresAt)
	if err != nil {
		_ = s.sessions.Close(ctx, sess.ID)
		return nil, err
	}

	s.logger.Info().Str("user", user.Username).Str("role", string(user.Role)).Msg("login")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, SessionID: sess.ID, User: user}, nil
}

// Logout flushes whatever the session still holds and closes it. If the flush
// fails the session stays open so nothing is lost.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	sess, err := s.sessions.Resolve(ctx, sid)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := sess.FlushDirty(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.sessions.Close(ctx, sid); err != nil {
		return err
	}

	s.logger.Info().Str("user", sess.Username).Msg("logout")
	return nil
}

func (s *AuthService) generateToken(user domain.User, sid string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"username": user.Username,
		"role":     string(user.Role),
		"sid":      sid,
		"iat":      s.now().Unix(),
		"exp":      expiresAt.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// checkPassword accepts bcrypt hashes and, for seeded accounts, plain text.
func checkPassword(stored, given string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
