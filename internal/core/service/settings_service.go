package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
)

const ActionDisplayNameUpdated = "Display Name Updated"

// SettingsService reads and writes the dashboard preferences. The display
// name also lives on the user record, which is part of the session workspace.
type SettingsService struct {
	repo   ports.SettingsRepository
	audit  AuditAppender
	logger zerolog.Logger
}

func NewSettingsService(repo ports.SettingsRepository, audit AuditAppender, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		audit:  audit,
		logger: logger.With().Str("component", "settings_service").Logger(),
	}
}

// Get returns the saved settings, with the display name taken from the user
// record when it has one.
func (s *SettingsService) Get(ctx context.Context, sess *session.Session) (domain.Settings, error) {
	settings, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings unreadable, using defaults")
		settings = domain.DefaultSettings()
	}

	err = sess.View(ctx, func(w *session.Workspace) error {
		if u := domain.FindUser(w.Users, sess.Username); u != nil && u.DisplayName != "" {
			settings.DisplayName = u.DisplayName
		}
		return nil
	})
	return settings, err
}

// Save stores the settings. It reports whether the user record changed, in
// which case the caller should flush users and audit.
func (s *SettingsService) Save(ctx context.Context, sess *session.Session, in domain.Settings) (domain.Settings, bool, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	switch in.Theme {
	case domain.ThemeDark, domain.ThemeLight, domain.ThemeAuto:
	case "":
		in.Theme = domain.ThemeDark
	default:
		return domain.Settings{}, false, fmt.Errorf("%w: theme must be one of Dark, Light, Auto", domain.ErrValidation)
	}

	if err := s.repo.Save(ctx, in); err != nil {
		return domain.Settings{}, false, err
	}

	changed := false
	err := sess.Update(ctx, func(w *session.Workspace) error {
		u := domain.FindUser(w.Users, sess.Username)
		if u == nil || in.DisplayName == "" || u.DisplayName == in.DisplayName {
			return nil
		}
		u.DisplayName = in.DisplayName
		w.Touch(ports.CollectionUsers)
		changed = true

		if _, err := s.audit.Append(w, sess.Username, ActionDisplayNameUpdated, in.DisplayName, domain.CategorySettings); err != nil {
			s.logger.Warn().Err(err).Msg("failed to append audit entry")
		}
		return nil
	})
	if err != nil {
		return domain.Settings{}, false, err
	}

	s.logger.Info().Str("user", sess.Username).Str("theme", in.Theme).Bool("display_name_changed", changed).Msg("settings saved")
	return in, changed, nil
}

// Reset restores the default settings.
func (s *SettingsService) Reset(ctx context.Context) (domain.Settings, error) {
	defaults := domain.DefaultSettings()
	if err := s.repo.Save(ctx, defaults); err != nil {
		return domain.Settings{}, err
	}
	return defaults, nil
}
