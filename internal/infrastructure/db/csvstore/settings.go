package csvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
)

const settingsFile = "settings.json"

// SettingsRepository keeps the dashboard preferences in settings.json next
// to the collection files.
type SettingsRepository struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewSettingsRepository(dir string, logger zerolog.Logger) *SettingsRepository {
	return &SettingsRepository{
		path:   filepath.Join(dir, settingsFile),
		logger: logger.With().Str("component", "settings_repository").Logger(),
	}
}

// Load returns the defaults when the file is missing or unreadable.
func (r *SettingsRepository) Load(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("settings unreadable, using defaults")
		return domain.DefaultSettings(), nil
	}

	s := domain.DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("settings corrupt, using defaults")
		return domain.DefaultSettings(), nil
	}
	if s.Theme == "" {
		s.Theme = domain.ThemeDark
	}
	return s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s domain.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write settings: %w", domain.ErrStoreIO, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replace settings: %w", domain.ErrStoreIO, err)
	}
	return nil
}
