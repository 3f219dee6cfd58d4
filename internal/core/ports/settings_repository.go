package ports

import (
	"context"

	"github.com/atomm/taskpilot/internal/core/domain"
)

// SettingsRepository stores the dashboard preferences document.
// Load returns domain.DefaultSettings when nothing was saved or the stored
// document cannot be read.
type SettingsRepository interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, s domain.Settings) error
}
