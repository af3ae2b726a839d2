package company

import "context"

type SettingsRepository interface {
	// GetByID returns the company with its decoded settings.
	GetByID(ctx context.Context, id string) (Company, error)

	// GetSettings returns only the settings; a company without overrides
	// yields the zero Settings.
	GetSettings(ctx context.Context, id string) (Settings, error)
}
