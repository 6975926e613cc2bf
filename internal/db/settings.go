package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rusel95/whitenoise/internal/models"
)

// SettingsRepository handles database operations for player settings.
// Settings is a singleton table with only one row.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the settings (creates with defaults if not exists)
func (r *SettingsRepository) Get(ctx context.Context) (*models.PlayerSettings, error) {
	var settings models.PlayerSettings
	result := r.db.WithContext(ctx).Where("id = ?", 1).First(&settings)

	if result.Error != nil {
		if errors.Is(MapGormError(result.Error), ErrNotFound) {
			defaultSettings := models.DefaultPlayerSettings()
			if err := r.db.WithContext(ctx).Create(defaultSettings).Error; err != nil {
				return nil, fmt.Errorf("failed to create default settings: %w", MapGormError(err))
			}
			return defaultSettings, nil
		}
		return nil, MapGormError(result.Error)
	}

	return &settings, nil
}

// Update updates the settings (singleton row)
func (r *SettingsRepository) Update(ctx context.Context, settings *models.PlayerSettings) error {
	settings.ID = 1
	settings.UpdatedAt = time.Now().UTC()

	// Map form so a zero TimerSeconds (timer off) is still written.
	result := r.db.WithContext(ctx).
		Model(&models.PlayerSettings{}).
		Where("id = ?", 1).
		Updates(map[string]interface{}{
			"timer_seconds": settings.TimerSeconds,
			"updated_at":    settings.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update settings: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		// First write before any read: create the singleton row.
		if err := r.db.WithContext(ctx).Create(settings).Error; err != nil {
			return fmt.Errorf("failed to create settings: %w", MapGormError(err))
		}
	}
	return nil
}
