package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/rusel95/whitenoise/internal/models"
)

// ChannelPrefRepository handles database operations for channel preferences
type ChannelPrefRepository struct {
	db *DB
}

// NewChannelPrefRepository creates a new channel preference repository
func NewChannelPrefRepository(db *DB) *ChannelPrefRepository {
	return &ChannelPrefRepository{db: db}
}

// GetAll retrieves every saved channel preference keyed by channel id
func (r *ChannelPrefRepository) GetAll(ctx context.Context) (map[string]models.ChannelPref, error) {
	var prefs []models.ChannelPref
	if err := r.db.WithContext(ctx).Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to load channel prefs: %w", MapGormError(err))
	}

	byID := make(map[string]models.ChannelPref, len(prefs))
	for _, p := range prefs {
		byID[p.ChannelID] = p
	}
	return byID, nil
}

// Get retrieves the preference for one channel
func (r *ChannelPrefRepository) Get(ctx context.Context, channelID string) (*models.ChannelPref, error) {
	var pref models.ChannelPref
	result := r.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&pref)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &pref, nil
}

// Upsert inserts or updates the preference for one channel
func (r *ChannelPrefRepository) Upsert(ctx context.Context, pref *models.ChannelPref) error {
	pref.UpdatedAt = time.Now().UTC()

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"volume", "variant_id", "updated_at"}),
		}).
		Create(pref).Error
	if err != nil {
		return fmt.Errorf("failed to upsert channel pref: %w", MapGormError(err))
	}
	return nil
}
