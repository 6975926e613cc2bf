package models

import "time"

// PlayerSettings represents persisted player configuration.
// It is a singleton table with only one row.
type PlayerSettings struct {
	ID           int       `json:"id" gorm:"type:integer;primaryKey;default:1;column:id"`
	TimerSeconds int       `json:"timer_seconds" gorm:"type:integer;not null;default:0;column:timer_seconds" validate:"gte=0"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// TableName overrides the GORM table name
func (PlayerSettings) TableName() string {
	return "player_settings"
}

// DefaultPlayerSettings returns settings with default values
func DefaultPlayerSettings() *PlayerSettings {
	return &PlayerSettings{
		ID:           1,
		TimerSeconds: 0,
		UpdatedAt:    time.Now().UTC(),
	}
}
