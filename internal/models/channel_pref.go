package models

import "time"

// ChannelPref stores the user's saved volume and selected variant for one
// sound channel. Prefs are written fire-and-forget on every change and
// read once at startup to seed the mix.
type ChannelPref struct {
	ChannelID string    `json:"channel_id" gorm:"type:text;primaryKey;column:channel_id"`
	Volume    float64   `json:"volume" gorm:"type:real;not null;default:0;column:volume" validate:"gte=0,lte=1"`
	VariantID string    `json:"variant_id" gorm:"type:text;not null;column:variant_id"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// TableName overrides the GORM table name
func (ChannelPref) TableName() string {
	return "channel_prefs"
}
