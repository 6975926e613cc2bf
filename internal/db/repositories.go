package db

// Repositories provides access to all database repositories
type Repositories struct {
	Prefs    *ChannelPrefRepository
	Settings *SettingsRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Prefs:    NewChannelPrefRepository(db),
		Settings: NewSettingsRepository(db),
	}
}
