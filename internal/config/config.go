// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort    = 8090
	defaultServerHost    = "0.0.0.0"
	defaultReadTimeout   = 15 * time.Second
	defaultWriteTimeout  = 15 * time.Second
	defaultDatabasePath  = "./data/whitenoise.db"
	defaultLogLevel      = "info"
	defaultLogPretty     = false
	defaultLibraryPath   = "./sounds"
	defaultManifestName  = "sounds.json"
	defaultSampleRate    = 44100
	defaultChannelCount  = 2
	defaultFadeStepRate  = 50
	defaultFadeIn        = 3 * time.Second
	defaultFadeOut       = 2 * time.Second
	defaultFadeReversal  = 1 * time.Second
	defaultFadeTimerOff  = 30 * time.Second
	envPrefix            = "WHITENOISE"
)

// defaultTimerPresets are the selectable sleep timer durations in minutes.
var defaultTimerPresets = []int{1, 5, 10, 15, 30, 60, 90, 120}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Library  LibraryConfig
	Audio    AudioConfig
	Fade     FadeConfig
	Timer    TimerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// LibraryConfig holds sound library configuration
type LibraryConfig struct {
	Path     string
	Manifest string
}

// AudioConfig holds audio device configuration
type AudioConfig struct {
	SampleRate   int
	ChannelCount int
}

// FadeConfig holds fade transition tuning.
// TimerExpiry is deliberately much longer than Out: the user may be asleep
// when the timer fires, so the cutoff must not be abrupt.
type FadeConfig struct {
	StepRate    int
	In          time.Duration
	Out         time.Duration
	Reversal    time.Duration
	TimerExpiry time.Duration
}

// TimerConfig holds sleep timer configuration
type TimerConfig struct {
	PresetMinutes []int
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/whitenoise")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	v.SetDefault("database.path", defaultDatabasePath)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	v.SetDefault("library.path", defaultLibraryPath)
	v.SetDefault("library.manifest", defaultManifestName)

	v.SetDefault("audio.samplerate", defaultSampleRate)
	v.SetDefault("audio.channelcount", defaultChannelCount)

	v.SetDefault("fade.steprate", defaultFadeStepRate)
	v.SetDefault("fade.in", defaultFadeIn)
	v.SetDefault("fade.out", defaultFadeOut)
	v.SetDefault("fade.reversal", defaultFadeReversal)
	v.SetDefault("fade.timerexpiry", defaultFadeTimerOff)

	v.SetDefault("timer.presetminutes", defaultTimerPresets)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d (must be > 0)", c.Audio.SampleRate)
	}
	if c.Audio.ChannelCount != 1 && c.Audio.ChannelCount != 2 {
		return fmt.Errorf("invalid channel count: %d (must be 1 or 2)", c.Audio.ChannelCount)
	}

	if c.Fade.StepRate < 1 {
		return fmt.Errorf("invalid fade step rate: %d (must be >= 1)", c.Fade.StepRate)
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"fade.in", c.Fade.In},
		{"fade.out", c.Fade.Out},
		{"fade.reversal", c.Fade.Reversal},
		{"fade.timerexpiry", c.Fade.TimerExpiry},
	} {
		if d.val < 0 {
			return fmt.Errorf("invalid %s: %v (must be >= 0)", d.name, d.val)
		}
	}

	if len(c.Timer.PresetMinutes) == 0 {
		return fmt.Errorf("timer preset list must not be empty")
	}
	for _, m := range c.Timer.PresetMinutes {
		if m <= 0 {
			return fmt.Errorf("invalid timer preset: %d minutes (must be > 0)", m)
		}
	}

	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
