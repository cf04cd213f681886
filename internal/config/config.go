package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Mirror
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Mirror struct {
		Dir           string
		SyncEnabled   bool
		SyncSchedule  string // Cron format: "0 * * * *" = hourly
		WatchEnabled  bool
		WatchDebounce time.Duration
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8173)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("mirror_dir", DefaultMirrorDir)
	v.SetDefault("mirror_sync_enabled", false)
	v.SetDefault("mirror_sync_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("mirror_watch_enabled", false)
	v.SetDefault("mirror_watch_debounce", "500ms")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Mirror: Mirror{
			Dir:           v.GetString("MIRROR_DIR"),
			SyncEnabled:   v.GetBool("MIRROR_SYNC_ENABLED"),
			SyncSchedule:  v.GetString("MIRROR_SYNC_SCHEDULE"),
			WatchEnabled:  v.GetBool("MIRROR_WATCH_ENABLED"),
			WatchDebounce: v.GetDuration("MIRROR_WATCH_DEBOUNCE"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
