package config

import "time"

// StorageConfig locates the feed files, heartbeats and activity log on disk.
type StorageConfig struct {
	DataDir         string
	StatusDir       string
	FeedsConfigPath string
	ActivityDBPath  string // empty disables the activity log
	ActivityMax     int
	WatchDebounce   time.Duration // zero fires on every event
}

func loadStorage() StorageConfig {
	return StorageConfig{
		DataDir:         envOrDefault(envDataDir, defaultDataDir),
		StatusDir:       envOrDefault(envStatusDir, defaultStatusDir),
		FeedsConfigPath: envOrDefault(envFeedsConfig, defaultFeedsConfig),
		ActivityDBPath:  envOrDefault(envActivityDB, defaultActivityDB),
		ActivityMax:     intEnvOrDefault(envActivityLimit, defaultActivityLimit),
		WatchDebounce:   durationEnvOrDefault(envWatchDebounce, 0),
	}
}
