package config

// Config holds runtime configuration for the server.
type Config struct {
	Port              string
	AdminToken        string
	FetchTimeout      Duration
	BroadcastInterval Duration
	StatusInterval    Duration
	Logging           LoggingConfig
	Storage           StorageConfig
	Schedule          ScheduleConfig
	Metrics           MetricsConfig
	Redis             RedisConfig
	Kafka             KafkaConfig
}

// LoggingConfig selects the slog handler and level.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Port:              envOrDefault(envPort, defaultPort),
		AdminToken:        envOrDefault(envAdminToken, ""),
		FetchTimeout:      durationEnvOrDefault(envFetchTimeout, defaultFetchTimeout),
		BroadcastInterval: durationEnvOrDefault(envBroadcastInterval, defaultBroadcastInterval),
		StatusInterval:    durationEnvOrDefault(envStatusInterval, defaultStatusInterval),
		Logging: LoggingConfig{
			Level:  envOrDefault(envLogLevel, ""),
			Format: envOrDefault(envLogFormat, ""),
		},
		Storage:  loadStorage(),
		Schedule: loadSchedule(),
		Metrics:  loadMetrics(),
		Redis:    loadRedis(),
		Kafka:    loadKafka(),
	}
}
