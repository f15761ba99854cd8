package config

import "time"

const (
	envPort              = "PORT"
	envAdminToken        = "ADMIN_TOKEN"
	envFetchTimeout      = "FETCH_TIMEOUT"
	envBroadcastInterval = "BROADCAST_INTERVAL"
	envStatusInterval    = "STATUS_PUSH_INTERVAL"
	envLogLevel          = "LOG_LEVEL"
	envLogFormat         = "LOG_FORMAT"

	envDataDir       = "DATA_DIR"
	envStatusDir     = "STATUS_DIR"
	envFeedsConfig   = "FEEDS_CONFIG"
	envActivityDB    = "ACTIVITY_DB"
	envActivityLimit = "ACTIVITY_MAX_ENTRIES"
	envWatchDebounce = "WATCH_DEBOUNCE"

	envPollInterval     = "POLL_INTERVAL"
	envScheduleEnabled  = "SCHEDULE_ENABLED"
	envScheduleStart    = "SCHEDULE_START_HOUR"
	envScheduleCutoffH  = "SCHEDULE_CUTOFF_HOUR"
	envScheduleCutoffM  = "SCHEDULE_CUTOFF_MINUTE"
	envScheduleTimezone = "SCHEDULE_TIMEZONE"

	envMetricsPort  = "METRICS_PORT"
	envMetricsOn    = "METRICS_ENABLED"
	envOtelEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService  = "OTEL_SERVICE_NAME"
	envOtelInsecure = "OTEL_EXPORTER_OTLP_INSECURE"

	envRedisAddr     = "REDIS_ADDR"
	envRedisPassword = "REDIS_PASSWORD"
	envRedisDB       = "REDIS_DB"
	envRedisStream   = "REDIS_STREAM"
	envRedisMaxLen   = "REDIS_STREAM_MAXLEN"
	envKafkaBrokers  = "KAFKA_BROKERS"
	envKafkaTopic    = "KAFKA_TOPIC"

	defaultPort              = "4000"
	defaultFetchTimeout      = 15 * Duration(time.Second)
	defaultBroadcastInterval = 15 * Duration(time.Second)
	defaultStatusInterval    = 30 * Duration(time.Second)

	defaultDataDir       = "data"
	defaultStatusDir     = "status"
	defaultFeedsConfig   = "feeds.yaml"
	defaultActivityDB    = "status/activity.db"
	defaultActivityLimit = 100

	// Upstream scoreboards refresh roughly once a minute during games.
	defaultPollInterval = Duration(time.Minute)
	defaultStartHour    = 17
	defaultCutoffHour   = 23
	defaultCutoffMinute = 59
	defaultMetricsPort  = "9090"
	defaultServiceName  = "scoreboard-feed-service"
	defaultStreamName   = "ticker.games"
	defaultStreamMaxLen = 1000
	defaultKafkaTopic   = "ticker.games"
)
