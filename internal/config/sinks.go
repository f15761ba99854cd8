package config

import "strings"

// RedisConfig enables the Redis stream sink when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func loadRedis() RedisConfig {
	return RedisConfig{
		Addr:     envOrDefault(envRedisAddr, ""),
		Password: envOrDefault(envRedisPassword, ""),
		DB:       rangeEnvOrDefault(envRedisDB, 0, 0, 15),
		Stream:   envOrDefault(envRedisStream, defaultStreamName),
		MaxLen:   int64(intEnvOrDefault(envRedisMaxLen, defaultStreamMaxLen)),
	}
}

func loadKafka() KafkaConfig {
	return KafkaConfig{
		Brokers: splitList(envOrDefault(envKafkaBrokers, "")),
		Topic:   envOrDefault(envKafkaTopic, defaultKafkaTopic),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
