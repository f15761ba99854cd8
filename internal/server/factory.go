package server

import (
	"log/slog"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/config"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/providers"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/schedule"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/sinks"
)

// componentFactory assembles the pipeline collaborators with shared logging and metrics.
type componentFactory struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newComponentFactory(logger *slog.Logger, metrics *metrics.Recorder) componentFactory {
	return componentFactory{logger: logger, metrics: metrics}
}

func (f componentFactory) fetcher(cfg config.Config) providers.Fetcher {
	return providers.NewHTTPFetcher(providers.HTTPConfig{
		Timeout: cfg.FetchTimeout,
		Logger:  f.logger,
	})
}

func (f componentFactory) policy(cfg config.Config) schedule.Policy {
	p := schedule.DefaultPolicy()
	p.Interval = cfg.Schedule.Interval
	p.StartHour = cfg.Schedule.StartHour
	p.CutoffHour = cfg.Schedule.CutoffHour
	p.CutoffMinute = cfg.Schedule.CutoffMinute
	p.AlwaysActive = !cfg.Schedule.Enabled
	if cfg.Schedule.Timezone != "" {
		if loc := schedule.ResolveTimezone(cfg.Schedule.Timezone); loc != nil {
			p.Location = loc
		} else {
			logging.Warn(f.logger, "unknown schedule timezone, using local time", "timezone", cfg.Schedule.Timezone)
		}
	}
	return p
}

// secondarySinks builds the optional Redis and Kafka sinks, each behind an async queue so a
// slow broker never holds up a broadcast. A sink that cannot be built is logged and skipped.
func (f componentFactory) secondarySinks(cfg config.Config) []*sinks.Async {
	var out []*sinks.Async
	asyncCfg := sinks.AsyncConfig{Logger: f.logger, Metrics: f.metrics}

	if cfg.Redis.Addr != "" {
		r, err := sinks.NewRedis(sinks.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			MaxLen:   cfg.Redis.MaxLen,
		})
		if err != nil {
			logging.Error(f.logger, "redis sink disabled", err)
		} else {
			out = append(out, sinks.NewAsync(r, asyncCfg))
			logging.Info(f.logger, "redis sink enabled", "addr", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		k, err := sinks.NewKafka(sinks.KafkaOptions{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		if err != nil {
			logging.Error(f.logger, "kafka sink disabled", err)
		} else {
			out = append(out, sinks.NewAsync(k, asyncCfg))
			logging.Info(f.logger, "kafka sink enabled", "topic", cfg.Kafka.Topic)
		}
	}
	return out
}
