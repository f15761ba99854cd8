package server

import (
	"context"
	"testing"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/config"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
)

func TestPolicyFromScheduleConfig(t *testing.T) {
	f := newComponentFactory(nil, nil)
	p := f.policy(config.Config{Schedule: config.ScheduleConfig{
		Enabled:      true,
		Interval:     30 * time.Second,
		StartHour:    18,
		CutoffHour:   22,
		CutoffMinute: 30,
		Timezone:     "America/New_York",
	}})
	if p.AlwaysActive || p.Interval != 30*time.Second || p.StartHour != 18 || p.CutoffHour != 22 || p.CutoffMinute != 30 {
		t.Fatalf("unexpected policy %+v", p)
	}
	if p.Location == nil || p.Location.String() != "America/New_York" {
		t.Fatalf("expected configured timezone, got %v", p.Location)
	}

	p = f.policy(config.Config{Schedule: config.ScheduleConfig{Enabled: false, Timezone: "Not/AZone"}})
	if !p.AlwaysActive {
		t.Fatalf("expected disabled schedule to poll always")
	}
	if p.Location != time.Local {
		t.Fatalf("expected local time for unknown timezone, got %v", p.Location)
	}
}

func TestSecondarySinksSkippedWhenUnconfigured(t *testing.T) {
	f := newComponentFactory(nil, metrics.NewRecorder())
	if got := f.secondarySinks(config.Config{}); len(got) != 0 {
		t.Fatalf("expected no sinks, got %d", len(got))
	}
}

func TestSecondarySinksBuildsRedisAndKafka(t *testing.T) {
	f := newComponentFactory(nil, metrics.NewRecorder())
	got := f.secondarySinks(config.Config{
		Redis: config.RedisConfig{Addr: "127.0.0.1:1", Stream: "ticker.games", MaxLen: 10},
		Kafka: config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}, Topic: "ticker.games"},
	})
	if len(got) != 2 || got[0].Name() != "redis" || got[1].Name() != "kafka" {
		t.Fatalf("expected redis and kafka sinks, got %d", len(got))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	closeSinks(ctx, got, nil)
}

func TestFetcherUsesConfiguredTimeout(t *testing.T) {
	f := newComponentFactory(nil, nil)
	if f.fetcher(config.Config{FetchTimeout: time.Second}) == nil {
		t.Fatalf("expected fetcher")
	}
}
