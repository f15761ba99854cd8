package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/activity"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/feeds"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/heartbeat"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/hub"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
)

// eventPublisher pushes non-game events to display clients.
type eventPublisher interface {
	PublishEvent(ctx context.Context, event string, data any) error
}

type feedLister interface {
	Feeds() []feeds.FeedConfig
}

// statusPusher sends the heartbeat assessment of every active feed on an interval.
type statusPusher struct {
	pub      eventPublisher
	feeds    feedLister
	dir      string
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func newStatusPusher(pub eventPublisher, list feedLister, dir string, interval time.Duration, logger *slog.Logger) *statusPusher {
	return &statusPusher{
		pub:      pub,
		feeds:    list,
		dir:      dir,
		interval: interval,
		now:      time.Now,
		logger:   logging.Component(logger, "status"),
	}
}

// Run pushes once immediately and then every interval until ctx is done.
func (p *statusPusher) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.push(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.push(ctx)
		}
	}
}

func (p *statusPusher) push(ctx context.Context) {
	files := feeds.Files(p.feeds.Feeds())
	status := heartbeat.AssessAll(p.dir, files, p.now())
	if err := p.pub.PublishEvent(ctx, hub.EventStatusUpdate, status); err != nil && !errors.Is(err, hub.ErrStopped) {
		logging.Debug(p.logger, "status push dropped", "error", err)
	}
}

// pushActivity forwards every recorded activity entry to display clients.
func pushActivity(l *activity.Log, pub eventPublisher, logger *slog.Logger) {
	l.OnRecord(func(e activity.Entry) {
		if err := pub.PublishEvent(context.Background(), hub.EventLogUpdate, e); err != nil && !errors.Is(err, hub.ErrStopped) {
			logging.Debug(logger, "activity push dropped", "error", err)
		}
	})
}
