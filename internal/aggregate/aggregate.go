// Package aggregate keeps the parsed games of every feed file and broadcasts the combined
// snapshot whenever a file changes and on a fixed interval.
package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/feedstore"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/parser"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/sinks"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/store"
)

// DefaultInterval is the re-broadcast period when none is configured.
const DefaultInterval = 15 * time.Second

// ErrUnregistered is returned by Reload for a file that was never registered.
var ErrUnregistered = errors.New("feed file not registered")

// Config wires an Aggregator.
type Config struct {
	Reader  parser.Reader
	Sink    sinks.Sink
	Store   *store.MemoryStore
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Aggregator owns the AggregateState for one pipeline.
type Aggregator struct {
	reader  parser.Reader
	sink    sinks.Sink
	state   *store.MemoryStore
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	broadcastMu sync.Mutex
}

// New constructs an Aggregator. A nil Store gets a fresh one.
func New(cfg Config) *Aggregator {
	state := cfg.Store
	if state == nil {
		state = store.NewMemoryStore()
	}
	return &Aggregator{
		reader:  cfg.Reader,
		sink:    cfg.Sink,
		state:   state,
		logger:  logging.Component(cfg.Logger, "aggregate"),
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// Register fixes file's position in the broadcast order.
func (a *Aggregator) Register(file string) {
	a.state.Register(file)
}

// Reload refreshes file and broadcasts. A missing or corrupt file leaves the entry empty;
// other entries are untouched. The returned error is informational.
func (a *Aggregator) Reload(ctx context.Context, file string) error {
	err := a.Refresh(file)
	if errors.Is(err, ErrUnregistered) {
		return err
	}
	if berr := a.Broadcast(ctx); berr != nil && err == nil {
		err = berr
	}
	return err
}

// Refresh re-reads and re-parses file and replaces its entry wholesale without broadcasting.
func (a *Aggregator) Refresh(file string) error {
	if _, ok := a.state.GamesFor(file); !ok {
		return ErrUnregistered
	}

	list, err := parser.ParseFile(a.reader, file)
	switch {
	case errors.Is(err, feedstore.ErrNotFound):
		logging.Warn(a.logger, "feed file missing", logging.FieldFile, file)
	case err != nil:
		logging.Error(a.logger, "feed file parse failed", err, logging.FieldFile, file)
	}
	if err != nil {
		list = []games.Game{}
	}

	a.state.SetGames(file, list)
	a.metrics.RecordReload(file, len(list), err)
	logging.Info(a.logger, "feed file reloaded", logging.FieldFile, file, logging.FieldCount, len(list))
	return err
}

// Broadcast hands the flattened snapshot to the sink.
func (a *Aggregator) Broadcast(ctx context.Context) error {
	a.broadcastMu.Lock()
	defer a.broadcastMu.Unlock()

	msg := sinks.NewMessage(a.state.ListGames(), a.now())
	a.metrics.RecordBroadcast(len(msg.Data))
	if a.sink == nil {
		return nil
	}
	if err := a.sink.Publish(ctx, msg); err != nil {
		logging.Error(a.logger, "broadcast failed", err, logging.FieldCount, len(msg.Data))
		return err
	}
	return nil
}

// Run re-broadcasts every interval until ctx is done.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = a.Broadcast(ctx)
		}
	}
}

// Current returns every game flattened in registration order.
func (a *Aggregator) Current() []games.Game {
	return a.state.ListGames()
}

// CurrentFor returns the games parsed from one file.
func (a *Aggregator) CurrentFor(file string) ([]games.Game, bool) {
	return a.state.GamesFor(file)
}

// Files returns the registered files in broadcast order.
func (a *Aggregator) Files() []string {
	return a.state.Files()
}

// Clear drops every entry and registration.
func (a *Aggregator) Clear() {
	a.state.Clear()
}
