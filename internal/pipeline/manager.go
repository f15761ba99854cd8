// Package pipeline starts and stops the pollers and file watches of one feed set as a unit
// and swaps the set atomically when the feeds config changes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/activity"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/aggregate"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/feeds"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/feedstore"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/poller"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/providers"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/schedule"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/sinks"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/watcher"
)

// State of a Manager.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// ErrClosed is returned by Apply after Close.
var ErrClosed = errors.New("pipeline closed")

// PipelineContext is everything one pipeline instance owns. Separate instances share nothing.
type PipelineContext struct {
	DataDir string
	Sink    sinks.Sink
	Feeds   []feeds.FeedConfig
}

// ActivityRecorder stores human-readable pipeline actions.
type ActivityRecorder interface {
	Record(ctx context.Context, level, message string) error
}

// Options carries the collaborators shared by every poller of a pipeline.
type Options struct {
	Fetcher    providers.Fetcher
	Heartbeats poller.HeartbeatWriter
	Policy     schedule.Policy
	Debounce   time.Duration
	Activity   ActivityRecorder
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

// Manager runs one pipeline: a poller and a file watch per feed feeding one aggregator.
type Manager struct {
	pctx  PipelineContext
	opts  Options
	files *feedstore.Store
	agg   *aggregate.Aggregator

	logger *slog.Logger

	mu      sync.Mutex
	state   State
	closed  bool
	active  []feeds.FeedConfig
	pollers []*poller.Poller
	watch   *watcher.Watcher
	cancel  context.CancelFunc
	source  *feeds.Source
}

// New prepares a stopped Manager. The data directory is created if missing.
func New(pctx PipelineContext, opts Options) (*Manager, error) {
	if pctx.DataDir == "" {
		return nil, errors.New("pipeline requires a data directory")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("pipeline requires a fetcher")
	}
	files, err := feedstore.New(pctx.DataDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	logger := logging.Component(opts.Logger, "pipeline")
	return &Manager{
		pctx:  pctx,
		opts:  opts,
		files: files,
		agg: aggregate.New(aggregate.Config{
			Reader:  files,
			Sink:    pctx.Sink,
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
		}),
		logger: logger,
		state:  StateStopped,
	}, nil
}

// Start applies the feeds the Manager was constructed with.
func (m *Manager) Start(ctx context.Context) error {
	return m.Apply(ctx, m.pctx.Feeds)
}

// Apply tears down whatever is running and starts list in its place. An invalid list is
// rejected before anything is stopped.
func (m *Manager) Apply(ctx context.Context, list []feeds.FeedConfig) error {
	if err := feeds.Validate(list); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.teardownLocked(ctx)
	if err := m.startupLocked(ctx, list); err != nil {
		m.teardownLocked(ctx)
		m.record(ctx, activity.LevelError, fmt.Sprintf("pipeline start failed: %v", err))
		return err
	}
	m.record(ctx, activity.LevelInfo, fmt.Sprintf("pipeline started with %d feeds", len(list)))
	return nil
}

// Stop halts every poller and watch and clears the aggregate. Safe to call repeatedly.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStopped {
		return
	}
	m.teardownLocked(ctx)
	m.record(ctx, activity.LevelInfo, "pipeline stopped")
}

// Close stops config hot-reload and the pipeline. Apply fails afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	src := m.source
	m.source = nil
	m.closed = true
	m.mu.Unlock()

	var err error
	if src != nil {
		err = src.Close()
	}
	m.Stop(ctx)
	return err
}

// WatchConfig applies every valid change of the feeds config file. Rejected content is
// logged and the running feed set stays in effect.
func (m *Manager) WatchConfig(src *feeds.Source) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.source != nil {
		m.mu.Unlock()
		return errors.New("pipeline already watching a config source")
	}
	m.source = src
	m.mu.Unlock()

	return src.Start(m.onConfigChange, m.onConfigReject)
}

func (m *Manager) onConfigChange(list []feeds.FeedConfig) {
	ctx := context.Background()
	err := m.Apply(ctx, list)
	m.opts.Metrics.RecordConfigReload(err)
	if err != nil {
		logging.Error(m.logger, "feeds config apply failed", err)
		return
	}
	logging.Info(m.logger, "feeds config applied", logging.FieldCount, len(list))
}

func (m *Manager) onConfigReject(err error) {
	m.opts.Metrics.RecordConfigReload(err)
	logging.Error(m.logger, "feeds config rejected, keeping previous", err)
	m.record(context.Background(), activity.LevelWarn, fmt.Sprintf("feeds config rejected: %v", err))
}

func (m *Manager) startupLocked(ctx context.Context, list []feeds.FeedConfig) error {
	w, err := watcher.New(m.pctx.DataDir, watcher.Options{Debounce: m.opts.Debounce, Logger: m.opts.Logger})
	if err != nil {
		return fmt.Errorf("watch %s: %w", m.pctx.DataDir, err)
	}
	m.watch = w

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel

	for _, f := range list {
		m.agg.Register(f.File)
	}
	for _, f := range list {
		_ = m.agg.Refresh(f.File)
	}

	pollers := make([]*poller.Poller, 0, len(list))
	for _, f := range list {
		file := f.File
		if err := w.Watch(file, func() { _ = m.agg.Reload(runCtx, file) }); err != nil {
			return fmt.Errorf("watch %s: %w", file, err)
		}
		p := poller.New(poller.Config{
			Feed:       f,
			Fetcher:    m.opts.Fetcher,
			Writer:     m.files,
			Heartbeats: m.opts.Heartbeats,
			Policy:     m.opts.Policy,
			Logger:     m.opts.Logger,
			Metrics:    m.opts.Metrics,
		})
		pollers = append(pollers, p)
	}
	m.pollers = pollers
	for _, p := range pollers {
		p.Start(runCtx)
	}

	m.active = append([]feeds.FeedConfig(nil), list...)
	m.state = StateRunning
	_ = m.agg.Broadcast(runCtx)
	logging.Info(m.logger, "pipeline started", logging.FieldCount, len(list))
	return nil
}

func (m *Manager) teardownLocked(ctx context.Context) {
	for _, p := range m.pollers {
		_ = p.Stop(ctx)
	}
	m.pollers = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.watch != nil {
		if err := m.watch.Close(); err != nil {
			logging.Warn(m.logger, "watcher close failed", "error", err)
		}
		m.watch = nil
	}
	m.agg.Clear()
	m.active = nil
	if m.state == StateRunning {
		logging.Info(m.logger, "pipeline stopped")
	}
	m.state = StateStopped
}

func (m *Manager) record(ctx context.Context, level, message string) {
	if m.opts.Activity == nil {
		return
	}
	if err := m.opts.Activity.Record(ctx, level, message); err != nil {
		logging.Warn(m.logger, "activity record failed", "error", err)
	}
}

// State reports whether the pipeline is running.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Running reports whether the pipeline is running.
func (m *Manager) Running() bool {
	return m.State() == StateRunning
}

// Feeds returns the active feed set.
func (m *Manager) Feeds() []feeds.FeedConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]feeds.FeedConfig{}, m.active...)
}

// Statuses returns the health of every running poller in feed order.
func (m *Manager) Statuses() []poller.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]poller.Status, 0, len(m.pollers))
	for _, p := range m.pollers {
		out = append(out, p.Status())
	}
	return out
}

// TriggerAll asks every poller for an immediate fetch and returns how many were asked.
func (m *Manager) TriggerAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pollers {
		p.TriggerNow()
	}
	return len(m.pollers)
}

// Current returns the combined snapshot.
func (m *Manager) Current() []games.Game {
	return m.agg.Current()
}

// CurrentFor returns the games of the feed mounted at route.
func (m *Manager) CurrentFor(route string) ([]games.Game, bool) {
	f, ok := feeds.ByRoute(m.Feeds(), route)
	if !ok {
		return nil, false
	}
	return m.agg.CurrentFor(f.File)
}

// Broadcast re-emits the current snapshot.
func (m *Manager) Broadcast(ctx context.Context) error {
	return m.agg.Broadcast(ctx)
}

// RunBroadcasts re-broadcasts every interval until ctx is done.
func (m *Manager) RunBroadcasts(ctx context.Context, interval time.Duration) {
	m.agg.Run(ctx, interval)
}

// FileStats returns the manifest entry of every active feed file that has been written.
func (m *Manager) FileStats() map[string]feedstore.FileMeta {
	man, err := m.files.Manifest()
	if err != nil {
		logging.Warn(m.logger, "manifest read failed", "error", err)
	}
	active := m.Feeds()
	out := make(map[string]feedstore.FileMeta, len(active))
	for _, f := range active {
		if meta, ok := man.Files[f.File]; ok {
			out[f.File] = meta
		}
	}
	return out
}

// Files exposes the feed store for read-only callers.
func (m *Manager) Files() *feedstore.Store {
	return m.files
}
