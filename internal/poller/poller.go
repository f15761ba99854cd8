// Package poller runs one self-rescheduling fetch loop per feed.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/feeds"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/providers"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/schedule"
)

// FileWriter persists the raw body of a successful fetch.
type FileWriter interface {
	Write(file string, data []byte) error
}

// HeartbeatWriter records the outcome of every attempt.
type HeartbeatWriter interface {
	Running(file string) error
	Failed(file, message string) error
}

// Config wires a Poller.
type Config struct {
	Feed       feeds.FeedConfig
	Fetcher    providers.Fetcher
	Writer     FileWriter
	Heartbeats HeartbeatWriter
	Policy     schedule.Policy
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

// Poller fetches one feed on the active-hours schedule and overwrites its file.
type Poller struct {
	feed       feeds.FeedConfig
	fetcher    providers.Fetcher
	writer     FileWriter
	heartbeats HeartbeatWriter
	policy     schedule.Policy
	logger     *slog.Logger
	metrics    *metrics.Recorder
	now        func() time.Time

	trigger  chan struct{}
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool

	statusMu sync.RWMutex
	status   Status
}

// Status describes the recent health of the poller loop.
type Status struct {
	Feed                string    `json:"feed"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastError           string    `json:"lastError,omitempty"`
	LastAttempt         time.Time `json:"lastAttempt"`
	LastSuccess         time.Time `json:"lastSuccess"`
	NextRun             time.Time `json:"nextRun"`
}

// IsReady reports whether the poller has had a recent success and is not failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < 3
}

// New constructs a Poller.
func New(cfg Config) *Poller {
	return &Poller{
		feed:       cfg.Feed,
		fetcher:    cfg.Fetcher,
		writer:     cfg.Writer,
		heartbeats: cfg.Heartbeats,
		policy:     cfg.Policy,
		logger:     logging.Component(cfg.Logger, "poller"),
		metrics:    cfg.Metrics,
		now:        time.Now,
		trigger:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
		status:     Status{Feed: cfg.Feed.File},
	}
}

// Feed returns the feed this poller owns.
func (p *Poller) Feed() feeds.FeedConfig {
	return p.feed
}

// Start runs an immediate tick, then reschedules with a fresh timer each cycle until the
// context is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return
	}
	p.started = true
	p.startMu.Unlock()

	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.exited)
	p.logInfo("poller started")

	p.tick(ctx, false)
	for {
		delay := schedule.NextPollDelay(p.now(), p.policy)
		p.setNextRun(p.now().Add(delay))
		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()
			p.logInfo("poller stopped")
			return
		case <-p.done:
			timer.Stop()
			p.logInfo("poller stopped")
			return
		case <-p.trigger:
			timer.Stop()
			p.tick(ctx, true)
		case <-timer.C:
			p.tick(ctx, false)
		}

		// A Stop during the tick wins over the next reschedule.
		select {
		case <-p.done:
			p.logInfo("poller stopped")
			return
		default:
		}
	}
}

// TriggerNow requests an immediate fetch regardless of the active window.
// Requests made while one is pending are coalesced.
func (p *Poller) TriggerNow() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Stop halts the loop. An in-flight fetch completes and its result is still written.
func (p *Poller) Stop(ctx context.Context) error {
	_ = ctx
	p.stopOnce.Do(func() {
		close(p.done)

		p.startMu.Lock()
		defer p.startMu.Unlock()
		if !p.started {
			// Never started: no loop will close exited, and Start must stay a no-op.
			p.started = true
			close(p.exited)
		}
	})
	return nil
}

// Done is closed once the loop goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.exited
}

func (p *Poller) tick(ctx context.Context, forced bool) {
	if !forced && !p.policy.IsActive(p.now()) {
		if p.logger != nil {
			p.logger.Debug("outside active window, skipping fetch", logging.FieldFeed, p.feed.File)
		}
		return
	}
	p.fetchOnce(ctx)
}

func (p *Poller) fetchOnce(ctx context.Context) {
	// Stop must not abort a fetch that already started.
	ctx = context.WithoutCancel(ctx)

	start := p.now()
	began := time.Now()
	p.recordAttempt(start)

	body, err := p.fetcher.Fetch(ctx, p.feed.URL)
	p.metrics.RecordFetch(p.feed.File, time.Since(began), err)
	if rl, ok := providers.AsRateLimitError(err); ok {
		p.metrics.RecordRateLimit(p.feed.File, rl.RetryAfter)
	}
	if err == nil {
		err = p.writer.Write(p.feed.File, body)
	}
	p.metrics.RecordPollerCycle(p.feed.File, time.Since(began), err)

	if err != nil {
		p.logError("poller fetch failed", err, logging.FieldDurationMS, time.Since(began).Milliseconds())
		p.recordFailure(err, start)
		p.heartbeat(err)
		return
	}

	p.recordSuccess(start)
	p.heartbeat(nil)
	p.logInfo("poller wrote feed",
		"bytes", len(body),
		logging.FieldDurationMS, time.Since(began).Milliseconds(),
	)
}

func (p *Poller) heartbeat(fetchErr error) {
	if p.heartbeats == nil {
		return
	}
	var err error
	if fetchErr != nil {
		err = p.heartbeats.Failed(p.feed.File, fetchErr.Error())
	} else {
		err = p.heartbeats.Running(p.feed.File)
	}
	if err != nil {
		p.logError("heartbeat write failed", err)
	}
}

func (p *Poller) logInfo(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, append(args, logging.FieldFeed, p.feed.File)...)
	}
}

func (p *Poller) logError(msg string, err error, attrs ...any) {
	if p.logger != nil {
		p.logger.Error(msg, append(attrs, logging.FieldFeed, p.feed.File, logging.FieldURL, p.feed.URL, "error", err)...)
	}
}

func (p *Poller) recordAttempt(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastAttempt = at
}

func (p *Poller) recordSuccess(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = at
}

func (p *Poller) recordFailure(err error, at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures++
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.status.LastAttempt = at
}

func (p *Poller) setNextRun(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.NextRun = at
}

// Status returns a snapshot of the poller's recent health.
func (p *Poller) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}
