package metrics

import (
	"sync"
	"time"
)

type feedStats struct {
	fetches          int
	fetchErrors      int
	rateLimitHits    int
	lastRetryAfter   time.Duration
	lastFetchLatency time.Duration
	reloads          int
	parseErrors      int
	lastGames        int
}

type pipelineStats struct {
	broadcasts     int
	lastBroadcast  int
	subscribers    int
	sinkErrors     int
	configApplied  int
	configRejected int
}

// Recorder captures lightweight, in-memory metrics about the feed pipeline and mirrors
// them to OpenTelemetry instruments when configured. A nil Recorder is a no-op.
type Recorder struct {
	mu       sync.Mutex
	feeds    map[string]*feedStats
	pipeline pipelineStats
	otel     *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		feeds: make(map[string]*feedStats),
		otel:  otel,
	}
}

// RecordFetch counts one upstream request for a feed and stores its latency.
func (r *Recorder) RecordFetch(feed string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.withFeed(feed, func(s *feedStats) {
		s.fetches++
		s.lastFetchLatency = duration
		if err != nil {
			s.fetchErrors++
		}
	})
	if r.otel != nil {
		r.otel.recordFetch(feed, duration, err)
	}
}

// RecordRateLimit tracks that a feed response hit a rate limit and stores the last Retry-After.
func (r *Recorder) RecordRateLimit(feed string, retryAfter time.Duration) {
	if r == nil {
		return
	}

	r.withFeed(feed, func(s *feedStats) {
		s.rateLimitHits++
		if retryAfter > 0 {
			s.lastRetryAfter = retryAfter
		}
	})
	if r.otel != nil {
		r.otel.recordRateLimit(feed, retryAfter)
	}
}

// RecordReload tracks one re-parse of a feed file and the games it produced.
func (r *Recorder) RecordReload(feed string, games int, err error) {
	if r == nil {
		return
	}

	r.withFeed(feed, func(s *feedStats) {
		s.reloads++
		s.lastGames = games
		if err != nil {
			s.parseErrors++
		}
	})
	if r.otel != nil {
		r.otel.recordReload(feed, err)
	}
}

// RecordBroadcast tracks one snapshot emitted to subscribers.
func (r *Recorder) RecordBroadcast(games int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.pipeline.broadcasts++
	r.pipeline.lastBroadcast = games
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordBroadcast(games)
	}
}

// RecordSubscribers adjusts the connected subscriber gauge by delta.
func (r *Recorder) RecordSubscribers(delta int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.pipeline.subscribers += delta
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordSubscribers(delta)
	}
}

// RecordSinkError counts a failed publish to a secondary sink.
func (r *Recorder) RecordSinkError(sink string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.pipeline.sinkErrors++
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordSinkError(sink)
	}
}

// RecordConfigReload counts accepted and rejected feed configurations.
func (r *Recorder) RecordConfigReload(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if err != nil {
		r.pipeline.configRejected++
	} else {
		r.pipeline.configApplied++
	}
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordConfigReload(err)
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// RecordPollerCycle tracks one full poller tick for a feed.
func (r *Recorder) RecordPollerCycle(feed string, duration time.Duration, err error) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordPoller(feed, duration, err)
}

// Snapshot returns a copy of the current stats for one feed.
type Snapshot struct {
	Fetches          int
	FetchErrors      int
	RateLimitHits    int
	LastRetryAfter   time.Duration
	LastFetchLatency time.Duration
	Reloads          int
	ParseErrors      int
	LastGames        int
}

func (r *Recorder) Snapshot(feed string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.feeds[feed]
	if !ok || s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Fetches:          s.fetches,
		FetchErrors:      s.fetchErrors,
		RateLimitHits:    s.rateLimitHits,
		LastRetryAfter:   s.lastRetryAfter,
		LastFetchLatency: s.lastFetchLatency,
		Reloads:          s.reloads,
		ParseErrors:      s.parseErrors,
		LastGames:        s.lastGames,
	}
}

// PipelineSnapshot is a copy of the process-wide counters.
type PipelineSnapshot struct {
	Broadcasts     int `json:"broadcasts"`
	LastBroadcast  int `json:"lastBroadcastGames"`
	Subscribers    int `json:"subscribers"`
	SinkErrors     int `json:"sinkErrors"`
	ConfigApplied  int `json:"configApplied"`
	ConfigRejected int `json:"configRejected"`
}

func (r *Recorder) Pipeline() PipelineSnapshot {
	if r == nil {
		return PipelineSnapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pipeline
	return PipelineSnapshot{
		Broadcasts:     p.broadcasts,
		LastBroadcast:  p.lastBroadcast,
		Subscribers:    p.subscribers,
		SinkErrors:     p.sinkErrors,
		ConfigApplied:  p.configApplied,
		ConfigRejected: p.configRejected,
	}
}

func (r *Recorder) withFeed(feed string, fn func(*feedStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.feeds[feed]
	if !ok {
		s = &feedStats{}
		r.feeds[feed] = s
	}
	fn(s)
}
