package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/activity"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/feeds"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/feedstore"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/heartbeat"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/poller"
)

const maxActivityLimit = 100

// Pipeline is the read side of a running pipeline.
type Pipeline interface {
	Running() bool
	Feeds() []feeds.FeedConfig
	Current() []games.Game
	CurrentFor(route string) ([]games.Game, bool)
	Statuses() []poller.Status
	FileStats() map[string]feedstore.FileMeta
}

// ActivityReader lists recent activity entries, newest first.
type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]activity.Entry, error)
}

// Config wires the read-only endpoints.
type Config struct {
	Pipeline     Pipeline
	HeartbeatDir string
	Activity     ActivityReader
	Metrics      *metrics.Recorder
	Logger       *slog.Logger
}

// Handler serves health, games, feeds and status.
type Handler struct {
	pipe         Pipeline
	heartbeatDir string
	activity     ActivityReader
	metrics      *metrics.Recorder
	logger       *slog.Logger
	now          func() time.Time
}

// NewHandler constructs a Handler with defaults.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		pipe:         cfg.Pipeline,
		heartbeatDir: cfg.HeartbeatDir,
		activity:     cfg.Activity,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	State      string                        `json:"state"`
	Heartbeats []heartbeat.Assessment        `json:"heartbeats"`
	Pollers    []poller.Status               `json:"pollers"`
	Files      map[string]feedstore.FileMeta `json:"files"`
	Pipeline   metrics.PipelineSnapshot      `json:"pipeline"`
	Activity   []activity.Entry              `json:"activity"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := r.Context().Err(); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports readiness: the pipeline runs and at least one poller has succeeded recently.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.pipe == nil || !h.pipe.Running() {
		writeError(w, r, http.StatusServiceUnavailable, "pipeline stopped", h.logger)
		return
	}
	statuses := h.pipe.Statuses()
	if len(statuses) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	msg := "not ready"
	for _, s := range statuses {
		if s.IsReady() {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, h.logger)
			return
		}
		if s.LastError != "" {
			msg = s.LastError
		}
	}
	writeError(w, r, http.StatusServiceUnavailable, msg, h.logger)
}

// Games returns the combined snapshot of every feed.
func (h *Handler) Games(w http.ResponseWriter, r *http.Request) {
	list := []games.Game{}
	if h.pipe != nil {
		list = h.pipe.Current()
	}
	logging.Debug(loggerFromContext(r, h.logger), "served games", logging.FieldCount, len(list))
	writeJSON(w, http.StatusOK, list, h.logger)
}

// GamesByLeague returns the games of the feed mounted at the league route.
func (h *Handler) GamesByLeague(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")
	if h.pipe == nil || league == "" {
		writeError(w, r, http.StatusNotFound, "unknown league", h.logger)
		return
	}
	list, ok := h.pipe.CurrentFor(league)
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown league", h.logger)
		return
	}
	if list == nil {
		list = []games.Game{}
	}
	writeJSON(w, http.StatusOK, list, h.logger)
}

// Feeds lists the active feed set.
func (h *Handler) Feeds(w http.ResponseWriter, r *http.Request) {
	list := []feeds.FeedConfig{}
	if h.pipe != nil {
		list = h.pipe.Feeds()
	}
	writeJSON(w, http.StatusOK, list, h.logger)
}

// Status summarizes heartbeats, pollers, feed file writes, pipeline counters and recent
// activity.
// ?limit=N bounds the activity entries.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	limit := activity.DefaultRecent
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxActivityLimit {
			writeError(w, r, http.StatusBadRequest, "invalid limit", h.logger)
			return
		}
		limit = n
	}

	resp := StatusResponse{
		State:      "stopped",
		Heartbeats: []heartbeat.Assessment{},
		Pollers:    []poller.Status{},
		Files:      map[string]feedstore.FileMeta{},
		Pipeline:   h.metrics.Pipeline(),
		Activity:   []activity.Entry{},
	}
	if h.pipe != nil {
		if h.pipe.Running() {
			resp.State = "running"
		}
		active := h.pipe.Feeds()
		files := make([]string, 0, len(active))
		for _, f := range active {
			files = append(files, f.File)
		}
		if h.heartbeatDir != "" {
			resp.Heartbeats = heartbeat.AssessAll(h.heartbeatDir, files, h.now())
		}
		resp.Pollers = h.pipe.Statuses()
		if stats := h.pipe.FileStats(); stats != nil {
			resp.Files = stats
		}
	}
	if h.activity != nil {
		entries, err := h.activity.Recent(r.Context(), limit)
		if err != nil {
			logging.Warn(loggerFromContext(r, h.logger), "activity read failed", "error", err)
		} else {
			resp.Activity = entries
		}
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}
