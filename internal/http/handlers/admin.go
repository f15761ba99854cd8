package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/activity"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/http/requestutil"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
)

// Triggerer forces an immediate fetch of every active feed.
type Triggerer interface {
	TriggerAll() int
}

// ActivityWriter records admin actions in the activity log.
type ActivityWriter interface {
	Record(ctx context.Context, level, message string) error
}

// AdminHandler exposes admin-only endpoints.
type AdminHandler struct {
	trigger  Triggerer
	token    string
	activity ActivityWriter
	logger   *slog.Logger
}

// NewAdminHandler constructs an AdminHandler. An empty token rejects every request.
func NewAdminHandler(trigger Triggerer, token string, act ActivityWriter, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		trigger:  trigger,
		token:    token,
		activity: act,
		logger:   logger,
	}
}

// Refresh asks every poller to fetch now. Guarded by a bearer token.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(r) {
		logging.Warn(h.logger, "admin unauthorized",
			slog.String(logging.FieldPath, r.URL.Path),
			slog.String("client_ip", requestutil.ClientIP(r)),
		)
		writeError(w, r, http.StatusUnauthorized, "unauthorized", h.logger)
		return
	}
	if h.trigger == nil {
		writeError(w, r, http.StatusServiceUnavailable, "pipeline not configured", h.logger)
		return
	}

	logger := loggerFromContext(r, h.logger)
	n := h.trigger.TriggerAll()
	if h.activity != nil {
		if err := h.activity.Record(r.Context(), activity.LevelInfo, fmt.Sprintf("manual refresh of %d feeds", n)); err != nil {
			logging.Warn(logger, "activity record failed", "error", err)
		}
	}
	logging.Info(logger, "admin refresh triggered", logging.FieldCount, n)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "triggered",
		"feeds":  n,
	}, logger)
}

// AdminTokenFromEnv reads ADMIN_TOKEN (optional).
func AdminTokenFromEnv() string {
	return os.Getenv("ADMIN_TOKEN")
}

func (h *AdminHandler) authorize(r *http.Request) bool {
	token, ok := requestutil.BearerToken(r)
	if !ok {
		return false
	}
	return requestutil.TokenMatches(h.token, token)
}
