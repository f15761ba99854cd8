// Package http assembles the public HTTP surface: JSON endpoints, the admin refresh and the
// WebSocket upgrade.
package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/http/handlers"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/http/middleware"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
)

// RouterConfig lists the handlers mounted by NewRouter. Nil parts are not mounted.
type RouterConfig struct {
	Handler *handlers.Handler
	Admin   *handlers.AdminHandler
	WS      nethttp.Handler
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// NewRouter registers HTTP routes on a chi router. Any origin may read the feed.
func NewRouter(cfg RouterConfig) nethttp.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.Logging(cfg.Logger, cfg.Metrics))

	if h := cfg.Handler; h != nil {
		r.Get("/health", h.Health)
		r.Get("/ready", h.Ready)
		r.Route("/api", func(r chi.Router) {
			r.Get("/games", h.Games)
			r.Get("/games/{league}", h.GamesByLeague)
			r.Get("/feeds", h.Feeds)
			r.Get("/status", h.Status)
		})
	}
	if cfg.Admin != nil {
		r.Post("/admin/refresh", cfg.Admin.Refresh)
	}
	if cfg.WS != nil {
		r.Get("/ws", cfg.WS.ServeHTTP)
	}
	return r
}
