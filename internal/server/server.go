// Package server wires configuration into the running service and owns graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/activity"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/config"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/feeds"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/heartbeat"
	httpserver "github.com/preston-bernstein/scoreboard-feed-service/internal/http"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/http/handlers"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/hub"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/pipeline"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/sinks"
)

var metricsSetup = metrics.Setup

// Pipeline is the lifecycle surface the server drives.
type Pipeline interface {
	Start(ctx context.Context) error
	WatchConfig(src *feeds.Source) error
	RunBroadcasts(ctx context.Context, interval time.Duration)
	Close(ctx context.Context) error
}

// Broadcaster is the push channel run loop.
type Broadcaster interface {
	Run(ctx context.Context)
}

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	activity      *activity.Log
	pipeline      Pipeline
	source        *feeds.Source
	hub           Broadcaster
	status        *statusPusher
	sinks         []*sinks.Async
	httpServer    httpServer
	metricsServer httpServer
	metricsStop   func(context.Context) error
}

// New constructs the server: metrics, activity log, sinks, pipeline, hub and router.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	return newServerWithMetrics(cfg, logger, nil)
}

func newServerWithMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*Server, error) {
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, recorder)
	factory := newComponentFactory(logger, recorder)

	heartbeats, err := heartbeat.NewWriter(cfg.Storage.StatusDir)
	if err != nil {
		return nil, fmt.Errorf("heartbeat dir: %w", err)
	}
	actLog := openActivity(cfg, logger)

	source := feeds.NewSource(cfg.Storage.FeedsConfigPath, 0, logger)
	initial, err := source.Load()
	if err != nil {
		// The config watch stays armed, so a corrected file starts the pipeline later.
		logging.Error(logger, "feeds config unusable, starting with no feeds", err, "path", source.Path())
		initial = nil
	}

	var mgr *pipeline.Manager
	wsHub := hub.New(hub.Config{
		Snapshot: func() []games.Game { return mgr.Current() },
		Logger:   logger,
		Metrics:  recorder,
	})
	if actLog != nil {
		pushActivity(actLog, wsHub, logger)
	}
	async := factory.secondarySinks(cfg)
	fanout := sinks.Multi{wsHub}
	for _, a := range async {
		fanout = append(fanout, a)
	}

	opts := pipeline.Options{
		Fetcher:    factory.fetcher(cfg),
		Heartbeats: heartbeats,
		Policy:     factory.policy(cfg),
		Debounce:   cfg.Storage.WatchDebounce,
		Logger:     logger,
		Metrics:    recorder,
	}
	if actLog != nil {
		opts.Activity = actLog
	}
	mgr, err = pipeline.New(pipeline.PipelineContext{
		DataDir: cfg.Storage.DataDir,
		Sink:    fanout,
		Feeds:   initial,
	}, opts)
	if err != nil {
		closeSinks(context.Background(), async, logger)
		_ = actLog.Close()
		return nil, err
	}

	httpSrv := buildHTTPServer(cfg, mgr, wsHub, actLog, logger, recorder)

	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		activity:      actLog,
		pipeline:      mgr,
		source:        source,
		hub:           wsHub,
		status:        newStatusPusher(wsHub, mgr, cfg.Storage.StatusDir, cfg.StatusInterval, logger),
		sinks:         async,
		httpServer:    httpSrv,
		metricsServer: metricsSrv,
		metricsStop:   metricsShutdown,
	}, nil
}

// newServerWithDeps is used for testing to inject custom components.
func newServerWithDeps(cfg config.Config, logger *slog.Logger, plr Pipeline, httpSrv httpServer) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		pipeline:   plr,
		httpServer: httpSrv,
	}
}

func openActivity(cfg config.Config, logger *slog.Logger) *activity.Log {
	if cfg.Storage.ActivityDBPath == "" {
		return nil
	}
	l, err := activity.Open(cfg.Storage.ActivityDBPath, cfg.Storage.ActivityMax)
	if err != nil {
		logging.Error(logger, "activity log disabled", err, "path", cfg.Storage.ActivityDBPath)
		return nil
	}
	return l
}

func buildHTTPServer(cfg config.Config, mgr *pipeline.Manager, ws http.Handler, actLog *activity.Log, logger *slog.Logger, recorder *metrics.Recorder) httpServer {
	hcfg := handlers.Config{
		Pipeline:     mgr,
		HeartbeatDir: cfg.Storage.StatusDir,
		Metrics:      recorder,
		Logger:       logger,
	}
	var admin *handlers.AdminHandler
	if actLog != nil {
		hcfg.Activity = actLog
		admin = handlers.NewAdminHandler(mgr, cfg.AdminToken, actLog, logger)
	} else {
		admin = handlers.NewAdminHandler(mgr, cfg.AdminToken, nil, logger)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Handler: handlers.NewHandler(hcfg),
		Admin:   admin,
		WS:      ws,
		Logger:  logger,
		Metrics: recorder,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return netHTTPServer{srv: srv}
}

// Run starts the hub, pipeline, status push and HTTP servers, then waits for context
// cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	s.startServer(stop)
	if s.hub != nil {
		go s.hub.Run(ctx)
	}

	if err := s.pipeline.Start(ctx); err != nil {
		logging.Error(s.logger, "pipeline start failed", err)
	}
	if s.source != nil {
		if err := s.pipeline.WatchConfig(s.source); err != nil {
			logging.Warn(s.logger, "feeds config hot-reload disabled", "error", err)
		}
	}
	go s.pipeline.RunBroadcasts(ctx, s.cfg.BroadcastInterval)
	if s.status != nil {
		go s.status.Run(ctx)
	}

	<-ctx.Done()
	logging.Info(s.logger, "shutdown signal received")

	s.gracefulShutdown()
}

func (s *Server) startServer(stop context.CancelFunc) {
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(s.logger, "graceful shutdown failed", err)
	}

	if err := s.pipeline.Close(shutdownCtx); err != nil {
		logging.Error(s.logger, "failed to stop pipeline", err)
	}

	closeSinks(shutdownCtx, s.sinks, s.logger)

	if err := s.activity.Close(); err != nil {
		logging.Warn(s.logger, "activity log close failed", "error", err)
	}

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics shutdown failed", "error", err)
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics server shutdown failed", "error", err)
		}
	}

	logging.Info(s.logger, "shutdown complete")
}

func closeSinks(ctx context.Context, list []*sinks.Async, logger *slog.Logger) {
	for _, a := range list {
		if err := a.Close(ctx); err != nil {
			logging.Warn(logger, "sink close failed", "sink", a.Name(), "error", err)
		}
	}
}

func buildMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*metrics.Recorder, httpServer, func(context.Context) error) {
	if recorder != nil {
		return recorder, nil, nil
	}

	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		logging.Warn(logger, "metrics setup failed, continuing without telemetry", "error", err)
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		metricsSrv = netHTTPServer{
			srv: &http.Server{
				Addr:              ":" + recCfg.Port,
				Handler:           mux,
				ReadHeaderTimeout: readTimeout,
			},
		}
	}

	return rec, metricsSrv, shutdown
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		logging.Info(logger, "starting "+name+" server", slog.String("addr", srv.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn(logger, name+" server failed", "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}
