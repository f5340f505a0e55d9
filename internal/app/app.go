// Package app initializes and holds the long-lived services for a scrape
// run and owns the single release path they are all torn down through.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RaihanArvi/producthunt-scraper/internal/browser"
	"github.com/RaihanArvi/producthunt-scraper/internal/checkpoint"
	"github.com/RaihanArvi/producthunt-scraper/internal/config"
	"github.com/RaihanArvi/producthunt-scraper/internal/logging"
	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
	"github.com/RaihanArvi/producthunt-scraper/internal/sink"
	"github.com/RaihanArvi/producthunt-scraper/internal/snapshot"
)

// App holds the shared services: logger, browser session, sink set,
// snapshot store, and checkpoint store. It is built once at startup and
// closed exactly once, whether the run finishes, is interrupted, or fails.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	session    *browser.Session
	sinks      []scraper.Sink
	snapshots  snapshot.Store
	checkpoint *checkpoint.FileStore
	server     *http.Server
	closeOnce  sync.Once
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Session returns the shared browser session.
func (a *App) Session() *browser.Session { return a.session }

// Sinks returns the active sink set, fixed for the run's duration.
func (a *App) Sinks() []scraper.Sink { return a.sinks }

// Snapshots returns the raw-HTML archive store.
func (a *App) Snapshots() snapshot.Store { return a.snapshots }

// Checkpoint returns the checkpoint store.
func (a *App) Checkpoint() *checkpoint.FileStore { return a.checkpoint }

// Config returns the run configuration.
func (a *App) Config() config.Config { return a.cfg }

// New initializes all services from cfg, failing fast before any scraping
// begins if a required sink or the browser cannot be set up.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Info("Initializing services")
	scraper.InitMetrics()

	snapshots, err := buildSnapshotStore(ctx, cfg.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("init snapshot store: %w", err)
	}

	sinks, err := buildSinks(ctx, cfg.Sinks, logger)
	if err != nil {
		snapshots.Close()
		return nil, fmt.Errorf("init sinks: %w", err)
	}

	session, err := browser.NewSession(browser.Config{
		Headful:    cfg.Browser.DisplayEmulation,
		ProxyURL:   cfg.Browser.ProxyURL,
		UserAgent:  cfg.Browser.UserAgent,
		NavTimeout: time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		closeSinks(sinks, logger)
		snapshots.Close()
		return nil, fmt.Errorf("init browser: %w", err)
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		session:    session,
		sinks:      sinks,
		snapshots:  snapshots,
		checkpoint: checkpoint.NewFileStore(cfg.Checkpoint.Path, logger),
	}
	a.startMetricsServer(cfg.Server.Port)

	logger.Info("Services initialized", zap.Int("sinks", len(sinks)))
	return a, nil
}

func buildSnapshotStore(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Store, error) {
	switch cfg.Provider {
	case "local":
		return snapshot.NewLocal(cfg.LocalDir)
	case "gcs":
		return snapshot.NewGCS(ctx, cfg.GCSBucket, cfg.Prefix)
	default:
		return snapshot.Noop{}, nil
	}
}

func buildSinks(ctx context.Context, cfg config.SinksConfig, logger *zap.Logger) ([]scraper.Sink, error) {
	var sinks []scraper.Sink

	switch cfg.Warehouse {
	case "bigquery":
		logger.Info("Using BigQuery warehouse", zap.String("table", cfg.BigQuery.Table))
		bq, err := sink.NewBigQuery(ctx, cfg.BigQuery.CredentialsFile, cfg.BigQuery.Table, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, bq)
	case "postgres":
		logger.Info("Using Postgres warehouse", zap.String("table", cfg.Postgres.Table))
		pg, err := sink.NewPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.Table, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, pg)
	case "noop":
		logger.Info("Using no-op warehouse; records will be discarded")
		sinks = append(sinks, sink.Noop{})
	}

	if cfg.PubSub.Enabled {
		logger.Info("Pub/Sub sink enabled", zap.String("topic", cfg.PubSub.Topic))
		ps, err := sink.NewPubSub(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic, logger)
		if err != nil {
			closeSinks(sinks, logger)
			return nil, err
		}
		sinks = append(sinks, ps)
	}

	if cfg.File.Enabled {
		logger.Info("File sink enabled", zap.String("path", cfg.File.Path))
		f, err := sink.NewJSONFile(cfg.File.Path, logger)
		if err != nil {
			closeSinks(sinks, logger)
			return nil, err
		}
		sinks = append(sinks, f)
	}

	return sinks, nil
}

func (a *App) startMetricsServer(port int) {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("Metrics server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}

// Close runs the release path once: stop the metrics listener, close the
// sinks and snapshot store, tear down the browser, flush the logger.
// Every exit route (completion, interrupt, fault) funnels through here.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.logger.Info("Shutting down services")

		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.server.Shutdown(ctx); err != nil {
				a.logger.Warn("Metrics server shutdown failed", zap.Error(err))
			}
			cancel()
		}

		closeSinks(a.sinks, a.logger)
		if err := a.snapshots.Close(); err != nil {
			a.logger.Warn("Error closing snapshot store", zap.Error(err))
		}
		a.session.Close()

		// Best effort; stderr sync fails on some platforms.
		_ = a.logger.Sync()
	})
}

func closeSinks(sinks []scraper.Sink, logger *zap.Logger) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.Warn("Error closing sink", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
}
