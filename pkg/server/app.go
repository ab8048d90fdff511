package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "FeatureSnap/internal/domain/repository"
	pkgch "FeatureSnap/pkg/clickhouse"
	"FeatureSnap/pkg/config"
	xhttp "FeatureSnap/pkg/http"
	applogger "FeatureSnap/pkg/logger"
	"FeatureSnap/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	backfill    *queue.RedisQueue
	publisher   domrepo.SnapshotPublisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpHandler xhttp.Handler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		httpHandler: httpHandler,
		chClient:    chClient,
	}
}

// SetBackfillQueue attaches the background worker queue.
func (a *App) SetBackfillQueue(q *queue.RedisQueue) { a.backfill = q }

// SetPublisher attaches the snapshot event publisher so shutdown can flush it.
func (a *App) SetPublisher(p domrepo.SnapshotPublisher) { a.publisher = p }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start backfill workers if configured
	if a.backfill != nil {
		if err := a.backfill.Start(); err != nil {
			l.Error("backfill queue start error", applogger.Error(err))
			return err
		}
		a.backfill.StartRetryProcessor()
		l.Info("backfill workers started", applogger.Int("workers", a.cfg.Backfill.Workers))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx, l)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first so in-flight Ensure calls can finish.
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.backfill != nil {
		if err := a.backfill.Stop(shutdownCtx); err != nil {
			l.Warn("backfill queue stop error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
