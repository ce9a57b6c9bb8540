package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/askcache/internal/domain/qacache"
	"github.com/yanqian/askcache/internal/infra/config"
	"github.com/yanqian/askcache/internal/infra/persistqueue"
)

// App encapsulates the HTTP server lifecycle and background persistence.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	svc    qacache.Service
	queue  *persistqueue.ValkeyQueue
}

// NewApp is used by Wire to build the runnable app. queue may be nil when
// answers are written inline.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, svc qacache.Service, queue *persistqueue.ValkeyQueue) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, svc: svc, queue: queue}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	queueCtx, stopQueue := context.WithCancel(context.Background())
	queueDone := make(chan struct{})
	if a.queue != nil {
		go func() {
			defer close(queueDone)
			a.queue.Run(queueCtx)
		}()
	} else {
		close(queueDone)
	}

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	timeout := a.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if err := a.svc.Drain(shutdownCtx); err != nil {
		a.logger.Warn("pending cache writes abandoned", "error", err)
	}
	stopQueue()
	select {
	case <-queueDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("persist queue consumer did not stop in time")
	}
	return runErr
}
