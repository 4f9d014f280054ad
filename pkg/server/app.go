package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "QuantDesk/internal/middleware"
	"QuantDesk/internal/usecase"
	"QuantDesk/pkg/config"
	xhttp "QuantDesk/pkg/http"
	applogger "QuantDesk/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	sessions   *usecase.SessionManager
	guard      *usecase.RouteGuard
	pipeline   *mid.ActivityPipeline
	training   *usecase.TrainingSimulator

	restored chan struct{}
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.SessionManager,
	guard *usecase.RouteGuard,
	pipeline *mid.ActivityPipeline,
	training *usecase.TrainingSimulator,
) *App {
	return &App{
		cfg:        cfg,
		logger:     l,
		httpServer: httpServer,
		sessions:   sessions,
		guard:      guard,
		pipeline:   pipeline,
		training:   training,
		restored:   make(chan struct{}),
	}
}

// Restored is closed once the persisted session has been read.
func (a *App) Restored() <-chan struct{} { return a.restored }

// Start launches the activity pipeline and the HTTP server, then restores the
// persisted session in the background. Protected routes answer 503 until it is done.
func (a *App) Start(ctx context.Context) error {
	// The pipeline outlives ctx so Shutdown can still drain it.
	a.pipeline.Start(context.WithoutCancel(ctx))

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	go func() {
		defer close(a.restored)
		a.sessions.Restore(ctx)
		a.logger.Info("console ready", applogger.String("guard", string(a.guard.State())))
	}()
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		a.logger.Error("app start error", applogger.Error(err))
		return err
	}
	a.logger.Info("quantdesk started", applogger.Int("port", a.cfg.Server.Port))

	<-ctx.Done()
	a.logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown gracefully stops all services.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	// Pending stage timers are dropped; the run is simulated and not resumable.
	a.training.Shutdown()
	a.guard.Close()

	if err := a.pipeline.Stop(ctx); err != nil {
		a.logger.Warn("activity pipeline stop error", applogger.Error(err))
	}

	a.logger.RemoveCollector()
	a.logger.Info("shutdown complete")
	return nil
}
