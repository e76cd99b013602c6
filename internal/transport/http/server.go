package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"photogram/internal/app"
	"photogram/internal/config"
	"photogram/internal/handler"
	"photogram/internal/queue"
	"photogram/internal/worker"
)

// NewHandler builds the full HTTP handler tree for an assembled app.
func NewHandler(a *app.App) stdhttp.Handler {
	return NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(a.Identity, a.Auth),
		AccountHandler: handler.NewAccountHandler(a.Identity, a.GraphSvc, a.Content),
		FollowHandler:  handler.NewFollowHandler(a.GraphSvc),
		FeedHandler:    handler.NewFeedHandler(a.Feed),
		PhotoHandler:   handler.NewPhotoHandler(a.Content, a.Engagement, a.Canon),
		MediaHandler:   handler.NewMediaHandler(a.Media, a.Canon),
		Authenticator:  a.Auth,
		UploadDir:      a.DiskDir,
		MetricsEnabled: a.Config.MetricsEnabled,
	})
}

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	// 2. Open stores and collaborators
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		return err
	}

	// 3. Start background workers when the event stream is available
	if a.Redis != nil && cfg.WorkerCount > 0 {
		manager := worker.NewManager(
			queue.NewConsumer(a.Redis.Client),
			worker.NewHandler(a.Reconciler, a.Files, a.Blobs),
			a.Reconciler,
			worker.ManagerConfig{
				WorkerCount:   cfg.WorkerCount,
				SweepInterval: cfg.ReconcileInterval,
			},
		)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("start workers: %w", err)
		}
		defer manager.Stop()
	}

	// 4. Serve
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewHandler(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
