package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/spf13/cobra"

	"github.com/neomorfeo/goodnews/internal/adapter/fsm"
	handler "github.com/neomorfeo/goodnews/internal/adapter/http"
	otelAdapter "github.com/neomorfeo/goodnews/internal/adapter/otel"
	riverAdapter "github.com/neomorfeo/goodnews/internal/adapter/river"
	"github.com/neomorfeo/goodnews/internal/adapter/sqlite"
	"github.com/neomorfeo/goodnews/internal/app"
	"github.com/neomorfeo/goodnews/internal/config"
	"github.com/neomorfeo/goodnews/internal/domain"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic sweeps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	// --- Observability ---
	providers, err := otelAdapter.Setup(ctx, otelAdapter.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	clock := domain.SystemClock{}
	entities := otelAdapter.NewTracingRepository(repo)
	validator := fsm.New()

	sweeper, err := otelAdapter.NewInstrumentedSweeper(app.NewSweeper(entities, validator, clock))
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}

	client, err := riverAdapter.Setup(ctx, repo.DB(), riverAdapter.Options{
		Sweeper:        sweeper,
		SweepIntervals: cfg.SweepIntervals(),
	})
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	publisher := otelAdapter.NewTracingPublisher(riverAdapter.NewPublisher(client))
	audits := otelAdapter.NewTracingAuditStore(sqlite.NewAuditStore(repo.DB()))

	// --- Application ---
	recorder := app.NewAuditRecorder(audits, clock)
	svc := app.NewLifecycleService(entities, publisher, validator, recorder, clock)

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			slog.Error("river stop", "error", err)
		}
	}()

	// --- Adapters (in) ---
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(svc, recorder),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("goodnews listening", "addr", srv.Addr, "docs", "http://localhost:"+cfg.Server.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("stopped")
	return nil
}

// newRouter builds the HTTP handler with tracing and the API routes.
func newRouter(svc *app.LifecycleService, recorder *app.AuditRecorder) http.Handler {
	router := chi.NewMux()
	router.Use(otelchi.Middleware("goodnews", otelchi.WithChiRoutes(router)))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	api := humachi.New(router, huma.DefaultConfig("goodnews", version))
	handler.Register(api, svc, recorder)

	return router
}
