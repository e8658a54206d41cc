package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prudhvinik1/fitsync/internal/config"
	"github.com/prudhvinik1/fitsync/internal/database"
	"github.com/prudhvinik1/fitsync/internal/database/migrations"
	"github.com/prudhvinik1/fitsync/internal/handlers"
	"github.com/prudhvinik1/fitsync/internal/logger"
	"github.com/prudhvinik1/fitsync/internal/repositories"
	"github.com/prudhvinik1/fitsync/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logger.Init(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("database migrations applied")
	}

	store, err := database.Open(ctx, cfg.DatabaseURL, cfg.RedisURL, database.Options{
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		RedisPoolSize:  cfg.RedisPoolSize,
		ConnectTimeout: cfg.DBConnectTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer store.Close()

	clock := services.RealClock{}

	userRepo := repositories.NewPostgresUserRepository(store.Postgres)
	deviceRepo := repositories.NewPostgresDeviceRepository(store.Postgres)
	healthDataRepo := repositories.NewPostgresHealthDataRepository(store.Postgres)
	syncSessionRepo := repositories.NewPostgresSyncSessionRepository(store.Postgres)
	sessionRepo := repositories.NewRedisSessionRepository(store.Redis, log)
	presenceRepo := repositories.NewRedisPresenceRepository(store.Redis, cfg.PresenceTTL)

	authService := services.NewAuthService(userRepo, sessionRepo, cfg.JWTSecret, cfg.JWTExpiry, clock, services.UUIDGenerator{}, log)
	deviceService := services.NewDeviceService(deviceRepo, healthDataRepo, presenceRepo, clock, log)
	syncService := services.NewSyncService(deviceRepo, healthDataRepo, syncSessionRepo, clock, cfg.SyncTimezone, cfg.SyncStaleAfter, log)

	server := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Auth:     authService,
			Devices:  deviceService,
			Sync:     syncService,
			Health:   store,
			Location: cfg.SyncTimezone,
			Log:      log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "port", cfg.ServerPort, "timezone", cfg.SyncTimezone.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

func migrateUp(databaseURL string) error {
	db, err := migrations.Open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.MigrateUp(db)
}
