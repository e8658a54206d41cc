package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prudhvinik1/fitsync/internal/middleware"
)

// HealthChecker reports whether the storage backends are reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type RouterConfig struct {
	Auth     AuthProvider
	Devices  DeviceRegistry
	Sync     SyncEngine
	Health   HealthChecker
	Location *time.Location
	Log      *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Auth, cfg.Log)
	deviceHandler := NewDeviceHandler(cfg.Devices, cfg.Log)
	syncHandler := NewSyncHandler(cfg.Sync, cfg.Location, cfg.Log)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(cfg.Log))
	router.Use(chimw.Recoverer)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/health", healthHandler(cfg.Health, cfg.Log))

	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/logout-all", authHandler.LogoutAll)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.Auth, cfg.Log))
			r.Get("/me", authHandler.Me)
			r.Patch("/me", authHandler.UpdateMe)
			r.Delete("/me", authHandler.DeleteMe)
			r.Get("/sessions", authHandler.Sessions)
		})
	})

	router.Route("/api/bluetooth", func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.Auth, cfg.Log))

		r.Get("/devices", deviceHandler.List)
		r.Post("/devices/pair", deviceHandler.Pair)
		r.Get("/devices/{deviceId}", deviceHandler.Get)
		r.Put("/devices/{deviceId}/status", deviceHandler.UpdateStatus)
		r.Delete("/devices/{deviceId}", deviceHandler.Unpair)

		r.Post("/devices/{deviceId}/sync", syncHandler.Sync)
		r.Get("/devices/{deviceId}/health-data", syncHandler.HealthData)
		r.Get("/devices/{deviceId}/sync-history", syncHandler.DeviceSyncHistory)
		r.Get("/sync-sessions", syncHandler.SyncSessions)
		r.Post("/sync-sessions/{sessionId}/cancel", syncHandler.CancelSession)
	})

	return router
}

func healthHandler(checker HealthChecker, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.Health(ctx); err != nil {
			log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
