package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/middleware"
	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/prudhvinik1/fitsync/internal/services"
)

// SyncEngine is the sync and history operations the HTTP layer needs.
type SyncEngine interface {
	Sync(ctx context.Context, userID uuid.UUID, deviceID string, req services.SyncRequest) (*models.SyncResult, error)
	HealthHistory(ctx context.Context, userID uuid.UUID, deviceID string, filter models.HealthDataFilter) ([]*models.HealthDataPoint, error)
	DeviceSyncHistory(ctx context.Context, userID uuid.UUID, deviceID string, limit int) ([]*models.SyncSession, error)
	AllSyncSessions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SyncSession, error)
	CancelSession(ctx context.Context, userID uuid.UUID, sessionID string) (*models.SyncSession, error)
}

type SyncHandler struct {
	sync     SyncEngine
	location *time.Location
	log      *slog.Logger
}

// NewSyncHandler parses date query parameters in loc.
func NewSyncHandler(sync SyncEngine, loc *time.Location, log *slog.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, location: loc, log: log}
}

type syncRequest struct {
	HealthData []models.Sample `json:"healthData" validate:"required,dive"`
	SyncType   string          `json:"syncType" validate:"omitempty,oneof=full incremental"`
}

func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req syncRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	result, err := h.sync.Sync(r.Context(), userID, chi.URLParam(r, "deviceId"), services.SyncRequest{
		Samples:  req.HealthData,
		SyncType: models.SyncType(req.SyncType),
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SyncHandler) HealthData(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	query := r.URL.Query()

	start, err := h.parseDate(query.Get("startDate"), "startDate")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	end, err := h.parseDate(query.Get("endDate"), "endDate")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	points, err := h.sync.HealthHistory(r.Context(), userID, chi.URLParam(r, "deviceId"), models.HealthDataFilter{
		StartDate: start,
		EndDate:   end,
		Limit:     parseLimit(query.Get("limit")),
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *SyncHandler) DeviceSyncHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	sessions, err := h.sync.DeviceSyncHistory(r.Context(), userID, chi.URLParam(r, "deviceId"), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *SyncHandler) SyncSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	sessions, err := h.sync.AllSyncSessions(r.Context(), userID, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *SyncHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	session, err := h.sync.CancelSession(r.Context(), userID, chi.URLParam(r, "sessionId"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SyncHandler) parseDate(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := models.NewSampleTime(raw).Parse(h.location)
	if err != nil {
		return time.Time{}, &ValidationError{Message: "invalid " + name}
	}
	return t, nil
}

// parseLimit returns 0 for a missing or malformed limit, which the service
// replaces with its default.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
