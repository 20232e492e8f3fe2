package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/escrowdesk/backend/internal/escrow"
)

// SummaryService is the read-only slice of the escrow service the HTTP
// surface needs.
type SummaryService interface {
	GetSummary(ctx context.Context, userID int64) (*escrow.Summary, error)
}

// Handler serves the read-only operator endpoints: health, per-user summary
// and Prometheus metrics. It never mutates escrow state.
type Handler struct {
	Svc    SummaryService
	Logger *slog.Logger
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/users/{id}/summary", h.UserSummary)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) UserSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	sum, err := h.Svc.GetSummary(r.Context(), userID)
	if errors.Is(err, escrow.ErrNotRegistered) {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("user summary", "user_id", userID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sum)
}
