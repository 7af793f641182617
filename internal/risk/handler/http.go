// Package handler exposes risk assessments and threshold tuning over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"sso-portal/backend/internal/risk/domain"
	"sso-portal/backend/internal/risk/engine"
	"sso-portal/backend/internal/server/middleware"
)

type Handlers struct {
	engine     *engine.Engine
	thresholds *engine.ThresholdManager
}

func NewHandlers(e *engine.Engine, thresholds *engine.ThresholdManager) *Handlers {
	return &Handlers{engine: e, thresholds: thresholds}
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/risk/latest", h.latest).Methods("GET")
	router.HandleFunc("/risk/history", h.history).Methods("GET")
	router.HandleFunc("/risk/thresholds/{scope}", h.getThresholds).Methods("GET")
	router.HandleFunc("/risk/thresholds/{scope}", h.updateThresholds).Methods("PATCH")
}

type assessmentResponse struct {
	ID        string          `json:"id"`
	Score     float64         `json:"score"`
	Level     string          `json:"level"`
	Factors   []domain.Factor `json:"factors"`
	CreatedAt time.Time       `json:"created_at"`
}

func toResponse(a *domain.Assessment) assessmentResponse {
	return assessmentResponse{
		ID:        a.ID,
		Score:     a.Score,
		Level:     string(a.Level),
		Factors:   a.Factors,
		CreatedAt: a.CreatedAt,
	}
}

func (h *Handlers) latest(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	a, err := h.engine.GetLatestRiskAssessment(r.Context(), s.UserID)
	if err != nil {
		if errors.Is(err, engine.ErrNoAssessments) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, toResponse(a))
}

func (h *Handlers) history(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	history, err := h.engine.GetRiskAssessmentHistory(r.Context(), s.UserID, limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]assessmentResponse, 0, len(history))
	for _, a := range history {
		out = append(out, toResponse(a))
	}
	writeJSON(w, map[string]any{"assessments": out, "count": len(out)})
}

func (h *Handlers) getThresholds(w http.ResponseWriter, r *http.Request) {
	t, err := h.thresholds.Get(r.Context(), mux.Vars(r)["scope"])
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, t)
}

func (h *Handlers) updateThresholds(w http.ResponseWriter, r *http.Request) {
	var patch domain.ThresholdsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	t, err := h.thresholds.Update(r.Context(), mux.Vars(r)["scope"], patch)
	if err != nil {
		if errors.Is(err, domain.ErrBoundaryOrder) || errors.Is(err, domain.ErrWeightRange) || errors.Is(err, domain.ErrBoundaryRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, t)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
