// Package handler exposes the security event log over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"sso-portal/backend/internal/securityevent/domain"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
	"sso-portal/backend/internal/server/middleware"
)

const defaultListLimit = 50

type Handlers struct {
	repo eventrepo.Repository
}

func NewHandlers(repo eventrepo.Repository) *Handlers {
	return &Handlers{repo: repo}
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/events", h.list).Methods("GET")
}

type eventResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Severity    string    `json:"severity"`
	IPAddress   string    `json:"ip_address,omitempty"`
	Location    string    `json:"location,omitempty"`
	RiskScore   float64   `json:"risk_score,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var events []*domain.SecurityEvent
	var err error
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		events, err = h.repo.ListByUserAndType(r.Context(), s.UserID, eventType, limit)
	} else {
		events, err = h.repo.ListByUser(r.Context(), s.UserID, limit)
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:          e.ID,
			Type:        e.Type,
			Description: e.Description,
			Severity:    string(e.Severity),
			IPAddress:   e.IPAddress,
			Location:    e.Location,
			RiskScore:   e.RiskScore,
			CreatedAt:   e.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"events": out, "count": len(out)})
}
