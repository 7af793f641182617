// Package handler exposes session lifecycle operations over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sso-portal/backend/internal/server/middleware"
	"sso-portal/backend/internal/session/domain"
	"sso-portal/backend/internal/session/service"
)

type Handlers struct {
	sessions *service.Manager
}

func NewHandlers(sessions *service.Manager) *Handlers {
	return &Handlers{sessions: sessions}
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/session", h.current).Methods("GET")
	router.HandleFunc("/session/refresh", h.refresh).Methods("POST")
	router.HandleFunc("/session", h.invalidate).Methods("DELETE")
	router.HandleFunc("/sessions", h.invalidateAll).Methods("DELETE")
	router.HandleFunc("/sessions/stats", h.stats).Methods("GET")
}

type sessionResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	RequireMFA bool      `json:"require_mfa"`
	AllowedOps []string  `json:"allowed_operations,omitempty"`
}

func toResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:         s.ID,
		UserID:     s.UserID,
		ExpiresAt:  s.ExpiresAt,
		RequireMFA: s.RequireMFA,
		AllowedOps: s.AllowedOperations,
	}
}

func (h *Handlers) current(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	refreshed, err := h.sessions.RefreshSession(r.Context(), s.Token)
	if err != nil {
		writeSessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(refreshed))
}

func (h *Handlers) invalidate(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	if err := h.sessions.InvalidateSession(r.Context(), s.Token); err != nil {
		writeSessionErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) invalidateAll(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	n, err := h.sessions.InvalidateAllUserSessions(r.Context(), s.UserID)
	if err != nil {
		writeSessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": n})
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessions.GetSessionStats(r.Context())
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"active":           stats.Active,
		"expired_retained": stats.ExpiredRetained,
		"created_today":    stats.CreatedToday,
	})
}

func writeSessionErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrSessionExpired):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
