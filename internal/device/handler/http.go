// Package handler exposes device trust operations over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sso-portal/backend/internal/device/domain"
	"sso-portal/backend/internal/device/service"
	"sso-portal/backend/internal/server/middleware"
)

type Handlers struct {
	devices *service.TrustStore
}

func NewHandlers(devices *service.TrustStore) *Handlers {
	return &Handlers{devices: devices}
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/devices", h.list).Methods("GET")
	router.HandleFunc("/devices/{id}/trust", h.trust).Methods("POST")
	router.HandleFunc("/devices/{id}", h.revoke).Methods("DELETE")
}

type deviceResponse struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	DeviceName  string    `json:"device_name,omitempty"`
	DeviceType  string    `json:"device_type,omitempty"`
	Browser     string    `json:"browser,omitempty"`
	OS          string    `json:"os,omitempty"`
	Trusted     bool      `json:"trusted"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

func toResponse(d *domain.DeviceFingerprint) deviceResponse {
	return deviceResponse{
		ID:          d.ID,
		Fingerprint: d.Fingerprint,
		DeviceName:  d.DeviceName,
		DeviceType:  d.DeviceType,
		Browser:     d.Browser,
		OS:          d.OS,
		Trusted:     d.Trusted,
		FirstSeenAt: d.FirstSeenAt,
		LastSeenAt:  d.LastSeenAt,
	}
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	devices, err := h.devices.ListDevices(r.Context(), s.UserID)
	if err != nil {
		writeDeviceErr(w, err)
		return
	}
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toResponse(d))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"devices": out, "count": len(out)})
}

func (h *Handlers) trust(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	if err := h.devices.Trust(r.Context(), s.UserID, mux.Vars(r)["id"]); err != nil {
		writeDeviceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) revoke(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	if err := h.devices.Revoke(r.Context(), s.UserID, mux.Vars(r)["id"]); err != nil {
		writeDeviceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeDeviceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrDeviceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
