// Package handler exposes MFA factor management over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"sso-portal/backend/internal/mfa/service"
	"sso-portal/backend/internal/server/middleware"
)

type Handlers struct {
	factors *service.Service
}

func NewHandlers(factors *service.Service) *Handlers {
	return &Handlers{factors: factors}
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/mfa/setup", h.setup).Methods("POST")
	router.HandleFunc("/mfa/setup/verify", h.verifySetup).Methods("POST")
	router.HandleFunc("/mfa/verify", h.verify).Methods("POST")
	router.HandleFunc("/mfa/backup-codes", h.regenerateBackupCodes).Methods("POST")
	router.HandleFunc("/mfa", h.disable).Methods("DELETE")
}

type setupRequest struct {
	Account string `json:"account"`
}

func (h *Handlers) setup(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	var req setupRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	result, err := h.factors.SetupMFA(r.Context(), s.UserID, req.Account)
	if err != nil {
		writeMFAErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"secret":        result.Secret,
		"provision_uri": result.ProvisionURI,
		"qr_code_png":   result.QRCodePNG,
		"backup_codes":  result.BackupCodes,
	})
}

type codeRequest struct {
	Code string `json:"code"`
}

func (h *Handlers) verifySetup(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.factors.VerifySetup(r.Context(), s.UserID, req.Code); err != nil {
		writeMFAErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

func (h *Handlers) verify(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.factors.VerifyCode(r.Context(), s.UserID, req.Code); err != nil {
		writeMFAErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *Handlers) regenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	codes, err := h.factors.RegenerateBackupCodes(r.Context(), s.UserID, req.Code)
	if err != nil {
		writeMFAErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backup_codes": codes})
}

func (h *Handlers) disable(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.factors.DisableMFA(r.Context(), s.UserID, req.Code); err != nil {
		writeMFAErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeMFAErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotEnrolled):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrAlreadyEnabled), errors.Is(err, service.ErrSetupPending):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCode):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
