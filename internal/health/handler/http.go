// Package handler reports process health: database reachability and the
// in-process policy engine.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	policyengine "sso-portal/backend/internal/policy/engine"
)

type Handlers struct {
	db     *sql.DB // nil in dev mode
	policy *policyengine.OPAEvaluator
}

func NewHandlers(db *sql.DB, policy *policyengine.OPAEvaluator) *Handlers {
	return &Handlers{db: db, policy: policy}
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.health).Methods("GET")
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			checks["policy"] = err.Error()
			healthy = false
		} else {
			checks["policy"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"healthy": healthy, "checks": checks})
}
