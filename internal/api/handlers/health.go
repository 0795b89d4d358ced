package handlers

import (
	"net/http"

	"github.com/eshaffer321/ledger-reconcile/internal/api/dto"
)

// HealthHandler reports liveness and how many sessions are held in memory.
type HealthHandler struct {
	*Base
	sessions Sessions
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(sessions Sessions) *HealthHandler {
	return &HealthHandler{Base: NewBase(nil), sessions: sessions}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.WriteJSON(w, http.StatusOK, dto.NewHealthResponse(len(h.sessions.List())))
}
