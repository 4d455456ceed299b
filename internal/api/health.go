package api

import (
	"net/http"

	"github.com/erazemk/inventar/internal/store"
)

// HealthHandler reports whether the server can reach its store.
type HealthHandler struct {
	Repo *store.Repository
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Get handles GET /api/health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, _, err := h.Repo.KV.Get(r.Context(), store.KeyItems); err != nil {
		jsonResponse(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Message: "store unavailable"})
		return
	}
	jsonResponse(w, http.StatusOK, healthResponse{Status: "healthy", Message: "Server is running"})
}
