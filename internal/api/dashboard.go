package api

import (
	"database/sql"
	"net/http"

	"github.com/obrastock/obrastock/internal/store"
)

// DashboardHandler serves the fleet-wide statistics.
type DashboardHandler struct {
	DB *sql.DB
}

// Stats handles GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	stats, err := store.GetDashboardStats(r.Context(), h.DB, claims.Worksite)
	if err != nil {
		storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
