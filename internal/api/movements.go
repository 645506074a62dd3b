package api

import (
	"database/sql"
	"net/http"

	"github.com/obrastock/obrastock/internal/model"
	"github.com/obrastock/obrastock/internal/store"
)

// MovementsHandler serves the read-only movement ledger.
type MovementsHandler struct {
	DB *sql.DB
}

// List handles GET /api/inventory/movements, in ledger order.
func (h *MovementsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	movements, err := store.ListMovements(r.Context(), h.DB, claims.Worksite)
	if err != nil {
		storeError(w, err)
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, movements)
}
