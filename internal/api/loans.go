package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/obrastock/obrastock/internal/metrics"
	"github.com/obrastock/obrastock/internal/model"
	"github.com/obrastock/obrastock/internal/store"
)

// LoansHandler handles loan lifecycle endpoints.
type LoansHandler struct {
	DB *sql.DB
}

type createLoanRequest struct {
	ToolID             int64      `json:"tool_id"`
	BorrowerName       string     `json:"borrower_name"`
	BorrowerTeam       string     `json:"borrower_team"`
	BorrowerContact    string     `json:"borrower_contact"`
	Quantity           int        `json:"quantity"`
	LoanDate           *time.Time `json:"loan_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	Notes              string     `json:"notes"`
}

// Create handles POST /api/loans. Stock validation happens inside the store
// transaction; there is no check-then-act window here.
func (h *LoansHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ToolID <= 0 || req.BorrowerName == "" {
		jsonError(w, http.StatusBadRequest, "tool_id and borrower_name required")
		return
	}
	if req.ExpectedReturnDate.IsZero() {
		jsonError(w, http.StatusBadRequest, "expected_return_date required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 {
		jsonError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	var loanDate time.Time
	if req.LoanDate != nil {
		loanDate = *req.LoanDate
	}

	var worksite *string
	if claims.Worksite != "" {
		worksite = &claims.Worksite
	}

	loan, err := store.CreateLoan(r.Context(), h.DB, store.CreateLoanParams{
		ToolID:             req.ToolID,
		BorrowerName:       req.BorrowerName,
		BorrowerTeam:       req.BorrowerTeam,
		BorrowerContact:    req.BorrowerContact,
		Quantity:           req.Quantity,
		LoanDate:           loanDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Notes:              req.Notes,
		UserID:             &claims.UserID,
		Worksite:           worksite,
	})
	if err != nil {
		storeError(w, err)
		return
	}

	metrics.LoansCreated.Inc()
	slog.Info("loan created", "user", claims.Username, "loan", loan.ID,
		"tool", loan.ToolID, "borrower", loan.BorrowerName, "quantity", loan.Quantity)
	jsonResponse(w, http.StatusCreated, loan)
}

// Return handles PATCH /api/loans/{id}/return.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.ReturnLoan(r.Context(), h.DB, id, &claims.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	metrics.LoansReturned.Inc()
	slog.Info("loan returned", "user", claims.Username, "loan", loan.ID,
		"tool", loan.ToolID, "quantity", loan.Quantity)
	jsonResponse(w, http.StatusOK, loan)
}

// List handles GET /api/loans.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	loans, err := store.ListLoans(r.Context(), h.DB, claims.Worksite)
	if err != nil {
		storeError(w, err)
		return
	}
	if loans == nil {
		loans = []model.LoanWithToolInfo{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// ListActive handles GET /api/loans/active.
func (h *LoansHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	loans, err := store.ListActiveLoans(r.Context(), h.DB, claims.Worksite)
	if err != nil {
		storeError(w, err)
		return
	}
	if loans == nil {
		loans = []model.LoanWithToolInfo{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// ListOverdue handles GET /api/loans/overdue.
func (h *LoansHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	loans, err := store.ListOverdueLoans(r.Context(), h.DB, claims.Worksite)
	if err != nil {
		storeError(w, err)
		return
	}
	if loans == nil {
		loans = []model.LoanWithToolInfo{}
	}
	jsonResponse(w, http.StatusOK, loans)
}
