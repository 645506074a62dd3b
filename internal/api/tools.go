package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obrastock/obrastock/internal/imaging"
	"github.com/obrastock/obrastock/internal/metrics"
	"github.com/obrastock/obrastock/internal/model"
	"github.com/obrastock/obrastock/internal/store"
)

// ToolsHandler handles tool CRUD endpoints.
type ToolsHandler struct {
	DB *sql.DB
}

type createToolRequest struct {
	Name           string     `json:"name"`
	Code           string     `json:"code"`
	Category       string     `json:"category"`
	TotalQuantity  int        `json:"total_quantity"`
	UnitPrice      string     `json:"unit_price"`
	Supplier       string     `json:"supplier"`
	PurchaseDate   *time.Time `json:"purchase_date"`
	EntryType      string     `json:"entry_type"`
	OriginWorksite *string    `json:"origin_worksite"`
	Notes          string     `json:"notes"`
}

type updateToolRequest struct {
	Name         *string    `json:"name"`
	Category     *string    `json:"category"`
	UnitPrice    *string    `json:"unit_price"`
	Supplier     *string    `json:"supplier"`
	PurchaseDate *time.Time `json:"purchase_date"`
	Notes        *string    `json:"notes"`
}

// List handles GET /api/tools. Tools are decorated with current and overdue
// loan counts and scoped to the caller's worksite.
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	tools, err := store.ListTools(r.Context(), h.DB, claims.Worksite)
	if err != nil {
		storeError(w, err)
		return
	}
	if tools == nil {
		tools = []model.ToolWithLoanInfo{}
	}
	jsonResponse(w, http.StatusOK, tools)
}

// Create handles POST /api/tools. The origin worksite comes from the request
// for transfers and from the caller's worksite otherwise.
func (h *ToolsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createToolRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Code == "" || req.Category == "" {
		jsonError(w, http.StatusBadRequest, "name, code, and category required")
		return
	}
	if req.TotalQuantity < 0 {
		jsonError(w, http.StatusBadRequest, "total_quantity must not be negative")
		return
	}

	unitPrice, err := parsePrice(req.UnitPrice)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid unit_price")
		return
	}

	origin := req.OriginWorksite
	if req.EntryType != model.EntryTypeTransfer {
		origin = nil
		if claims.Worksite != "" {
			origin = &claims.Worksite
		}
	}

	tool, err := store.CreateTool(r.Context(), h.DB, store.CreateToolParams{
		Name:           req.Name,
		Code:           req.Code,
		Category:       req.Category,
		TotalQuantity:  req.TotalQuantity,
		UnitPrice:      unitPrice,
		Supplier:       req.Supplier,
		PurchaseDate:   req.PurchaseDate,
		EntryType:      req.EntryType,
		OriginWorksite: origin,
		Notes:          req.Notes,
		UserID:         &claims.UserID,
	})
	if err != nil {
		storeError(w, err)
		return
	}

	metrics.ToolsRegistered.Inc()
	slog.Info("tool registered", "user", claims.Username, "tool", tool.Name, "code", tool.Code,
		"quantity", tool.TotalQuantity)
	jsonResponse(w, http.StatusCreated, tool)
}

// Get handles GET /api/tools/{id}, returning the tool with its ledger history.
func (h *ToolsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid tool id")
		return
	}

	tool, err := store.GetTool(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if tool == nil || !tool.VisibleAt(claims.Worksite) {
		jsonError(w, http.StatusNotFound, "tool not found")
		return
	}

	movements, err := store.ListToolMovements(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if movements == nil {
		movements = []model.Movement{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"tool":      tool,
		"movements": movements,
	})
}

// GetByCode handles GET /api/tools/code/{code}, looking a tool up by the
// code printed on its label.
func (h *ToolsHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	tool, err := store.GetToolByCode(r.Context(), h.DB, r.PathValue("code"))
	if err != nil {
		storeError(w, err)
		return
	}
	if tool == nil || !tool.VisibleAt(claims.Worksite) {
		jsonError(w, http.StatusNotFound, "tool not found")
		return
	}
	jsonResponse(w, http.StatusOK, tool)
}

// Update handles PATCH /api/tools/{id}. Only metadata is writable here;
// quantities belong to the loan lifecycle.
func (h *ToolsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid tool id")
		return
	}

	var req updateToolRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tool, err := store.GetTool(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if tool == nil || tool.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "tool not found")
		return
	}

	params := store.UpdateToolParams{
		Name:         tool.Name,
		Category:     tool.Category,
		UnitPrice:    tool.UnitPrice,
		Supplier:     tool.Supplier,
		PurchaseDate: tool.PurchaseDate,
		Notes:        tool.Notes,
	}
	if req.Name != nil {
		if *req.Name == "" {
			jsonError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		params.Name = *req.Name
	}
	if req.Category != nil {
		params.Category = *req.Category
	}
	if req.UnitPrice != nil {
		price, err := parsePrice(*req.UnitPrice)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid unit_price")
			return
		}
		params.UnitPrice = price
	}
	if req.Supplier != nil {
		params.Supplier = *req.Supplier
	}
	if req.PurchaseDate != nil {
		params.PurchaseDate = req.PurchaseDate
	}
	if req.Notes != nil {
		params.Notes = *req.Notes
	}

	updated, err := store.UpdateTool(r.Context(), h.DB, id, params)
	if err != nil {
		storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

type adjustStockRequest struct {
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason"`
}

// AdjustStock handles POST /api/tools/{id}/adjust. Positive changes record
// extra stock arriving, negative ones write off lost or damaged stock.
func (h *ToolsHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid tool id")
		return
	}

	var req adjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuantityChange == 0 {
		jsonError(w, http.StatusBadRequest, "quantity_change must not be zero")
		return
	}
	if req.Reason == "" {
		jsonError(w, http.StatusBadRequest, "reason required")
		return
	}

	var worksite *string
	if claims.Worksite != "" {
		worksite = &claims.Worksite
	}

	tool, err := store.AdjustStock(r.Context(), h.DB, id, req.QuantityChange, req.Reason, &claims.UserID, worksite)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("stock adjusted", "user", claims.Username, "tool", tool.Name,
		"change", req.QuantityChange, "reason", req.Reason)
	jsonResponse(w, http.StatusOK, tool)
}

// Delete handles DELETE /api/tools/{id}. Refused while the tool has active
// loans.
func (h *ToolsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid tool id")
		return
	}

	if err := store.DeleteTool(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "tool deleted"})
}

// UploadImage handles PUT /api/tools/{id}/image.
func (h *ToolsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid tool id")
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	result, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetToolImage(r.Context(), h.DB, id, result.Data, result.MIME); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/tools/{id}/image.
func (h *ToolsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid tool id")
		return
	}

	data, mime, err := store.GetToolImage(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// parsePrice parses an optional decimal money string.
func parsePrice(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
