package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/inventar/internal/assist"
	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/model"
)

// ItemsHandler handles item and transaction endpoints.
type ItemsHandler struct {
	Inventory *inventory.Service
	Assist    assist.Checker
	Location  *time.Location
}

type setStockRequest struct {
	Stock int    `json:"stock"`
	Note  string `json:"note"`
}

type borrowRequest struct {
	BorrowerID      string `json:"borrowerId"`
	Quantity        int    `json:"quantity"`
	BorrowerName    string `json:"borrowerName"`
	BorrowerRegdNum string `json:"borrowerRegdNum"`
	BorrowerPhone   string `json:"borrowerPhone"`
	ReturnDate      string `json:"returnDate"`
	Reminder        bool   `json:"reminder"`
	Notes           string `json:"notes"`
}

type returnRequest struct {
	BorrowID string `json:"borrowId"`
	// Quantity of zero returns everything still outstanding.
	Quantity int `json:"quantity"`
}

type transactionResponse struct {
	Item        *model.Item        `json:"item"`
	Transaction *model.Transaction `json:"transaction"`
}

// parseDate accepts a calendar date (2006-01-02) in loc or an RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, model.Invalid("returnDate", "return date must be YYYY-MM-DD")
	}
	return t, nil
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Inventory.ListItems(r.Context(), inventory.Filter{
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventory.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Inventory.CreateItem(r.Context(), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Inventory.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req inventory.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Inventory.UpdateItem(r.Context(), r.PathValue("id"), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// SetStock handles PUT /api/items/{id}/stock.
func (h *ItemsHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Inventory.ApplyManualStockEdit(r.Context(), r.PathValue("id"), req.Stock, req.Note)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}?confirm=delete.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.DeleteItem(r.Context(), r.PathValue("id"), r.URL.Query().Get("confirm")); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around a maximum-size image.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	item, err := h.Inventory.SetItemImage(r.Context(), r.PathValue("id"), file)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Transactions handles GET /api/items/{id}/transactions.
func (h *ItemsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Inventory.Transactions(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txs)
}

// Borrow handles POST /api/items/{id}/borrow.
func (h *ItemsHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	returnDate, err := parseDate(req.ReturnDate, h.Location)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	item, tx, err := h.Inventory.ApplyBorrow(r.Context(), r.PathValue("id"), inventory.BorrowInput{
		BorrowerID:      req.BorrowerID,
		Quantity:        req.Quantity,
		BorrowerName:    req.BorrowerName,
		BorrowerRegdNum: req.BorrowerRegdNum,
		BorrowerPhone:   req.BorrowerPhone,
		ReturnDate:      returnDate,
		Reminder:        req.Reminder,
		Notes:           req.Notes,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, transactionResponse{Item: item, Transaction: tx})
}

// Return handles POST /api/items/{id}/return.
func (h *ItemsHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, tx, err := h.Inventory.ApplyReturn(r.Context(), r.PathValue("id"), req.BorrowID, req.Quantity)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, transactionResponse{Item: item, Transaction: tx})
}

// Recent handles GET /api/transactions?limit=N.
func (h *ItemsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	txs, err := h.Inventory.RecentTransactions(r.Context(), limit)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txs)
}

// ValidateDescription handles POST /api/items/validate-description.
func (h *ItemsHandler) ValidateDescription(w http.ResponseWriter, r *http.Request) {
	var req assist.Input
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		jsonError(w, http.StatusBadRequest, "description required")
		return
	}

	res, err := h.Assist.Check(r.Context(), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
