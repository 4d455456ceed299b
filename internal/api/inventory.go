package api

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/inventar/internal/due"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/model"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	Inventory *inventory.Service
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Inventory.Categories(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, cats)
}

// Save handles PUT /api/categories. The body is the complete new list;
// renames keep the category id.
func (h *CategoriesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req []model.Category
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cats, err := h.Inventory.SaveCategories(r.Context(), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, cats)
}

// DueHandler handles the due-items endpoint.
type DueHandler struct {
	Due *due.Service
}

// List handles GET /api/due-items.
func (h *DueHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Due.List(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if items == nil {
		items = []model.DueItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// DashboardHandler serves the summary shown on the dashboard.
type DashboardHandler struct {
	Inventory *inventory.Service
	Due       *due.Service
}

type dashboardResponse struct {
	Summary *inventory.Summary  `json:"summary"`
	Recent  []model.Transaction `json:"recentTransactions"`
	Due     int                 `json:"dueCount"`
	Overdue int                 `json:"overdueCount"`
}

// Get handles GET /api/dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	var (
		resp dashboardResponse
		dues []model.DueItem
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		resp.Summary, err = h.Inventory.Summarize(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		resp.Recent, err = h.Inventory.RecentTransactions(ctx, 5)
		return err
	})
	g.Go(func() error {
		var err error
		dues, err = h.Due.List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		serviceError(w, r, err)
		return
	}

	if resp.Recent == nil {
		resp.Recent = []model.Transaction{}
	}
	resp.Due = len(dues)
	for _, d := range dues {
		if d.DaysRemaining < 0 {
			resp.Overdue++
		}
	}
	jsonResponse(w, http.StatusOK, resp)
}
