package handlers

import (
	"net/http"

	"github.com/diewo77/go-faktur/httpx"
	"github.com/diewo77/go-faktur/internal/services"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	catalog *services.Catalog
}

func NewProductHandler(catalog *services.Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

func (h *ProductHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.View)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/restock", h.Restock)
	r.Patch("/{id}/stock", h.AdjustStock)
	r.Delete("/{id}", h.Delete)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	if !decode(w, r, "Invalid product payload", &in) {
		return
	}
	p, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, "Failed to create product", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Product created", p)
}

func (h *ProductHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid product id")
	if !ok {
		return
	}
	p, err := h.catalog.Find(r.Context(), id)
	if err != nil {
		writeError(w, r, "Product not available", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Product retrieved", p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid product id")
	if !ok {
		return
	}
	var patch services.ProductPatch
	if !decode(w, r, "Invalid product payload", &patch) {
		return
	}
	p, err := h.catalog.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, "Failed to update product", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Product updated", p)
}

// AdjustStock applies a manual add, subtract or set to the stock level.
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid product id")
	if !ok {
		return
	}
	var adj services.StockAdjustment
	if !decode(w, r, "Invalid stock payload", &adj) {
		return
	}
	change, err := h.catalog.AdjustStock(r.Context(), id, adj)
	if err != nil {
		writeError(w, r, "Failed to adjust stock", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Stock adjusted", change)
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *ProductHandler) Restock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid product id")
	if !ok {
		return
	}
	var req restockRequest
	if !decode(w, r, "Invalid restock payload", &req) {
		return
	}
	p, err := h.catalog.Restock(r.Context(), id, req.Quantity)
	if err != nil {
		writeError(w, r, "Failed to restock product", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Product restocked", p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid product id")
	if !ok {
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete product", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Product deleted", nil)
}
