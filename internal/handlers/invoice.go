package handlers

import (
	"net/http"

	"github.com/diewo77/go-faktur/auth"
	"github.com/diewo77/go-faktur/httpx"
	"github.com/diewo77/go-faktur/internal/services"
	"github.com/go-chi/chi/v5"
)

type InvoiceHandler struct {
	svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// Routes mounts the invoice endpoints, e.g. r.Route("/invoices", h.Routes).
func (h *InvoiceHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Amend)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/lines", h.Lines)
	r.Put("/{id}/lines", h.AmendLines)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := services.ListQuery{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 20),
	}
	if c := queryInt(r, "customer_id", 0); c > 0 {
		q.CustomerID = uint(c)
	}
	q.Normalize()
	invoices, total, err := h.svc.List(r.Context(), q)
	if err != nil {
		writeError(w, r, "Failed to list invoices", err)
		return
	}
	httpx.Page(w, "Invoices retrieved", invoices, httpx.Pagination{Page: q.Page, Limit: q.Limit, Total: total})
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateInput
	if !decode(w, r, "Invalid invoice payload", &in) {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.svc.Create(r.Context(), actorID, in)
	if err != nil {
		writeError(w, r, "Failed to create invoice", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Invoice created", inv)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid invoice id")
	if !ok {
		return
	}
	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, "Invoice not available", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Invoice retrieved", inv)
}

func (h *InvoiceHandler) Lines(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid invoice id")
	if !ok {
		return
	}
	lines, err := h.svc.Lines(r.Context(), id)
	if err != nil {
		writeError(w, r, "Invoice lines not available", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Invoice lines retrieved", lines)
}

func (h *InvoiceHandler) Amend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid invoice id")
	if !ok {
		return
	}
	var in services.AmendInput
	if !decode(w, r, "Invalid invoice payload", &in) {
		return
	}
	inv, err := h.svc.Amend(r.Context(), id, in)
	if err != nil {
		writeError(w, r, "Failed to update invoice", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Invoice updated", inv)
}

type amendLinesRequest struct {
	Lines []services.LineInput `json:"lines"`
}

func (h *InvoiceHandler) AmendLines(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid invoice id")
	if !ok {
		return
	}
	var req amendLinesRequest
	if !decode(w, r, "Invalid invoice lines payload", &req) {
		return
	}
	inv, err := h.svc.AmendLines(r.Context(), id, req.Lines)
	if err != nil {
		writeError(w, r, "Failed to update invoice lines", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Invoice lines updated", inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid invoice id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete invoice", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Invoice deleted", nil)
}
