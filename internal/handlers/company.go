package handlers

import (
	"net/http"

	"github.com/diewo77/go-faktur/httpx"
	"github.com/diewo77/go-faktur/internal/services"
	"github.com/go-chi/chi/v5"
)

// CompanyHandler serves companies and the customers that may belong to them.
type CompanyHandler struct {
	parties *services.Parties
}

func NewCompanyHandler(parties *services.Parties) *CompanyHandler {
	return &CompanyHandler{parties: parties}
}

func (h *CompanyHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.View)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// CustomerRoutes mounts the customer endpoints.
func (h *CompanyHandler) CustomerRoutes(r chi.Router) {
	r.Post("/", h.CreateCustomer)
	r.Get("/{id}", h.ViewCustomer)
	r.Put("/{id}", h.UpdateCustomer)
	r.Delete("/{id}", h.DeleteCustomer)
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CompanyInput
	if !decode(w, r, "Invalid company payload", &in) {
		return
	}
	c, err := h.parties.CreateCompany(r.Context(), in)
	if err != nil {
		writeError(w, r, "Failed to create company", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Company created", c)
}

func (h *CompanyHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid company id")
	if !ok {
		return
	}
	c, err := h.parties.Company(r.Context(), id)
	if err != nil {
		writeError(w, r, "Company not available", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Company retrieved", c)
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid company id")
	if !ok {
		return
	}
	var patch services.CompanyPatch
	if !decode(w, r, "Invalid company payload", &patch) {
		return
	}
	c, err := h.parties.UpdateCompany(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, "Failed to update company", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Company updated", c)
}

func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid company id")
	if !ok {
		return
	}
	if err := h.parties.DeleteCompany(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete company", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Company deleted", nil)
}

func (h *CompanyHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in services.CustomerInput
	if !decode(w, r, "Invalid customer payload", &in) {
		return
	}
	c, err := h.parties.CreateCustomer(r.Context(), in)
	if err != nil {
		writeError(w, r, "Failed to create customer", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Customer created", c)
}

func (h *CompanyHandler) ViewCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid customer id")
	if !ok {
		return
	}
	c, err := h.parties.Customer(r.Context(), id)
	if err != nil {
		writeError(w, r, "Customer not available", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Customer retrieved", c)
}

func (h *CompanyHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid customer id")
	if !ok {
		return
	}
	var patch services.CustomerPatch
	if !decode(w, r, "Invalid customer payload", &patch) {
		return
	}
	c, err := h.parties.UpdateCustomer(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, "Failed to update customer", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Customer updated", c)
}

func (h *CompanyHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid customer id")
	if !ok {
		return
	}
	if err := h.parties.DeleteCustomer(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete customer", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Customer deleted", nil)
}
