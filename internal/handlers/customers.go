package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookablehq/bookable-core/internal/audit"
	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/repository"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// CustomerHandler serves tenant-facing customer CRUD.
type CustomerHandler struct {
	customers *repository.CustomerRepository
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers *repository.CustomerRepository) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

type customerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateCustomer creates a new customer in the request's tenant
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	customer := &models.Customer{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := h.customers.Create(r.Context(), db, customer); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, customer)
}

// ListCustomers lists customers in the request's tenant
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	customers, err := h.customers.List(r.Context(), db, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

// GetCustomer retrieves one customer
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid customer id"})
		return
	}

	customer, err := h.customers.GetByID(r.Context(), db, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// UpdateCustomer applies changes to a customer
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid customer id"})
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	changes := map[string]any{}
	if req.Name != "" {
		changes["name"] = req.Name
	}
	if req.Email != "" {
		changes["email"] = req.Email
	}
	if req.Phone != "" {
		changes["phone"] = req.Phone
	}
	if len(changes) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no changes supplied"})
		return
	}

	if err := h.customers.Update(r.Context(), db, id, changes); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCustomer removes a customer. The deletion is recorded in the audit
// log after the fact; a failed audit write never blocks the delete.
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid customer id"})
		return
	}

	if err := h.customers.Delete(r.Context(), db, id); err != nil {
		writeError(w, r, err)
		return
	}

	scope, _ := tenantdb.ScopeFromContext(r.Context())
	audit.Log(r.Context(), db, &models.AuditLog{
		ActorID:  scope.UserID,
		Action:   "customer.delete",
		Resource: "customer:" + id.String(),
	})

	w.WriteHeader(http.StatusNoContent)
}

type loyaltyRequest struct {
	Points int64 `json:"points"`
}

// CreditLoyaltyPoints credits loyalty points to a customer
func (h *CustomerHandler) CreditLoyaltyPoints(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid customer id"})
		return
	}

	var req loyaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Points <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "points must be positive"})
		return
	}

	scope, _ := tenantdb.ScopeFromContext(r.Context())
	if err := h.customers.AddLoyaltyPoints(r.Context(), db, id, scope.UserID, req.Points); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
