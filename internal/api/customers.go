package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/customer-core/internal/audit"
	"github.com/nerrad567/customer-core/internal/customer"
)

// customerRequest is the request body for creating or updating a customer.
type customerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Status   string `json:"status"`
}

// handleListCustomers returns a page of customer records.
func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))   //nolint:errcheck // zero means default
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset")) //nolint:errcheck // zero means first page

	customers, total, err := s.customers.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("listing customers", "error", err)
		writeInternalError(w, "failed to list customers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customers": customers,
		"count":     len(customers),
		"total":     total,
	})
}

// handleCreateCustomer creates a new customer record.
func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.FullName == "" || req.Email == "" {
		writeBadRequest(w, "full_name and email are required")
		return
	}
	if req.Status != "" && !customer.IsValidStatus(customer.Status(req.Status)) {
		writeBadRequest(w, "status must be active, inactive, or suspended")
		return
	}

	c := &customer.Customer{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Status:   customer.Status(req.Status),
	}

	if err := s.customers.Create(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, customer.ErrEmailInUse):
			writeConflict(w, "email already in use by another customer")
		case errors.Is(err, customer.ErrCodeExists):
			writeConflict(w, "customer code already exists")
		default:
			s.logger.Error("creating customer", "error", err)
			writeInternalError(w, "failed to create customer")
		}
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "create",
		EntityType: "customer",
		EntityID:   c.ID,
		UserID:     requestActor(r),
	})

	writeJSON(w, http.StatusCreated, c)
}

// handleGetCustomer returns a single customer by ID.
func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.customers.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			writeNotFound(w, "customer not found")
			return
		}
		s.logger.Error("getting customer", "id", id, "error", err)
		writeInternalError(w, "failed to get customer")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleGetCustomerByCode returns a single customer by customer code.
func (s *Server) handleGetCustomerByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	c, err := s.customers.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			writeNotFound(w, "customer not found")
			return
		}
		s.logger.Error("getting customer by code", "code", code, "error", err)
		writeInternalError(w, "failed to get customer")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleUpdateCustomer modifies a customer's mutable fields. The
// customer code never changes after creation.
func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.customers.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			writeNotFound(w, "customer not found")
			return
		}
		s.logger.Error("loading customer for update", "id", id, "error", err)
		writeInternalError(w, "failed to update customer")
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.FullName != "" {
		existing.FullName = req.FullName
	}
	if req.Email != "" {
		existing.Email = req.Email
	}
	if req.Phone != "" {
		existing.Phone = req.Phone
	}
	if req.Address != "" {
		existing.Address = req.Address
	}
	if req.Status != "" {
		if !customer.IsValidStatus(customer.Status(req.Status)) {
			writeBadRequest(w, "status must be active, inactive, or suspended")
			return
		}
		existing.Status = customer.Status(req.Status)
	}

	if err := s.customers.Update(r.Context(), existing); err != nil {
		switch {
		case errors.Is(err, customer.ErrNotFound):
			writeNotFound(w, "customer not found")
		case errors.Is(err, customer.ErrEmailInUse):
			writeConflict(w, "email already in use by another customer")
		default:
			s.logger.Error("updating customer", "id", id, "error", err)
			writeInternalError(w, "failed to update customer")
		}
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "update",
		EntityType: "customer",
		EntityID:   existing.ID,
		UserID:     requestActor(r),
	})

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteCustomer removes a customer record.
func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.customers.Delete(r.Context(), id); err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			writeNotFound(w, "customer not found")
			return
		}
		s.logger.Error("deleting customer", "id", id, "error", err)
		writeInternalError(w, "failed to delete customer")
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "delete",
		EntityType: "customer",
		EntityID:   id,
		UserID:     requestActor(r),
	})

	w.WriteHeader(http.StatusNoContent)
}

// handleSearchCustomers searches customer records.
//
// With ?q= it runs a keyword search over name, email, and customer code.
// Otherwise ?name=, ?email=, and ?status= combine as field filters.
func (s *Server) handleSearchCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var results []customer.Customer
	var err error

	if keyword := q.Get("q"); keyword != "" {
		results, err = s.customers.Search(r.Context(), keyword)
	} else {
		status := customer.Status(q.Get("status"))
		if status != "" && !customer.IsValidStatus(status) {
			writeBadRequest(w, "status must be active, inactive, or suspended")
			return
		}
		results, err = s.customers.AdvancedSearch(r.Context(), customer.SearchFilter{
			FullName: q.Get("name"),
			Email:    q.Get("email"),
			Status:   status,
		})
	}
	if err != nil {
		s.logger.Error("searching customers", "error", err)
		writeInternalError(w, "failed to search customers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customers": results,
		"count":     len(results),
	})
}

// requestActor returns the authenticated username for audit entries.
func requestActor(r *http.Request) string {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	return claims.Subject
}
