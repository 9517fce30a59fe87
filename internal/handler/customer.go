package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/pkg/response"
)

type CustomerHandler struct {
	service   CustomerService
	validator *validator.Validate
}

func NewCustomerHandler(service CustomerService) *CustomerHandler {
	return &CustomerHandler{
		service:   service,
		validator: newValidator(),
	}
}

// CreateCustomer handles POST /api/v1/customers
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	customer, err := h.service.CreateCustomer(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, customer)
}

// GetCustomer handles GET /api/v1/customers/{customerId}
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, customer)
}

// GetCustomerByEmail handles GET /api/v1/customers?email=
func (h *CustomerHandler) GetCustomerByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := h.validator.Var(email, "required,email"); err != nil {
		response.BadRequest(w, "Invalid email", err)
		return
	}

	customer, err := h.service.GetCustomerByEmail(r.Context(), email)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, customer)
}

// DeactivateCustomer handles DELETE /api/v1/customers/{customerId}
func (h *CustomerHandler) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	customer, err := h.service.DeactivateCustomer(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, customer)
}
