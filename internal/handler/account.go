package handler

import (
	"net/http"

	"github.com/segyhp/credit-engine/pkg/response"
)

type AccountHandler struct {
	service AccountService
}

func NewAccountHandler(service AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// GetAccountStatus handles GET /api/v1/customers/{customerId}/account-status
func (h *AccountHandler) GetAccountStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	status, err := h.service.GetAccountStatus(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, status)
}

// Recalculate handles POST /api/v1/customers/{customerId}/recalculate
func (h *AccountHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	status, err := h.service.Recalculate(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, status)
}

// ListByClassification handles GET /api/v1/account-statuses?classification=
func (h *AccountHandler) ListByClassification(w http.ResponseWriter, r *http.Request) {
	classification := r.URL.Query().Get("classification")
	if classification == "" {
		response.BadRequest(w, "classification query parameter is required", nil)
		return
	}

	statuses, err := h.service.ListByClassification(r.Context(), classification)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, statuses)
}
