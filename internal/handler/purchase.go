package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/pkg/response"
)

type PurchaseHandler struct {
	service   PurchaseService
	validator *validator.Validate
}

func NewPurchaseHandler(service PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		service:   service,
		validator: newValidator(),
	}
}

// CreatePurchase handles POST /api/v1/purchases
func (h *PurchaseHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePurchaseRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	purchase, err := h.service.CreatePurchase(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, purchase)
}

// GetPurchase handles GET /api/v1/purchases/{purchaseId}
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "purchaseId")
	if !ok {
		return
	}

	purchase, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, purchase)
}

// ListCustomerPurchases handles GET /api/v1/customers/{customerId}/purchases
func (h *PurchaseHandler) ListCustomerPurchases(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	purchases, err := h.service.ListCustomerPurchases(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, purchases)
}

// ListPurchases handles GET /api/v1/purchases
func (h *PurchaseHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePurchaseFilter(r.URL.Query())
	if err != nil {
		response.BadRequest(w, "Invalid query", err)
		return
	}

	purchases, err := h.service.ListPurchases(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, purchases)
}
