package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/pkg/response"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

type PaymentHandler struct {
	service   PaymentService
	validator *validator.Validate
}

func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: newValidator(),
	}
}

// ApplyPayment handles POST /api/v1/payments
func (h *PaymentHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if len(key) > maxIdempotencyKeyLen {
		response.BadRequest(w, "Idempotency-Key is too long", nil)
		return
	}

	var req domain.ApplyPaymentRequest
	if !decode(w, r, h.validator, &req) {
		return
	}
	req.IdempotencyKey = key

	payment, err := h.service.ApplyPayment(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, payment)
}

// GetPayment handles GET /api/v1/payments/{paymentId}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payment)
}

// ListCustomerPayments handles GET /api/v1/customers/{customerId}/payments
func (h *PaymentHandler) ListCustomerPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	payments, err := h.service.ListCustomerPayments(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payments)
}

// PaymentSummary handles GET /api/v1/customers/{customerId}/payment-summary
func (h *PaymentHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	summary, err := h.service.PaymentSummary(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, summary)
}

// ListPayments handles GET /api/v1/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePaymentFilter(r.URL.Query())
	if err != nil {
		response.BadRequest(w, "Invalid query", err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payments)
}
