package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/metrics"
	"github.com/segyhp/credit-engine/pkg/response"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Purchases *PurchaseHandler
	Payments  *PaymentHandler
	Customers *CustomerHandler
	Accounts  *AccountHandler
	Health    *HealthHandler
}

// NewRouter wires every route. m may be nil, in which case /metrics is not served.
func NewRouter(h Handlers, m *metrics.Metrics, log *logrus.Logger) *mux.Router {
	router := mux.NewRouter()

	var observe response.Observer
	if m != nil {
		observe = m.ObserveRequest
		router.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.CORSMiddleware)
	api.Use(response.LoggingMiddleware(log, observe))

	api.HandleFunc("/customers", h.Customers.CreateCustomer).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/customers", h.Customers.GetCustomerByEmail).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customerId}", h.Customers.GetCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customerId}", h.Customers.DeactivateCustomer).Methods(http.MethodDelete, http.MethodOptions)

	api.HandleFunc("/purchases", h.Purchases.ListPurchases).Methods(http.MethodGet)
	api.HandleFunc("/purchases", h.Purchases.CreatePurchase).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/purchases/{purchaseId}", h.Purchases.GetPurchase).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customerId}/purchases", h.Purchases.ListCustomerPurchases).Methods(http.MethodGet)

	api.HandleFunc("/payments", h.Payments.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/payments", h.Payments.ApplyPayment).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/payments/{paymentId}", h.Payments.GetPayment).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customerId}/payments", h.Payments.ListCustomerPayments).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customerId}/payment-summary", h.Payments.PaymentSummary).Methods(http.MethodGet)

	api.HandleFunc("/customers/{customerId}/account-status", h.Accounts.GetAccountStatus).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customerId}/recalculate", h.Accounts.Recalculate).Methods(http.MethodPost)
	api.HandleFunc("/account-statuses", h.Accounts.ListByClassification).Methods(http.MethodGet)

	return router
}
