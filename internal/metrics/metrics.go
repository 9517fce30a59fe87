package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds the Prometheus collectors of the credit engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Registry owns the collectors; the /metrics endpoint serves it.
	Registry *prometheus.Registry

	purchasesCreated prometheus.Counter
	purchaseAmount   prometheus.Histogram
	paymentsApplied  *prometheus.CounterVec
	purchasesPaidOff prometheus.Counter
	ruleRejections   *prometheus.CounterVec
	txRetries        *prometheus.CounterVec
	overdueMarked    prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// New registers all collectors in a private registry, so calling it more
// than once (tests) never panics on duplicate registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		purchasesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "credit_purchases_created_total",
			Help: "Credit purchases created.",
		}),
		purchaseAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "credit_purchase_amount",
			Help:    "Total amount of created purchases.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000},
		}),
		paymentsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_payments_applied_total",
			Help: "Payments applied to installments.",
		}, []string{"method"}),
		purchasesPaidOff: factory.NewCounter(prometheus.CounterOpts{
			Name: "credit_purchases_paid_off_total",
			Help: "Purchases whose last installment was paid.",
		}),
		ruleRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_rule_rejections_total",
			Help: "Operations rejected by a business rule.",
		}, []string{"operation", "code"}),
		txRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_tx_retries_total",
			Help: "Transaction attempts retried after a conflict.",
		}, []string{"operation"}),
		overdueMarked: factory.NewCounter(prometheus.CounterOpts{
			Name: "credit_installments_marked_overdue_total",
			Help: "Installments moved to OVERDUE by the sweep.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credit_http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) PurchaseCreated(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.purchasesCreated.Inc()
	m.purchaseAmount.Observe(total.InexactFloat64())
}

func (m *Metrics) PaymentApplied(method string, purchasePaidOff bool) {
	if m == nil {
		return
	}
	m.paymentsApplied.WithLabelValues(method).Inc()
	if purchasePaidOff {
		m.purchasesPaidOff.Inc()
	}
}

func (m *Metrics) RuleRejected(operation, code string) {
	if m == nil {
		return
	}
	m.ruleRejections.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) TxRetried(operation string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) OverdueMarked(n int) {
	if m == nil {
		return
	}
	m.overdueMarked.Add(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
