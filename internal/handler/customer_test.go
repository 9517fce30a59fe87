package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/credit-engine/internal/domain"
	customError "github.com/segyhp/credit-engine/pkg/errors"
)

func TestCustomerHandler_CreateCustomer(t *testing.T) {
	validBody := map[string]interface{}{
		"name":                       "Renata Souza",
		"email":                      "renata@example.com",
		"credit_limit":               "2500.00",
		"max_installments":           12,
		"delinquency_tolerance_days": 10,
		"pay_day":                    5,
	}
	with := func(key string, value interface{}) map[string]interface{} {
		body := make(map[string]interface{}, len(validBody))
		for k, v := range validBody {
			body[k] = v
		}
		body[key] = value
		return body
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*testServer)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:        "created",
			requestBody: validBody,
			setupMock: func(s *testServer) {
				s.customers.On("CreateCustomer", mock.Anything, mock.MatchedBy(func(req *domain.CreateCustomerRequest) bool {
					return req.Email == "renata@example.com" && req.CreditLimit.Equal(decimal.RequireFromString("2500"))
				})).Return(&domain.Customer{ID: uuid.New(), Active: true}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "zero limit is accepted",
			requestBody: with("credit_limit", "0"),
			setupMock: func(s *testServer) {
				s.customers.On("CreateCustomer", mock.Anything, mock.Anything).
					Return(&domain.Customer{ID: uuid.New(), Active: true}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "negative limit",
			requestBody:    with("credit_limit", "-10"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed email",
			requestBody:    with("email", "not-an-email"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "pay day out of range",
			requestBody:    with("pay_day", 40),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "email taken",
			requestBody: validBody,
			setupMock: func(s *testServer) {
				s.customers.On("CreateCustomer", mock.Anything, mock.Anything).
					Return(nil, customError.NewBusinessError(customError.ErrCodeEmailTaken, "taken", nil))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   customError.ErrCodeEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if tt.setupMock != nil {
				tt.setupMock(s)
			}

			w := s.do(http.MethodPost, "/api/v1/customers", tt.requestBody, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeEnvelope(t, w).Code)
			}
		})
	}
}

func TestCustomerHandler_Lookups(t *testing.T) {
	s := newTestServer(t)
	customerID := uuid.New()
	customer := &domain.Customer{ID: customerID, Email: "renata@example.com", Active: true}

	s.customers.On("GetCustomer", mock.Anything, customerID).Return(customer, nil)
	s.customers.On("GetCustomerByEmail", mock.Anything, "renata@example.com").Return(customer, nil)
	s.customers.On("GetCustomerByEmail", mock.Anything, "ghost@example.com").
		Return(nil, customError.WrapCustomerEmailNotFound("ghost@example.com"))

	w := s.do(http.MethodGet, "/api/v1/customers/"+customerID.String(), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), customerID.String())

	w = s.do(http.MethodGet, "/api/v1/customers?email=renata@example.com", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/customers?email=ghost@example.com", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, customError.ErrCodeCustomerNotFound, decodeEnvelope(t, w).Code)

	w = s.do(http.MethodGet, "/api/v1/customers", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/customers/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerHandler_DeactivateCustomer(t *testing.T) {
	s := newTestServer(t)
	clean := uuid.New()
	indebted := uuid.New()

	s.customers.On("DeactivateCustomer", mock.Anything, clean).Return(&domain.Customer{ID: clean}, nil)
	s.customers.On("DeactivateCustomer", mock.Anything, indebted).
		Return(nil, customError.NewBusinessError(customError.ErrCodeCustomerHasDebt, "still owes 10.00", nil))

	w := s.do(http.MethodDelete, "/api/v1/customers/"+clean.String(), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"active":false`)

	w = s.do(http.MethodDelete, "/api/v1/customers/"+indebted.String(), nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, customError.ErrCodeCustomerHasDebt, decodeEnvelope(t, w).Code)
}

func TestListPurchases_QueryParsing(t *testing.T) {
	customerID := uuid.New()

	tests := []struct {
		name           string
		query          string
		check          func(t *testing.T, f domain.PurchaseFilter) bool
		expectedStatus int
	}{
		{
			name:  "unscoped",
			query: "",
			check: func(t *testing.T, f domain.PurchaseFilter) bool {
				return f.CustomerID == nil && f.From == nil && f.To == nil && f.Limit == 0
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "every parameter",
			query: "?customer_id=" + customerID.String() + "&from=2024-01-01&to=2024-01-31&min_amount=10&max_amount=99.90&status=active&limit=20",
			check: func(t *testing.T, f domain.PurchaseFilter) bool {
				return *f.CustomerID == customerID &&
					f.From.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)) &&
					f.To.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) &&
					f.MinAmount.Equal(decimal.RequireFromString("10")) &&
					f.MaxAmount.Equal(decimal.RequireFromString("99.90")) &&
					f.Status == "active" && f.Limit == 20
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "rfc3339 bounds are exact",
			query: "?from=2024-01-01T12:00:00Z&to=2024-01-02T12:00:00Z",
			check: func(t *testing.T, f domain.PurchaseFilter) bool {
				return f.To.Equal(time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC))
			},
			expectedStatus: http.StatusOK,
		},
		{name: "bad customer", query: "?customer_id=42", expectedStatus: http.StatusBadRequest},
		{name: "bad date", query: "?from=01/02/2024", expectedStatus: http.StatusBadRequest},
		{name: "bad amount", query: "?min_amount=ten", expectedStatus: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=many", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if tt.check != nil {
				s.purchases.On("ListPurchases", mock.Anything, mock.MatchedBy(func(f domain.PurchaseFilter) bool {
					return tt.check(t, f)
				})).Return([]*domain.Purchase{}, nil)
			}

			w := s.do(http.MethodGet, "/api/v1/purchases"+tt.query, nil, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestListPurchases_ServiceRejectsFilter(t *testing.T) {
	s := newTestServer(t)
	s.purchases.On("ListPurchases", mock.Anything, mock.Anything).
		Return(nil, customError.NewBusinessError(customError.ErrCodeInvalidFilter, "unknown purchase status", nil))

	w := s.do(http.MethodGet, "/api/v1/purchases?status=VOID", nil, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, customError.ErrCodeInvalidFilter, decodeEnvelope(t, w).Code)
}

func TestListPayments_QueryParsing(t *testing.T) {
	s := newTestServer(t)
	paymentID := uuid.New()
	s.payments.On("ListPayments", mock.Anything, mock.MatchedBy(func(f domain.PaymentFilter) bool {
		return f.Method == "CARD" && f.To != nil && f.To.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) &&
			f.MinAmount != nil && f.MinAmount.Equal(decimal.RequireFromString("5"))
	})).Return([]*domain.Payment{{ID: paymentID}}, nil)

	w := s.do(http.MethodGet, "/api/v1/payments?method=CARD&to=2024-02-29&min_amount=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), paymentID.String())

	w = s.do(http.MethodGet, "/api/v1/payments?max_amount=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
