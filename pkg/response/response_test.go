package response

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/credit-engine/pkg/errors"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "not found",
			err:            customError.WrapCustomerNotFound("c-1"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   customError.ErrCodeCustomerNotFound,
			expectedMsg:    "Customer with ID c-1 not found",
		},
		{
			name:           "rule violation",
			err:            customError.WrapCreditExceeded(decimal.NewFromInt(50), decimal.NewFromInt(80)),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   customError.ErrCodeCreditExceeded,
			expectedMsg:    "Insufficient credit. Available: 50.00, required: 80.00",
		},
		{
			name:           "conflict",
			err:            customError.WrapConcurrencyConflict(stderrors.New("40001")),
			expectedStatus: http.StatusConflict,
			expectedCode:   customError.ErrCodeConcurrencyConflict,
		},
		{
			name:           "internal hides details",
			err:            customError.WrapDatabaseError(stderrors.New("password authentication failed")),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   customError.ErrCodeDatabaseError,
			expectedMsg:    "Internal server error",
		},
		{
			name:           "plain error",
			err:            stderrors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromError(w, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.expectedCode, body.Code)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, body.Message)
			}
			assert.NotContains(t, w.Body.String(), "password")
		})
	}
}

func TestLoggingMiddleware_ObservesRouteTemplate(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	var (
		gotRoute  string
		gotStatus int
	)
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(log, func(method, route string, status int, _ time.Duration) {
		gotRoute, gotStatus = route, status
	}))
	router.HandleFunc("/purchases/{purchaseId}", func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "Purchase not found")
	}).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/purchases/123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/purchases/{purchaseId}", gotRoute)
	assert.Equal(t, http.StatusNotFound, gotStatus)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	h := CORSMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/payments", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, called)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}
