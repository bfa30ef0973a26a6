package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	// Arrange
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	handler := Middleware(mux)
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "GET /api/v1/orders/{id}"))

	// Act
	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	// Assert
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "GET /api/v1/orders/{id}"))
	assert.Equal(t, float64(2), after-before)
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight))
}

func TestRecordCheckout(t *testing.T) {
	before := testutil.ToFloat64(checkoutRequestsTotal.WithLabelValues("finalize", "ok"))

	RecordCheckout("finalize", "ok")
	RecordOrderPlaced()

	assert.Equal(t, float64(1), testutil.ToFloat64(checkoutRequestsTotal.WithLabelValues("finalize", "ok"))-before)
	assert.GreaterOrEqual(t, testutil.ToFloat64(ordersPlacedTotal), float64(1))
}
