package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	h := m.Instrument("GET /posts/{id}")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for range 2 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/posts/1", nil))
	}

	expected := `
# HELP http_requests_total Total number of HTTP requests
# TYPE http_requests_total counter
http_requests_total{code="404",method="get",route="GET /posts/{id}"} 2
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total")
	require.NoError(t, err)

	require.Equal(t, 1, testutil.CollectAndCount(m.duration), "one series per route, method and code")

	t.Run("register twice fail", func(t *testing.T) {
		_, err := NewMetrics(reg)

		require.Error(t, err)
	})
}
