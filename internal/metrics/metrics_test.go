package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("adser", reg)

	m.RecordRequest("/api/dashboard/data", http.MethodGet, 200, 20*time.Millisecond)
	m.RecordRecordsAggregated("data", "lottery", 12)
	m.RecordExchangeRateFallback()
	m.RecordStoreError("list_records")
	m.RecordCacheResult("fresh")
	m.UpdateDBStats(3, 2, 5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `adser_http_requests_total{method="GET",route="/api/dashboard/data",status="200"} 1`)
	assert.Contains(t, body, `adser_records_aggregated_total{endpoint="data",tab="lottery"} 12`)
	assert.Contains(t, body, "adser_exchange_rate_fallbacks_total 1")
	assert.Contains(t, body, `adser_store_errors_total{operation="list_records"} 1`)
	assert.Contains(t, body, `adser_db_connections{state="total"} 5`)
}

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("adser", prometheus.NewRegistry())
		NewMetrics("adser", prometheus.NewRegistry())
	})
}
