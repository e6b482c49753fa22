package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/centxo/adser-dashboard/internal/cache"
	"github.com/centxo/adser-dashboard/internal/config"
	"github.com/centxo/adser-dashboard/internal/database"
	"github.com/centxo/adser-dashboard/internal/metrics"
	"github.com/centxo/adser-dashboard/internal/models"
	"github.com/centxo/adser-dashboard/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var bangkok = time.FixedZone("ICT", 7*60*60)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, bangkok)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ADSER_STORE_DRIVER", config.StoreDriverMemory)
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func seededStore() *storage.InMemoryMetricStore {
	store := storage.NewInMemoryMetricStore()
	store.AddRecords(
		&models.MetricRecord{Team: "สาวอ้อย", Adser: models.StringPtr("แอน"), Date: day(2025, 1, 1), Spend: 100, Message: 50, Deposit: 5, TurnoverAdser: 1000},
		&models.MetricRecord{Team: "สาวอ้อย", Adser: models.StringPtr("แอน"), Date: day(2025, 1, 2), Spend: 200, Message: 100, Deposit: 10, TurnoverAdser: 2000},
	)
	return store
}

func newTestServer(t *testing.T, store storage.MetricStore, mod func(*Dependencies)) http.Handler {
	t.Helper()
	deps := &Dependencies{
		Store:   store,
		Config:  testConfig(t),
		Logger:  zap.NewNop(),
		Metrics: metrics.NewMetrics("test", prometheus.NewRegistry()),
		Now:     func() time.Time { return day(2025, 1, 31) },
	}
	if mod != nil {
		mod(deps)
	}
	return NewServer(deps)
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestDashboardDataEndToEnd(t *testing.T) {
	h := newTestServer(t, seededStore(), nil)

	rec, body := get(t, h, "/api/dashboard/data?startDate=2025-01-01&endDate=2025-01-31&tab=lottery&view=team")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, 35.0, body["exchangeRate"])
	assert.Equal(t, 4.0, body["count"])
	assert.Equal(t, map[string]interface{}{"start": "2025-01-01", "end": "2025-01-31"}, body["dateRange"])
	assert.NotEmpty(t, body["timestamp"])

	rows := body["data"].([]interface{})
	require.Len(t, rows, 4)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "สาวอ้อย", row["team"])
	assert.Equal(t, "2025-01-01", row["date"])
	assert.Equal(t, 300.0, row["spend"])
	assert.Equal(t, 150.0, row["message"])
	assert.Equal(t, 15.0, row["deposit"])
	assert.Equal(t, 3000.0, row["turnoverAdser"])
	assert.Equal(t, 2.0, row["dayCount"])
	assert.Equal(t, 2.0, row["cpm"])
	assert.Equal(t, 20.0, row["costPerDeposit"])
	assert.Equal(t, 0.2857, row["dollarPerCover"])
	for _, field := range []string{"planMessage", "planSpend", "netMessages", "lostMessages", "turnover", "silent", "duplicate", "hasUser", "spam", "blocked", "under18", "over50", "foreign"} {
		assert.Contains(t, row, field)
	}
}

func TestDashboardChartsEndToEnd(t *testing.T) {
	h := newTestServer(t, seededStore(), nil)

	rec, body := get(t, h, "/api/dashboard/charts?startDate=2025-01-01&endDate=2025-01-02&tab=lottery")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "daily", body["period"])
	assert.Equal(t, "team", body["view"])

	data := body["data"].([]interface{})
	require.Len(t, data, 2)
	second := data[1].(map[string]interface{})
	assert.Equal(t, "2", second["period"])
	assert.Equal(t, "2025-01-02", second["date"])
	assert.Equal(t, 10.0, second["depositAmount"])

	point := second["สาวอ้อย"].(map[string]interface{})
	assert.Equal(t, 2.0, point["cpm"])
	assert.Equal(t, 20.0, point["costPerDeposit"])
	assert.Equal(t, 10.0, point["depositAmount"])
	assert.Equal(t, 0.2857, point["dollarPerCover"])
	assert.Equal(t, 200.0, point["spend"])
}

func TestDashboardBadRequests(t *testing.T) {
	h := newTestServer(t, seededStore(), nil)

	tests := []struct {
		target string
		want   string
	}{
		{"/api/dashboard/data?startDate=2025-01-01&tab=lottery", "Missing required parameters: startDate, endDate, tab"},
		{"/api/dashboard/charts?endDate=2025-01-01&tab=lottery", "Missing required parameters: startDate, endDate, tab"},
		{"/api/dashboard/data?startDate=2025-01-01&endDate=2025-01-31&tab=poker", "Invalid tab: poker"},
		{"/api/dashboard/charts?startDate=2025-01-01&endDate=2025-01-31&tab=poker", "Invalid tab: poker"},
		{"/api/dashboard/data?startDate=2025-01-01&endDate=2025-01-31&tab=lottery&view=campaign", "Invalid view: campaign"},
		{"/api/dashboard/charts?startDate=2025-01-01&endDate=2025-01-31&tab=lottery&period=weekly", "Invalid period: weekly"},
		{"/api/dashboard/data?startDate=2025-13-01&endDate=2025-01-31&tab=lottery", "Invalid date format, expected yyyy-MM-dd"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec, body := get(t, h, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, body["error"])
		})
	}
}

func TestDashboardLegacyChartTab(t *testing.T) {
	h := newTestServer(t, seededStore(), func(d *Dependencies) {
		d.Config.Dashboard.LegacyChartTab = true
	})

	rec, body := get(t, h, "/api/dashboard/charts?startDate=2025-01-01&endDate=2025-01-31&tab=poker")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []interface{}{}, body["data"])
}

func TestDashboardMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, seededStore(), nil)

	for _, path := range []string{"/api/dashboard/data", "/api/dashboard/charts", "/api/dashboard/tabs"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

type brokenStore struct {
	*storage.InMemoryMetricStore
}

func (brokenStore) LatestExchangeRate(context.Context) (*models.ExchangeRate, error) {
	return nil, errors.New("relation \"exchange_rates\" does not exist")
}

func (brokenStore) Health(context.Context) error {
	return errors.New("connection refused")
}

func TestDashboardStoreFailure(t *testing.T) {
	h := newTestServer(t, brokenStore{seededStore()}, nil)

	rec, body := get(t, h, "/api/dashboard/data?startDate=2025-01-01&endDate=2025-01-31&tab=lottery")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch dashboard data", body["error"])
	assert.Contains(t, body["details"], "exchange_rates")

	rec, body = get(t, h, "/api/dashboard/charts?startDate=2025-01-01&endDate=2025-01-31&tab=lottery")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch chart data", body["error"])

	rec, body = get(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestTabsAndHealth(t *testing.T) {
	h := newTestServer(t, seededStore(), nil)

	rec, body := get(t, h, "/api/dashboard/tabs")
	require.Equal(t, http.StatusOK, rec.Code)
	tabs := body["tabs"].([]interface{})
	require.Len(t, tabs, 4)
	first := tabs[0].(map[string]interface{})
	assert.Equal(t, "lottery", first["id"])
	assert.Equal(t, []interface{}{"สาวอ้อย", "อลิน", "ลัคกี้", "เอฟซี"}, first["teams"])

	rec, body = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestDashboardCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := database.NewRedisDB(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	store := seededStore()
	h := newTestServer(t, store, func(d *Dependencies) {
		d.Redis = rdb
		d.Cache = cache.NewSWRCache(rdb.Client, d.Config.Cache, zap.NewNop(), d.Metrics)
	})

	target := "/api/dashboard/data?startDate=2025-01-01&endDate=2025-01-31&tab=lottery&view=all"
	rec, body := get(t, h, target)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	first := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, 300.0, first["spend"])

	store.AddRecords(&models.MetricRecord{Team: "อลิน", Date: day(2025, 1, 3), Spend: 1000})

	rec, body = get(t, h, target)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh", rec.Header().Get("X-Cache"))
	first = body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, 300.0, first["spend"])

	rec, _ = get(t, h, "/api/dashboard/data?startDate=2025-01-01&endDate=2025-01-31&tab=poker")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, mr.Keys(), 1)

	rec, body = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"store": "ok", "redis": "ok"}, body["checks"])
}
