package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"happymart-dashboard/internal/config"
	"happymart-dashboard/internal/dataset"
	"happymart-dashboard/internal/format"
	"happymart-dashboard/internal/middleware"
	"happymart-dashboard/internal/observability"
	"happymart-dashboard/internal/services"
)

const ordersCSV = `order_id,customer_unique_id,order_approved_at,payment_value,product_category_name,review_score,order_status
o1,A,2018-01-05 10:30:00,10,toys,5,delivered
o2,A,2018-01-20 10:30:00,20,books,4,delivered
o3,B,2018-02-10 10:30:00,5,toys,5,delivered
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Data: config.DataConfig{
			SnapshotFile: filepath.Join(t.TempDir(), "main_data.csv"),
		},
		Cache: config.CacheConfig{Enabled: true, MaxEntries: 8},
		Security: config.SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  100,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (http.Handler, *services.Analytics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ds, err := dataset.Load(context.Background(), strings.NewReader(ordersCSV))
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	analytics := services.NewAnalytics(ds, analyticsOptions(cfg, logger, metrics, format.BRL())...)
	handler := newHandler(cfg, logger, analytics, metrics, middleware.NewRateLimiter(cfg.Security))
	return handler, analytics
}

func TestDashboardPage(t *testing.T) {
	handler, _ := newTestApp(t, testConfig(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	body := rec.Body.String()
	assert.Contains(t, body, dashboardTitle)
	assert.Contains(t, body, `min="2018-01-05" max="2018-02-10"`)
}

func TestReportWritesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	handler, _ := newTestApp(t, cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report?start=2018-01-05&end=2018-01-20", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data struct {
			FilteredRows int `json:"filtered_rows"`
		} `json:"data"`
		Success bool `json:"success"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Equal(t, 2, env.Data.FilteredRows)

	data, err := os.ReadFile(cfg.Data.SnapshotFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], ",order_status"))
}

func TestSnapshotDisabled(t *testing.T) {
	cfg := testConfig(t)
	path := cfg.Data.SnapshotFile
	cfg.Data.SnapshotFile = ""
	handler, _ := newTestApp(t, cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rfm", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCacheOption(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	_, analytics := newTestApp(t, cfg)
	assert.Equal(t, false, analytics.Stats()["cache_enabled"])

	cfg = testConfig(t)
	_, analytics = newTestApp(t, cfg)
	assert.Equal(t, true, analytics.Stats()["cache_enabled"])
}

func TestRateLimitApplies(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RateLimitRPS = 1
	cfg.Security.RateLimitBurst = 1
	handler, _ := newTestApp(t, cfg)

	codes := make([]int, 0, 2)
	for range 2 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.1.1.1:1234"
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := newTestApp(t, testConfig(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "happymart_dataset_rows 3")
}

func TestDashboardHandler(t *testing.T) {
	_, analytics := newTestApp(t, testConfig(t))
	h := dashboardHandler(analytics)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
}
