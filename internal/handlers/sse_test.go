package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"happymart-dashboard/internal/models"
)

func sseRequest(t *testing.T, signals string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewSSEHandlers(createTestAnalytics(t), testLogger())

	target := "/sse/report"
	if signals != "" {
		target += "?datastar=" + url.QueryEscape(signals)
	}
	rec := httptest.NewRecorder()
	h.HandleReport(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSSE_Report(t *testing.T) {
	rec := sseRequest(t, `{"startDate":"2018-01-05","endDate":"2018-02-10"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	body := rec.Body.String()
	assert.Contains(t, body, "event: datastar-patch-elements")
	assert.Contains(t, body, `<div id="alert"></div>`)
	assert.Contains(t, body, `<section id="metrics" class="cards">`)
	assert.Contains(t, body, `<div id="review-legend">`)
	assert.Contains(t, body, "event: datastar-patch-signals")
	assert.Contains(t, body, `"charts":{"monthly":{"label":"Orders","labels":["2018-01"],"values":[2]}`)
}

func TestSSE_DefaultsToFullRange(t *testing.T) {
	body := sseRequest(t, "").Body.String()
	assert.Contains(t, body, `"labels":["2018-01","2018-02"]`)
}

func TestSSE_InvalidRangePatchesAlert(t *testing.T) {
	body := sseRequest(t, `{"startDate":"2018-02-10","endDate":"2018-01-05"}`).Body.String()

	assert.Contains(t, body, `class="alert"`)
	assert.Contains(t, body, "Invalid date range")
	assert.NotContains(t, body, "datastar-patch-signals")
}

func TestSSE_MalformedSignals(t *testing.T) {
	body := sseRequest(t, `{"startDate":`).Body.String()

	assert.Contains(t, body, `class="alert"`)
	assert.Contains(t, body, "Could not read the selected dates")
}

func TestBuildChartData(t *testing.T) {
	report := &models.Report{
		MonthlyOrders: []models.MonthlyOrders{
			{Month: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), OrderCount: 2, Payment: 30},
		},
		BestCategories:  []models.CategoryCount{{Category: "toys", OrderCount: 2}},
		WorstCategories: []models.CategoryCount{{Category: "books", OrderCount: 1}},
		ReviewScores: models.ReviewScoreDistribution{
			Shares: []models.ReviewScoreShare{{Score: 5, OrderCount: 2, Percentage: 66.6}},
		},
		TopByRecency:   []models.CustomerRFM{{CustomerUniqueID: "B", Recency: 0}},
		TopByFrequency: []models.CustomerRFM{{CustomerUniqueID: "A", Frequency: 2}},
		TopByMonetary:  []models.CustomerRFM{{CustomerUniqueID: "A", Monetary: 30}},
	}

	d := BuildChartData(report)

	assert.Equal(t, []string{"2018-01"}, d.Monthly.Labels)
	assert.Equal(t, []float64{2}, d.Monthly.Values)
	assert.Equal(t, []string{"toys"}, d.BestCategories.Labels)
	assert.Equal(t, []string{"books"}, d.WorstCategories.Labels)
	assert.Equal(t, []string{"5"}, d.ReviewScores.Labels)
	assert.Equal(t, []float64{66.6}, d.ReviewScores.Values)
	assert.Equal(t, []float64{0}, d.Recency.Values)
	assert.Equal(t, []float64{2}, d.Frequency.Values)
	assert.Equal(t, []float64{30}, d.Monetary.Values)
}

func TestBuildChartData_Empty(t *testing.T) {
	d := BuildChartData(&models.Report{})

	require.NotNil(t, d.Monthly.Labels)
	assert.Empty(t, d.Monthly.Labels)
	assert.Empty(t, d.Recency.Values)
	assert.Empty(t, d.ReviewScores.Labels)
}
