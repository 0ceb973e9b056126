package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"happymart-dashboard/internal/errors"
	"happymart-dashboard/internal/models"
	"happymart-dashboard/internal/observability"
	"happymart-dashboard/internal/services"
	"happymart-dashboard/internal/ui/templates"
)

const monthLabelLayout = "2006-01"

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// dateSignals are the picker values the page sends with every request.
type dateSignals struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ChartSeries is one chart's labels and values in Chart.js order.
type ChartSeries struct {
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type ChartData struct {
	Monthly         ChartSeries `json:"monthly"`
	BestCategories  ChartSeries `json:"bestCategories"`
	WorstCategories ChartSeries `json:"worstCategories"`
	ReviewScores    ChartSeries `json:"reviewScores"`
	Recency         ChartSeries `json:"recency"`
	Frequency       ChartSeries `json:"frequency"`
	Monetary        ChartSeries `json:"monetary"`
}

// HandleReport runs a render pass for the signalled date range and patches
// the metric cards, the review legend and the chart data into the page.
func (h *SSEHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	var signals dateSignals
	readErr := datastar.ReadSignals(r, &signals)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	if readErr != nil {
		h.alert(ctx, sse, errors.BadRequestWrap(readErr, "Could not read the selected dates"))
		return
	}

	rng, err := h.analytics.ResolveRange(signals.StartDate, signals.EndDate)
	if err != nil {
		h.alert(ctx, sse, err)
		return
	}

	report, err := h.analytics.Render(ctx, rng)
	if err != nil {
		h.alert(ctx, sse, err)
		return
	}

	f := h.analytics.Formatter()
	for _, c := range []templ.Component{
		templates.Alert(""),
		templates.Metrics(report.Summary, f),
		templates.ReviewLegend(report.ReviewScores, f),
	} {
		if !h.patch(ctx, sse, c) {
			return
		}
	}

	payload, err := json.Marshal(map[string]any{"charts": BuildChartData(report)})
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}
	if err := sse.PatchSignals(payload); err != nil {
		h.logger.Warn("patch chart signals", "error", err)
	}
}

func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) bool {
	html, err := templates.RenderString(ctx, c)
	if err != nil {
		observability.LoggerFrom(ctx, h.logger).Error("render fragment", "error", err)
		return false
	}
	if err := sse.PatchElements(html); err != nil {
		observability.LoggerFrom(ctx, h.logger).Warn("patch elements", "error", err)
		return false
	}
	return true
}

func (h *SSEHandlers) alert(ctx context.Context, sse *datastar.ServerSentEventGenerator, err error) {
	logger := observability.LoggerFrom(ctx, h.logger)
	message := "Something went wrong while building the report"
	if appErr, ok := errors.As(err); ok && appErr.StatusCode < http.StatusInternalServerError {
		message = appErr.Message
		if appErr.Details != "" {
			message += ": " + appErr.Details
		}
		logger.Warn("report request rejected", "error", err)
	} else {
		logger.Error("report failed", "error", err)
	}
	h.patch(ctx, sse, templates.Alert(message))
}

// BuildChartData flattens report into the series the dashboard charts plot.
func BuildChartData(report *models.Report) ChartData {
	var d ChartData

	d.Monthly = ChartSeries{Label: "Orders", Labels: []string{}, Values: []float64{}}
	for _, m := range report.MonthlyOrders {
		d.Monthly.Labels = append(d.Monthly.Labels, m.Month.Format(monthLabelLayout))
		d.Monthly.Values = append(d.Monthly.Values, float64(m.OrderCount))
	}

	d.BestCategories = categorySeries(report.BestCategories)
	d.WorstCategories = categorySeries(report.WorstCategories)

	d.ReviewScores = ChartSeries{Label: "Share of orders (%)", Labels: []string{}, Values: []float64{}}
	for _, s := range report.ReviewScores.Shares {
		d.ReviewScores.Labels = append(d.ReviewScores.Labels, strconv.Itoa(s.Score))
		d.ReviewScores.Values = append(d.ReviewScores.Values, s.Percentage)
	}

	d.Recency = customerSeries("Recency (days)", report.TopByRecency, func(c models.CustomerRFM) float64 { return float64(c.Recency) })
	d.Frequency = customerSeries("Frequency", report.TopByFrequency, func(c models.CustomerRFM) float64 { return float64(c.Frequency) })
	d.Monetary = customerSeries("Monetary", report.TopByMonetary, func(c models.CustomerRFM) float64 { return c.Monetary })

	return d
}

func categorySeries(rows []models.CategoryCount) ChartSeries {
	s := ChartSeries{Label: "Orders", Labels: []string{}, Values: []float64{}}
	for _, c := range rows {
		s.Labels = append(s.Labels, c.Category)
		s.Values = append(s.Values, float64(c.OrderCount))
	}
	return s
}

func customerSeries(label string, rows []models.CustomerRFM, value func(models.CustomerRFM) float64) ChartSeries {
	s := ChartSeries{Label: label, Labels: []string{}, Values: []float64{}}
	for _, c := range rows {
		s.Labels = append(s.Labels, c.CustomerUniqueID)
		s.Values = append(s.Values, value(c))
	}
	return s
}
