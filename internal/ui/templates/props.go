// Package templates renders the dashboard page and the fragments the SSE
// endpoint patches into it. The *_templ.go files are generated from the
// .templ sources with `templ generate`.
package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	"happymart-dashboard/internal/format"
	"happymart-dashboard/internal/models"
)

// DashboardProps bounds the date picker. All dates are YYYY-MM-DD.
type DashboardProps struct {
	Title     string
	MinDate   string
	MaxDate   string
	StartDate string
	EndDate   string
}

// signals seeds the datastar store. The date inputs bind to startDate and
// endDate; the SSE report fills charts.
func (p DashboardProps) signals() (string, error) {
	return templ.JSONString(map[string]any{
		"startDate": p.StartDate,
		"endDate":   p.EndDate,
		"charts":    map[string]any{},
	})
}

type metricCard struct {
	Label string
	Value string
}

func metricCards(s models.Summary, f *format.Formatter) []metricCard {
	return []metricCard{
		{"Total orders", f.Int(s.TotalOrders)},
		{"Total revenue", s.TotalPaymentText},
		{"Average recency (days)", f.Number(s.AvgRecency, 1)},
		{"Average frequency", f.Number(s.AvgFrequency, 2)},
		{"Average monetary", s.AvgMonetaryText},
	}
}

// RenderString renders c into a string, as needed for SSE patches.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
