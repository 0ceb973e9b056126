package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"happymart-dashboard/internal/errors"
	"happymart-dashboard/internal/exporter"
	"happymart-dashboard/internal/models"
	"happymart-dashboard/internal/observability"
	"happymart-dashboard/internal/pipeline"
	"happymart-dashboard/internal/services"
)

const (
	Version     = "1.0.0"
	cacheMaxAge = "public, max-age=300"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	started   time.Time
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
		started:   time.Now(),
	}
}

// report runs a render pass for the ?start=&end= query, defaulting to the
// whole dataset.
func (h *APIHandlers) report(r *http.Request) (*models.Report, error) {
	q := r.URL.Query()
	rng, err := h.analytics.ResolveRange(q.Get("start"), q.Get("end"))
	if err != nil {
		return nil, err
	}
	return h.analytics.Render(r.Context(), rng)
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) respond(w http.ResponseWriter, r *http.Request, pick func(*models.Report) any) {
	report, err := h.report(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.logger, pick(report), map[string]string{
		"Cache-Control": cacheMaxAge,
	})
}

func (h *APIHandlers) HandleMonthlyOrders(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(rep *models.Report) any { return rep.MonthlyOrders })
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(rep *models.Report) any { return rep.Categories })
}

func (h *APIHandlers) HandleReviewScores(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(rep *models.Report) any { return rep.ReviewScores })
}

func (h *APIHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(rep *models.Report) any { return rep.RFM })
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(rep *models.Report) any { return rep })
}

// HandleTableCSV serves one derived table as CSV. The route captures the
// table name without its .csv suffix.
func (h *APIHandlers) HandleTableCSV(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimSuffix(chi.URLParam(r, "table"), ".csv")
	if !slices.Contains(pipeline.TableNames, table) {
		h.fail(w, r, errors.NotFound("Unknown table").
			WithDetails(fmt.Sprintf("%q is not one of %s", table, strings.Join(pipeline.TableNames, ", "))))
		return
	}

	report, err := h.report(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	df, err := pipeline.Frame(report, table)
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to build table"))
		return
	}

	var buf bytes.Buffer
	if err := df.WriteCSV(&buf); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to encode table"))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s.csv"`, table, report.Fingerprint))
	w.Header().Set("Cache-Control", cacheMaxAge)
	_, _ = w.Write(buf.Bytes())
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	report, err := h.report(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.WriteWorkbook(&buf, report); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to build workbook"))
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="happymart_%s_%s.xlsx"`,
		report.Range.Start.Format(models.DateLayout), report.Range.End.Format(models.DateLayout)))
	_, _ = w.Write(buf.Bytes())
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"records":   h.analytics.Dataset().Len(),
	}

	errors.WriteSuccess(w, h.logger, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.logger, h.analytics.Stats())
}
