package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"happymart-dashboard/internal/dataset"
	apperrors "happymart-dashboard/internal/errors"
	"happymart-dashboard/internal/format"
	"happymart-dashboard/internal/models"
	"happymart-dashboard/internal/observability"
	"happymart-dashboard/internal/pipeline"
)

// topN is the length of the best/worst category and top customer lists.
const topN = 5

// Analytics runs render passes over a loaded dataset. It is safe for
// concurrent use.
type Analytics struct {
	ds        *dataset.Dataset
	logger    *slog.Logger
	validate  *validator.Validate
	formatter *format.Formatter
	snapshot  Snapshotter
	metrics   *observability.Metrics
	cache     *reportCache
	group     singleflight.Group
	now       func() time.Time

	renders    atomic.Int64
	lastRender atomic.Int64 // unix nanos
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

// WithCache keeps up to maxEntries reports keyed by range fingerprint.
func WithCache(maxEntries int) Option {
	return func(a *Analytics) { a.cache = newReportCache(maxEntries) }
}

func WithSnapshot(s Snapshotter) Option {
	return func(a *Analytics) { a.snapshot = s }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analytics) { a.metrics = m }
}

func WithFormatter(f *format.Formatter) Option {
	return func(a *Analytics) { a.formatter = f }
}

func NewAnalytics(ds *dataset.Dataset, opts ...Option) *Analytics {
	a := &Analytics{
		ds:        ds,
		logger:    slog.Default(),
		validate:  validator.New(),
		formatter: format.BRL(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.metrics.SetDatasetRows(ds.Len())
	return a
}

func (a *Analytics) Dataset() *dataset.Dataset {
	return a.ds
}

func (a *Analytics) Formatter() *format.Formatter {
	return a.formatter
}

// DefaultRange covers the whole dataset.
func (a *Analytics) DefaultRange() models.DateRange {
	return a.ds.DefaultRange()
}

// ResolveRange parses YYYY-MM-DD bounds, substituting the dataset bound for
// an empty value.
func (a *Analytics) ResolveRange(start, end string) (models.DateRange, error) {
	def := a.ds.DefaultRange()
	if start == "" {
		start = def.Start.Format(models.DateLayout)
	}
	if end == "" {
		end = def.End.Format(models.DateLayout)
	}

	r, err := models.ParseDateRange(start, end)
	if err != nil {
		return models.DateRange{}, apperrors.BadRequestWrap(err, "Dates must use the YYYY-MM-DD format").WithDetails(err.Error())
	}
	return r, nil
}

// Render filters the dataset to r and computes every derived table. The
// returned report may be shared with other callers and must not be modified.
func (a *Analytics) Render(ctx context.Context, r models.DateRange) (report *models.Report, err error) {
	start := a.now()
	ctx, span := observability.StartSpan(ctx, "analytics.render",
		attribute.String("range", r.String()),
	)
	defer func() {
		rows := 0
		if report != nil {
			rows = report.FilteredRows
		}
		a.metrics.ObserveRender(a.now().Sub(start), rows, err)
		observability.EndSpan(span, err)
	}()

	if err := a.checkRange(r); err != nil {
		return nil, err
	}

	var rows []models.OrderRecord
	filtered := false
	filter := func() []models.OrderRecord {
		if !filtered {
			rows = a.ds.Filter(r)
			filtered = true
		}
		return rows
	}

	if a.snapshot != nil {
		a.writeSnapshot(ctx, filter())
	}

	if a.cache == nil {
		report = a.build(ctx, r, filter())
	} else {
		report, err = a.cached(ctx, r, filter)
		if err != nil {
			return nil, err
		}
	}

	a.renders.Add(1)
	a.lastRender.Store(a.now().UnixNano())
	return report, nil
}

func (a *Analytics) checkRange(r models.DateRange) error {
	if err := a.validate.Struct(r); err != nil {
		return apperrors.FromValidation(err, "Invalid date range")
	}
	if !a.ds.InBounds(r) {
		return apperrors.Validation("Date range is outside the available data").
			WithDetails(fmt.Sprintf("requested %s, available %s", r, a.ds.DefaultRange()))
	}
	return nil
}

func (a *Analytics) cached(ctx context.Context, r models.DateRange, filter func() []models.OrderRecord) (*models.Report, error) {
	key := r.Fingerprint()
	if report, ok := a.cache.get(key); ok {
		a.metrics.CacheHit()
		return report, nil
	}
	a.metrics.CacheMiss()

	v, err, shared := a.group.Do(key, func() (any, error) {
		if report, ok := a.cache.peek(key); ok {
			return report, nil
		}
		report := a.build(ctx, r, filter())
		a.cache.put(key, report)
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		a.logger.Debug("render shared with concurrent request", "fingerprint", key)
	}
	return v.(*models.Report), nil
}

func (a *Analytics) build(ctx context.Context, r models.DateRange, rows []models.OrderRecord) *models.Report {
	_, span := observability.StartSpan(ctx, "analytics.aggregate",
		attribute.Int("rows", len(rows)),
	)
	defer span.End()

	monthly := pipeline.MonthlyOrders(rows)
	categories := pipeline.CategoryRanking(rows)
	scores := pipeline.ReviewScoreDistribution(rows)
	rfm := pipeline.RFM(rows)

	if scores.MultiScoreOrders > 0 {
		a.logger.Warn("orders carry more than one review score",
			"orders", scores.MultiScoreOrders,
			"range", r.String(),
		)
	}

	summary := pipeline.Summarize(monthly, rfm)
	summary.TotalPaymentText = a.formatter.Currency(summary.TotalPayment)
	summary.AvgMonetaryText = a.formatter.Currency(summary.AvgMonetary)

	report := &models.Report{
		Range:           r,
		Fingerprint:     r.Fingerprint(),
		FilteredRows:    len(rows),
		MonthlyOrders:   monthly,
		Categories:      categories,
		ReviewScores:    scores,
		RFM:             rfm,
		Summary:         summary,
		BestCategories:  pipeline.TopCategories(categories, topN),
		WorstCategories: pipeline.BottomCategories(categories, topN),
		TopByRecency:    pipeline.TopByRecency(rfm, topN),
		TopByFrequency:  pipeline.TopByFrequency(rfm, topN),
		TopByMonetary:   pipeline.TopByMonetary(rfm, topN),
		GeneratedAt:     a.now().UTC(),
	}

	a.logger.Debug("report built",
		"range", r.String(),
		"rows", len(rows),
		"customers", len(rfm),
		"categories", len(categories),
	)
	return report
}

func (a *Analytics) writeSnapshot(ctx context.Context, rows []models.OrderRecord) {
	_, span := observability.StartSpan(ctx, "analytics.snapshot")
	err := a.snapshot.WriteSnapshot(a.ds.Header(), rows)
	observability.EndSpan(span, err)

	if err != nil {
		a.metrics.SnapshotFailed()
		a.logger.Warn("snapshot write failed", "error", err, "rows", len(rows))
	}
}

// Stats reports counters for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	lo, hi := a.ds.Bounds()
	stats := map[string]any{
		"record_count":  a.ds.Len(),
		"first_order":   lo,
		"last_order":    hi,
		"render_passes": a.renders.Load(),
		"cache_enabled": a.cache != nil,
	}
	if ts := a.lastRender.Load(); ts != 0 {
		stats["last_render"] = time.Unix(0, ts).UTC()
	}
	if a.cache != nil {
		hits, misses, entries := a.cache.stats()
		stats["cache_entries"] = entries
		stats["cache_hits"] = hits
		stats["cache_misses"] = misses
	}
	return stats
}

// reportCache is a bounded map evicting the oldest insertion first.
type reportCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*models.Report
	order   []string
	hits    int64
	misses  int64
}

func newReportCache(size int) *reportCache {
	return &reportCache{
		max:     size,
		entries: make(map[string]*models.Report, size),
	}
}

func (c *reportCache) get(key string) (*models.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return report, ok
}

// peek looks up key without touching the hit counters.
func (c *reportCache) peek(key string) (*models.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.entries[key]
	return report, ok
}

func (c *reportCache) put(key string, report *models.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = report
		return
	}
	for len(c.order) >= c.max && len(c.order) > 0 {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = report
	c.order = append(c.order, key)
}

func (c *reportCache) stats() (hits, misses int64, entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}
