package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"happymart-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

const (
	ColOrderID         = "order_id"
	ColCustomerID      = "customer_unique_id"
	ColApprovedAt      = "order_approved_at"
	ColPaymentValue    = "payment_value"
	ColProductCategory = "product_category_name"
	ColReviewScore     = "review_score"
)

var requiredColumns = []string{
	ColOrderID,
	ColCustomerID,
	ColApprovedAt,
	ColPaymentValue,
	ColProductCategory,
	ColReviewScore,
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	models.DateLayout,
}

var (
	ErrEmptyFile = errors.New("empty file")
	ErrNoRecords = errors.New("no records with an approval timestamp")
)

type columnIndex map[string]int

// LoadCSV reads the order dataset at path and returns it sorted by approval
// timestamp. Rows without an approval timestamp are skipped.
func LoadCSV(ctx context.Context, path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Load(ctx, file)
}

func Load(ctx context.Context, r io.Reader) (*Dataset, error) {
	start := time.Now()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)

	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	records, skipped, err := parseRows(ctx, rows, cols)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	slog.Info("dataset loaded",
		"rows", len(rows),
		"records", len(records),
		"skipped_without_timestamp", skipped,
		"duration", time.Since(start),
	)

	return New(header, records), nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = h
	}
	return out
}

func indexColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, name := range header {
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRows(ctx context.Context, rows [][]string, cols columnIndex) ([]models.OrderRecord, int64, error) {
	parsed := make([]models.OrderRecord, len(rows))
	keep := make([]bool, len(rows))
	var skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for lo := 0; lo < len(rows); lo += batchSize {
		hi := min(lo+batchSize, len(rows))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1000 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}

				rec, ok, err := parseRecord(rows[i], cols)
				if err != nil {
					// +2: one for the header, one for 1-based line numbers
					return fmt.Errorf("line %d: %w", i+2, err)
				}
				if !ok {
					skipped.Add(1)
					continue
				}
				parsed[i] = rec
				keep[i] = true
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	records := make([]models.OrderRecord, 0, len(rows)-int(skipped.Load()))
	for i := range parsed {
		if keep[i] {
			records = append(records, parsed[i])
		}
	}
	return records, skipped.Load(), nil
}

// missingTokens are the cell values CSV exports write for an absent value.
var missingTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(v string) bool {
	_, ok := missingTokens[v]
	return ok
}

func parseRecord(row []string, cols columnIndex) (models.OrderRecord, bool, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(row) {
			return ""
		}
		v := strings.TrimSpace(row[idx])
		if isMissing(v) {
			return ""
		}
		return v
	}

	approved := field(ColApprovedAt)
	if approved == "" || approved == "NaT" {
		return models.OrderRecord{}, false, nil
	}
	approvedAt, err := ParseTimestamp(approved)
	if err != nil {
		return models.OrderRecord{}, false, err
	}

	var payment float64
	if v := field(ColPaymentValue); v != "" {
		payment, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return models.OrderRecord{}, false, fmt.Errorf("invalid %s %q: %w", ColPaymentValue, v, err)
		}
	}

	var score int
	if v := field(ColReviewScore); v != "" {
		score, err = parseScore(v)
		if err != nil {
			return models.OrderRecord{}, false, fmt.Errorf("invalid %s %q: %w", ColReviewScore, v, err)
		}
		if score < 1 || score > 5 {
			return models.OrderRecord{}, false, fmt.Errorf("%s %d out of range 1-5", ColReviewScore, score)
		}
	}

	return models.OrderRecord{
		OrderID:          field(ColOrderID),
		CustomerUniqueID: field(ColCustomerID),
		ApprovedAt:       approvedAt,
		PaymentValue:     payment,
		ProductCategory:  field(ColProductCategory),
		ReviewScore:      score,
		Raw:              row,
	}, true, nil
}

// ParseTimestamp parses an approval timestamp in any of the layouts the
// dataset exports use.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q", ColApprovedAt, s)
}

// parseScore accepts "4" as well as "4.0", which float-typed exports produce.
func parseScore(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not a whole number")
	}
	return int(f), nil
}
