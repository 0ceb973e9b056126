package dataset

import (
	"slices"
	"sort"
	"time"

	"happymart-dashboard/internal/models"
)

// Dataset is the order record set loaded at start-up. It is never mutated
// after construction and is safe to share between requests.
type Dataset struct {
	header  []string
	records []models.OrderRecord
	min     time.Time
	max     time.Time
}

// New builds a Dataset from a copy of records, ordered by ApprovedAt.
func New(header []string, records []models.OrderRecord) *Dataset {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b models.OrderRecord) int {
		return a.ApprovedAt.Compare(b.ApprovedAt)
	})
	records = sorted

	ds := &Dataset{
		header:  header,
		records: records,
	}
	if len(records) > 0 {
		ds.min = records[0].ApprovedAt
		ds.max = records[len(records)-1].ApprovedAt
	}
	return ds
}

func (d *Dataset) Header() []string {
	return d.header
}

func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns the full record sequence. Callers must not modify it.
func (d *Dataset) Records() []models.OrderRecord {
	return d.records
}

// Bounds returns the earliest and latest approval timestamps.
func (d *Dataset) Bounds() (time.Time, time.Time) {
	return d.min, d.max
}

// DefaultRange covers every record in the dataset.
func (d *Dataset) DefaultRange() models.DateRange {
	return models.NewDateRange(d.min, d.max)
}

// InBounds reports whether r lies within the observed dates.
func (d *Dataset) InBounds(r models.DateRange) bool {
	lo, hi := d.DefaultRange().Start, d.DefaultRange().End
	return !r.Start.Before(lo) && !r.End.After(hi)
}

// Filter returns the records approved inside r's padded window, in dataset
// order. The returned slice is freshly allocated.
func (d *Dataset) Filter(r models.DateRange) []models.OrderRecord {
	lo, hi := r.Window()
	i := sort.Search(len(d.records), func(i int) bool {
		return !d.records[i].ApprovedAt.Before(lo)
	})
	j := sort.Search(len(d.records), func(j int) bool {
		return d.records[j].ApprovedAt.After(hi)
	})
	if j < i {
		j = i
	}
	return slices.Clone(d.records[i:j:j])
}
