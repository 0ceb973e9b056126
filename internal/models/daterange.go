package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar dates selected by the user.
type DateRange struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDay(start), End: TruncateDay(end)}
}

func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse end date %q: %w", end, err)
	}
	return NewDateRange(s, e), nil
}

// Window returns the padded bounds used to select records: one day before
// Start and one day after End, both at midnight, inclusive.
func (r DateRange) Window() (time.Time, time.Time) {
	return r.Start.AddDate(0, 0, -1), r.End.AddDate(0, 0, 1)
}

func (r DateRange) Contains(t time.Time) bool {
	lo, hi := r.Window()
	return !t.Before(lo) && !t.After(hi)
}

func (r DateRange) Fingerprint() string {
	sum := sha256.Sum256([]byte(r.String()))
	return hex.EncodeToString(sum[:8])
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// TruncateDay drops the clock part of t, keeping its calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(TruncateDay(b).Sub(TruncateDay(a)).Hours() / 24)
}
