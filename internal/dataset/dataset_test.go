package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"happymart-dashboard/internal/models"
)

const header = "order_id,customer_unique_id,order_approved_at,payment_value,product_category_name,review_score,order_status\n"

func load(t *testing.T, body string) *Dataset {
	t.Helper()
	ds, err := Load(context.Background(), strings.NewReader(header+body))
	require.NoError(t, err)
	return ds
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLoad(t *testing.T) {
	ds := load(t, ""+
		"o2,c2,2018-01-10 12:00:00,5.50,toys,4.0,delivered\n"+
		"o1,c1,2018-01-05 08:30:00,10,housewares,5,delivered\n"+
		"o3,c3,,7,toys,3,canceled\n"+
		"o4,c1,2018-02-01T00:00:00,,,,delivered\n")

	require.Equal(t, 3, ds.Len())
	recs := ds.Records()

	assert.Equal(t, "o1", recs[0].OrderID)
	assert.Equal(t, "o2", recs[1].OrderID)
	assert.Equal(t, "o4", recs[2].OrderID)

	assert.Equal(t, 5.5, recs[1].PaymentValue)
	assert.Equal(t, 4, recs[1].ReviewScore)
	assert.Equal(t, "toys", recs[1].ProductCategory)

	assert.Zero(t, recs[2].PaymentValue)
	assert.Zero(t, recs[2].ReviewScore)
	assert.Empty(t, recs[2].ProductCategory)

	assert.Equal(t, "delivered", recs[0].Raw[6])
	assert.Equal(t, "order_status", ds.Header()[6])

	lo, hi := ds.Bounds()
	assert.Equal(t, time.Date(2018, 1, 5, 8, 30, 0, 0, time.UTC), lo)
	assert.Equal(t, date(2018, 2, 1), hi)
}

func TestLoadMissingTokens(t *testing.T) {
	ds := load(t, ""+
		"o1,A,2018-01-05 10:30:00,10,toys,5,delivered\n"+
		"o2,A,2018-01-20 10:30:00,NaN,NA,null,delivered\n"+
		"o3,None,2018-01-22 10:30:00,N/A,nan,<NA>,delivered\n"+
		"o4,B,NaT,3,toys,4,canceled\n")

	require.Equal(t, 3, ds.Len())
	recs := ds.Records()

	var total float64
	for _, r := range recs {
		total += r.PaymentValue
	}
	assert.Equal(t, 10.0, total)

	assert.Zero(t, recs[1].PaymentValue)
	assert.Empty(t, recs[1].ProductCategory)
	assert.Zero(t, recs[1].ReviewScore)
	assert.Empty(t, recs[2].CustomerUniqueID)
	assert.Zero(t, recs[2].ReviewScore)
	assert.Equal(t, "NaN", recs[1].Raw[3], "raw cells are kept for the snapshot")
}

func TestLoadStripsBOM(t *testing.T) {
	ds, err := Load(context.Background(), strings.NewReader("\ufeff"+header+"o1,c1,2018-01-05 08:30:00,10,toys,5,ok\n"))
	require.NoError(t, err)
	assert.Equal(t, "order_id", ds.Header()[0])
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty file", "", "empty file"},
		{"missing columns", "order_id,payment_value\no1,3\n", "missing required columns: customer_unique_id"},
		{"no records", header + "o1,c1,,3,toys,5,x\n", "no records"},
		{"bad timestamp", header + "o1,c1,yesterday,3,toys,5,x\n", "line 2"},
		{"bad payment", header + "o1,c1,2018-01-01,abc,toys,5,x\n", "payment_value"},
		{"score out of range", header + "o1,c1,2018-01-01,3,toys,9,x\n", "out of range"},
		{"fractional score", header + "o1,c1,2018-01-01,3,toys,4.5,x\n", "review_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, strings.NewReader(header+"o1,c1,2018-01-01,3,toys,5,x\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"o1,c1,2018-01-01,3,toys,5,x\n"), 0o600))

	ds, err := LoadCSV(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	_, err = LoadCSV(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{"2018-03-04 05:06:07", "2018-03-04T05:06:07", "2018-03-04T05:06:07Z", "2018-03-04 05:06", "2018-03-04"} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.Equal(t, date(2018, 3, 4), models.TruncateDay(got), s)
	}
	_, err := ParseTimestamp("04/03/2018")
	assert.Error(t, err)
}

func filterFixture(t *testing.T) *Dataset {
	return load(t, ""+
		"a,c1,2018-01-01 10:00:00,1,x,1,s\n"+
		"b,c1,2018-01-09 23:59:59,1,x,1,s\n"+
		"c,c1,2018-01-10 00:00:00,1,x,1,s\n"+
		"d,c1,2018-01-10 00:00:01,1,x,1,s\n"+
		"e,c1,2018-01-15 12:00:00,1,x,1,s\n"+
		"f,c1,2018-01-21 00:00:00,1,x,1,s\n"+
		"g,c1,2018-01-21 00:00:01,1,x,1,s\n"+
		"h,c1,2018-02-28 09:00:00,1,x,1,s\n")
}

func ids(recs []models.OrderRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.OrderID
	}
	return out
}

func TestFilterPaddedWindow(t *testing.T) {
	ds := filterFixture(t)

	got := ds.Filter(models.NewDateRange(date(2018, 1, 11), date(2018, 1, 20)))

	// [Jan 10 00:00, Jan 21 00:00] inclusive at both ends.
	assert.Equal(t, []string{"c", "d", "e", "f"}, ids(got))
}

func TestFilterSingleDay(t *testing.T) {
	ds := filterFixture(t)
	got := ds.Filter(models.NewDateRange(date(2018, 1, 15), date(2018, 1, 15)))
	assert.Equal(t, []string{"e"}, ids(got))
}

func TestFilterFullRangeSelectsEverything(t *testing.T) {
	ds := filterFixture(t)
	got := ds.Filter(ds.DefaultRange())
	assert.Len(t, got, ds.Len())
}

func TestFilterEmptyResult(t *testing.T) {
	ds := filterFixture(t)
	got := ds.Filter(models.NewDateRange(date(2018, 2, 5), date(2018, 2, 10)))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterReturnsCopy(t *testing.T) {
	ds := filterFixture(t)
	got := ds.Filter(ds.DefaultRange())
	got[0].OrderID = "mutated"
	assert.Equal(t, "a", ds.Records()[0].OrderID)
}

func TestFilterAgreesWithContains(t *testing.T) {
	ds := filterFixture(t)
	r := models.NewDateRange(date(2018, 1, 2), date(2018, 1, 20))

	var want []string
	for _, rec := range ds.Records() {
		if r.Contains(rec.ApprovedAt) {
			want = append(want, rec.OrderID)
		}
	}
	assert.Equal(t, want, ids(ds.Filter(r)))
}

func TestInBounds(t *testing.T) {
	ds := filterFixture(t)

	assert.True(t, ds.InBounds(ds.DefaultRange()))
	assert.True(t, ds.InBounds(models.NewDateRange(date(2018, 1, 5), date(2018, 1, 6))))
	assert.False(t, ds.InBounds(models.NewDateRange(date(2017, 12, 31), date(2018, 1, 6))))
	assert.False(t, ds.InBounds(models.NewDateRange(date(2018, 1, 5), date(2018, 3, 1))))
}

func TestNewSortsAndDoesNotAlias(t *testing.T) {
	in := []models.OrderRecord{
		{OrderID: "late", ApprovedAt: date(2018, 2, 1)},
		{OrderID: "early", ApprovedAt: date(2018, 1, 1)},
	}
	ds := New([]string{"order_id"}, in)

	assert.Equal(t, "early", ds.Records()[0].OrderID)
	assert.Equal(t, "late", in[0].OrderID)
}
