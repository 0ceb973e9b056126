package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"happymart-dashboard/internal/models"
)

func TestFrames_ColumnNames(t *testing.T) {
	records := janFebRecords()
	report := &models.Report{
		MonthlyOrders: MonthlyOrders(records),
		Categories:    CategoryRanking(records),
		ReviewScores:  ReviewScoreDistribution(records),
		RFM:           RFM(records),
	}

	tests := []struct {
		table string
		cols  []string
		rows  int
	}{
		{TableMonthlyOrders, []string{"order_month", "order_count", "payment"}, 1},
		{TableCategories, []string{"product_category_name", "order_count"}, 2},
		{TableReviewScores, []string{"review_score", "order_count", "percentage"}, 2},
		{TableRFM, []string{"customer_unique_id", "frequency", "monetary", "recency"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			df, err := Frame(report, tt.table)
			require.NoError(t, err)
			require.NoError(t, df.Err)
			assert.Equal(t, tt.cols, df.Names())
			assert.Equal(t, tt.rows, df.Nrow())
		})
	}
}

func TestFrames_UnknownTable(t *testing.T) {
	_, err := Frame(&models.Report{}, "nope")
	assert.Error(t, err)
}

func TestFrames_EmptyTableKeepsShape(t *testing.T) {
	df := RFMFrame(RFM(nil))
	require.NoError(t, df.Err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, 4, df.Ncol())
}

func TestMonthlyOrdersFrame_CSV(t *testing.T) {
	df := MonthlyOrdersFrame(MonthlyOrders(janFebRecords()))

	var buf bytes.Buffer
	require.NoError(t, df.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "order_month,order_count,payment", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2018-01,2,30"))
}
