package pipeline

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"happymart-dashboard/internal/models"
)

const monthLayout = "2006-01"

// Table names accepted by Frame.
const (
	TableMonthlyOrders = "monthly_orders"
	TableCategories    = "categories"
	TableReviewScores  = "review_scores"
	TableRFM           = "rfm"
)

var TableNames = []string{TableMonthlyOrders, TableCategories, TableReviewScores, TableRFM}

func MonthlyOrdersFrame(rows []models.MonthlyOrders) dataframe.DataFrame {
	months := make([]string, len(rows))
	counts := make([]int, len(rows))
	payments := make([]float64, len(rows))
	for i, r := range rows {
		months[i] = r.Month.Format(monthLayout)
		counts[i] = r.OrderCount
		payments[i] = r.Payment
	}
	return dataframe.New(
		series.New(months, series.String, "order_month"),
		series.New(counts, series.Int, "order_count"),
		series.New(payments, series.Float, "payment"),
	)
}

func CategoryFrame(rows []models.CategoryCount) dataframe.DataFrame {
	names := make([]string, len(rows))
	counts := make([]int, len(rows))
	for i, r := range rows {
		names[i] = r.Category
		counts[i] = r.OrderCount
	}
	return dataframe.New(
		series.New(names, series.String, "product_category_name"),
		series.New(counts, series.Int, "order_count"),
	)
}

func ReviewScoreFrame(dist models.ReviewScoreDistribution) dataframe.DataFrame {
	scores := make([]int, len(dist.Shares))
	counts := make([]int, len(dist.Shares))
	shares := make([]float64, len(dist.Shares))
	for i, r := range dist.Shares {
		scores[i] = r.Score
		counts[i] = r.OrderCount
		shares[i] = r.Percentage
	}
	return dataframe.New(
		series.New(scores, series.Int, "review_score"),
		series.New(counts, series.Int, "order_count"),
		series.New(shares, series.Float, "percentage"),
	)
}

func RFMFrame(rows []models.CustomerRFM) dataframe.DataFrame {
	ids := make([]string, len(rows))
	frequency := make([]int, len(rows))
	monetary := make([]float64, len(rows))
	recency := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.CustomerUniqueID
		frequency[i] = r.Frequency
		monetary[i] = r.Monetary
		recency[i] = r.Recency
	}
	return dataframe.New(
		series.New(ids, series.String, "customer_unique_id"),
		series.New(frequency, series.Int, "frequency"),
		series.New(monetary, series.Float, "monetary"),
		series.New(recency, series.Int, "recency"),
	)
}

// Frame returns the named table of report as a data frame.
func Frame(report *models.Report, table string) (dataframe.DataFrame, error) {
	switch table {
	case TableMonthlyOrders:
		return MonthlyOrdersFrame(report.MonthlyOrders), nil
	case TableCategories:
		return CategoryFrame(report.Categories), nil
	case TableReviewScores:
		return ReviewScoreFrame(report.ReviewScores), nil
	case TableRFM:
		return RFMFrame(report.RFM), nil
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unknown table %q", table)
	}
}
