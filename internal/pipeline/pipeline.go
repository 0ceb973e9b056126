// Package pipeline derives the dashboard tables from a filtered set of order
// records. Every function is pure: it reads its input, never mutates it, and
// returns an empty non-nil table for empty input.
package pipeline

import (
	"cmp"
	"slices"
	"time"

	"happymart-dashboard/internal/models"
)

type monthKey struct {
	year  int
	month time.Month
}

type monthGroup struct {
	orders  map[string]struct{}
	payment float64
}

// MonthlyOrders groups records by calendar month of approval and counts
// distinct orders and summed payment per month. The latest month present is
// dropped because it is treated as still in progress.
func MonthlyOrders(records []models.OrderRecord) []models.MonthlyOrders {
	groups := make(map[monthKey]*monthGroup)
	var latest monthKey
	for _, rec := range records {
		key := monthKey{rec.ApprovedAt.Year(), rec.ApprovedAt.Month()}
		g := groups[key]
		if g == nil {
			g = &monthGroup{orders: make(map[string]struct{})}
			groups[key] = g
		}
		g.orders[rec.OrderID] = struct{}{}
		g.payment += rec.PaymentValue

		if key.year > latest.year || (key.year == latest.year && key.month > latest.month) {
			latest = key
		}
	}

	result := make([]models.MonthlyOrders, 0, len(groups))
	for key, g := range groups {
		if key == latest {
			continue
		}
		result = append(result, models.MonthlyOrders{
			Month:      time.Date(key.year, key.month, 1, 0, 0, 0, 0, time.UTC),
			OrderCount: len(g.orders),
			Payment:    g.payment,
		})
	}
	slices.SortFunc(result, func(a, b models.MonthlyOrders) int {
		return a.Month.Compare(b.Month)
	})
	return result
}

// CategoryRanking counts distinct orders per product category, most orders
// first. Equal counts are ordered by category name.
func CategoryRanking(records []models.OrderRecord) []models.CategoryCount {
	groups := distinctOrdersBy(records, func(rec models.OrderRecord) (string, bool) {
		return rec.ProductCategory, rec.ProductCategory != ""
	})

	result := make([]models.CategoryCount, 0, len(groups))
	for category, orders := range groups {
		result = append(result, models.CategoryCount{
			Category:   category,
			OrderCount: len(orders),
		})
	}
	slices.SortFunc(result, func(a, b models.CategoryCount) int {
		if c := cmp.Compare(b.OrderCount, a.OrderCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return result
}

// ReviewScoreDistribution counts distinct orders per review score and each
// score's share of the distinct scored orders. Records without a score are
// ignored. Shares are ordered largest first, then by score.
func ReviewScoreDistribution(records []models.OrderRecord) models.ReviewScoreDistribution {
	byScore := make(map[int]map[string]struct{})
	scoresPerOrder := make(map[string]map[int]struct{})
	for _, rec := range records {
		if rec.ReviewScore == 0 {
			continue
		}
		if byScore[rec.ReviewScore] == nil {
			byScore[rec.ReviewScore] = make(map[string]struct{})
		}
		byScore[rec.ReviewScore][rec.OrderID] = struct{}{}

		if scoresPerOrder[rec.OrderID] == nil {
			scoresPerOrder[rec.OrderID] = make(map[int]struct{}, 1)
		}
		scoresPerOrder[rec.OrderID][rec.ReviewScore] = struct{}{}
	}

	dist := models.ReviewScoreDistribution{
		Shares:      make([]models.ReviewScoreShare, 0, len(byScore)),
		TotalOrders: len(scoresPerOrder),
	}
	for _, scores := range scoresPerOrder {
		if len(scores) > 1 {
			dist.MultiScoreOrders++
		}
	}

	for score, orders := range byScore {
		dist.Shares = append(dist.Shares, models.ReviewScoreShare{
			Score:      score,
			OrderCount: len(orders),
			Percentage: float64(len(orders)) / float64(dist.TotalOrders) * 100,
		})
	}
	slices.SortFunc(dist.Shares, func(a, b models.ReviewScoreShare) int {
		if c := cmp.Compare(b.Percentage, a.Percentage); c != 0 {
			return c
		}
		return cmp.Compare(a.Score, b.Score)
	})
	return dist
}

type customerGroup struct {
	lastDate time.Time
	orders   map[string]struct{}
	monetary float64
}

// RFM computes recency, frequency and monetary value per customer. Recency
// is the number of days between the customer's latest approval date and the
// latest approval date in records. Rows are ordered by customer id.
func RFM(records []models.OrderRecord) []models.CustomerRFM {
	groups := make(map[string]*customerGroup)
	var anchor time.Time
	for _, rec := range records {
		day := models.TruncateDay(rec.ApprovedAt)
		if day.After(anchor) {
			anchor = day
		}
		if rec.CustomerUniqueID == "" {
			continue
		}

		g := groups[rec.CustomerUniqueID]
		if g == nil {
			g = &customerGroup{orders: make(map[string]struct{})}
			groups[rec.CustomerUniqueID] = g
		}
		if day.After(g.lastDate) {
			g.lastDate = day
		}
		g.orders[rec.OrderID] = struct{}{}
		g.monetary += rec.PaymentValue
	}

	result := make([]models.CustomerRFM, 0, len(groups))
	for id, g := range groups {
		result = append(result, models.CustomerRFM{
			CustomerUniqueID: id,
			Recency:          models.DaysBetween(g.lastDate, anchor),
			Frequency:        len(g.orders),
			Monetary:         g.monetary,
		})
	}
	slices.SortFunc(result, func(a, b models.CustomerRFM) int {
		return cmp.Compare(a.CustomerUniqueID, b.CustomerUniqueID)
	})
	return result
}

func distinctOrdersBy(records []models.OrderRecord, key func(models.OrderRecord) (string, bool)) map[string]map[string]struct{} {
	groups := make(map[string]map[string]struct{})
	for _, rec := range records {
		k, ok := key(rec)
		if !ok {
			continue
		}
		if groups[k] == nil {
			groups[k] = make(map[string]struct{})
		}
		groups[k][rec.OrderID] = struct{}{}
	}
	return groups
}
