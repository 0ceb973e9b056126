package pipeline

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"happymart-dashboard/internal/models"
)

// Summarize computes the headline metrics shown above the charts. Average
// recency is rounded to one decimal and average frequency to two.
func Summarize(monthly []models.MonthlyOrders, rfm []models.CustomerRFM) models.Summary {
	var s models.Summary

	payments := make([]float64, len(monthly))
	for i, m := range monthly {
		s.TotalOrders += m.OrderCount
		payments[i] = m.Payment
	}
	s.TotalPayment = floats.Sum(payments)

	if len(rfm) == 0 {
		return s
	}

	recency := make([]float64, len(rfm))
	frequency := make([]float64, len(rfm))
	monetary := make([]float64, len(rfm))
	for i, c := range rfm {
		recency[i] = float64(c.Recency)
		frequency[i] = float64(c.Frequency)
		monetary[i] = c.Monetary
	}
	s.AvgRecency = round(stat.Mean(recency, nil), 1)
	s.AvgFrequency = round(stat.Mean(frequency, nil), 2)
	s.AvgMonetary = stat.Mean(monetary, nil)
	return s
}

// TopCategories returns the n best performing categories from a ranking.
func TopCategories(ranking []models.CategoryCount, n int) []models.CategoryCount {
	return head(ranking, n)
}

// BottomCategories returns the n categories with the fewest orders, fewest
// first.
func BottomCategories(ranking []models.CategoryCount, n int) []models.CategoryCount {
	sorted := slices.Clone(ranking)
	slices.SortStableFunc(sorted, func(a, b models.CategoryCount) int {
		if c := cmp.Compare(a.OrderCount, b.OrderCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return head(sorted, n)
}

func TopByRecency(rfm []models.CustomerRFM, n int) []models.CustomerRFM {
	return topCustomers(rfm, n, func(a, b models.CustomerRFM) int {
		return cmp.Compare(a.Recency, b.Recency)
	})
}

func TopByFrequency(rfm []models.CustomerRFM, n int) []models.CustomerRFM {
	return topCustomers(rfm, n, func(a, b models.CustomerRFM) int {
		return cmp.Compare(b.Frequency, a.Frequency)
	})
}

func TopByMonetary(rfm []models.CustomerRFM, n int) []models.CustomerRFM {
	return topCustomers(rfm, n, func(a, b models.CustomerRFM) int {
		return cmp.Compare(b.Monetary, a.Monetary)
	})
}

func topCustomers(rfm []models.CustomerRFM, n int, by func(a, b models.CustomerRFM) int) []models.CustomerRFM {
	sorted := slices.Clone(rfm)
	slices.SortStableFunc(sorted, func(a, b models.CustomerRFM) int {
		if c := by(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.CustomerUniqueID, b.CustomerUniqueID)
	})
	return head(sorted, n)
}

func head[T any](s []T, n int) []T {
	if n < 0 || len(s) <= n {
		n = len(s)
	}
	out := make([]T, n)
	copy(out, s[:n])
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
