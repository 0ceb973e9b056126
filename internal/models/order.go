package models

import "time"

type OrderRecord struct {
	OrderID          string
	CustomerUniqueID string
	ApprovedAt       time.Time
	PaymentValue     float64
	ProductCategory  string
	ReviewScore      int // 0 when the order has no review

	// Raw is the source row, column-aligned with Dataset.Header.
	Raw []string
}

type MonthlyOrders struct {
	Month      time.Time `json:"order_month"`
	OrderCount int       `json:"order_count"`
	Payment    float64   `json:"payment"`
}

type CategoryCount struct {
	Category   string `json:"product_category_name"`
	OrderCount int    `json:"order_count"`
}

type ReviewScoreShare struct {
	Score      int     `json:"review_score"`
	OrderCount int     `json:"order_count"`
	Percentage float64 `json:"percentage"`
}

type ReviewScoreDistribution struct {
	Shares []ReviewScoreShare `json:"shares"`
	// TotalOrders is the number of distinct orders carrying a score.
	TotalOrders int `json:"total_orders"`
	// MultiScoreOrders counts orders seen under more than one score.
	MultiScoreOrders int `json:"multi_score_orders"`
}

type CustomerRFM struct {
	CustomerUniqueID string  `json:"customer_unique_id"`
	Recency          int     `json:"recency"`
	Frequency        int     `json:"frequency"`
	Monetary         float64 `json:"monetary"`
}

type Summary struct {
	TotalOrders      int     `json:"total_orders"`
	TotalPayment     float64 `json:"total_payment"`
	AvgRecency       float64 `json:"avg_recency"`
	AvgFrequency     float64 `json:"avg_frequency"`
	AvgMonetary      float64 `json:"avg_monetary"`
	TotalPaymentText string  `json:"total_payment_text"`
	AvgMonetaryText  string  `json:"avg_monetary_text"`
}

type Report struct {
	Range           DateRange               `json:"range"`
	Fingerprint     string                  `json:"fingerprint"`
	FilteredRows    int                     `json:"filtered_rows"`
	MonthlyOrders   []MonthlyOrders         `json:"monthly_orders"`
	Categories      []CategoryCount         `json:"categories"`
	ReviewScores    ReviewScoreDistribution `json:"review_scores"`
	RFM             []CustomerRFM           `json:"rfm"`
	Summary         Summary                 `json:"summary"`
	BestCategories  []CategoryCount         `json:"best_categories"`
	WorstCategories []CategoryCount         `json:"worst_categories"`
	TopByRecency    []CustomerRFM           `json:"top_by_recency"`
	TopByFrequency  []CustomerRFM           `json:"top_by_frequency"`
	TopByMonetary   []CustomerRFM           `json:"top_by_monetary"`
	GeneratedAt     time.Time               `json:"generated_at"`
}
