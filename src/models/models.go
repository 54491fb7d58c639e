package models

// RawSpendRow is one line of a Meta Ads export after header normalization:
// one campaign on one reporting day. Untrusted input; the aggregator decides
// which rows are usable.
type RawSpendRow struct {
	CampaignName string  `json:"campaign_name"`
	AmountSpent  float64 `json:"amount_spent"` // USD
	Date         string  `json:"date"`         // YYYY-MM-DD
}

// DailyBucket is one (date, product, country) grain accumulated within a
// single batch. Multiple rows sharing the grain are merged here before the
// cross-batch merge performed by the store.
type DailyBucket struct {
	Date       string  `json:"date"`
	Product    string  `json:"product"`
	Country    string  `json:"country"`
	SpendUSD   float64 `json:"spend_usd"`
	SpendLocal float64 `json:"spend_local"`
}

// AggregationResult is the in-memory outcome of folding one batch of raw rows.
// It is never persisted directly; the store projects DailyBuckets into
// attribution records.
type AggregationResult struct {
	// ProductMap holds USD spend keyed by product, then country code.
	ProductMap    map[string]map[string]float64 `json:"product_map"`
	ProductTotals map[string]float64            `json:"product_totals"`

	GrandTotalUSD   float64 `json:"grand_total_usd"`
	GrandTotalLocal float64 `json:"grand_total_local"`

	// ExchangeRate records the USD-to-local rate the local totals were derived
	// with, for auditability.
	ExchangeRate float64 `json:"exchange_rate"`

	RowsRetained     int `json:"rows_retained"`
	RowsSkipped      int `json:"rows_skipped"`
	RowsUnrecognized int `json:"rows_unrecognized"`

	// DailyBuckets is keyed by "date|country|product".
	DailyBuckets map[string]*DailyBucket `json:"-"`
}

// AttributionRecord is the persisted unit of truth for attributed spend.
// Uniqueness: (user_id, date, product, country).
type AttributionRecord struct {
	ID         int64   `json:"id,omitempty"`
	UserID     int64   `json:"user_id"`
	Date       string  `json:"date"`
	Product    string  `json:"product"`
	Country    string  `json:"country"`
	SpendUSD   float64 `json:"spend_usd"`
	SpendLocal float64 `json:"spend_dh"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// ReconciliationReport is the advisory outcome of comparing the computed batch
// total against an independently supplied expected total.
type ReconciliationReport struct {
	IsCoherent      bool    `json:"is_coherent"`
	MismatchPct     float64 `json:"mismatch_percentage"`
	CalculatedTotal float64 `json:"calculated_total"`
	ExpectedTotal   float64 `json:"expected_total"`
	Message         string  `json:"error_message,omitempty"`
}

// ImportSummary is returned to the caller after a batch import.
type ImportSummary struct {
	BatchID          string               `json:"batch_id"`
	RowsParsed       int                  `json:"rows_parsed"`
	RowsSkipped      int                  `json:"rows_skipped"`
	RowsUnrecognized int                  `json:"rows_unrecognized"`
	RecordsWritten   int                  `json:"records_written"`
	GrandTotalUSD    float64              `json:"grand_total_usd"`
	GrandTotalLocal  float64              `json:"grand_total_local"`
	ExchangeRate     float64              `json:"exchange_rate"`
	Reconciliation   ReconciliationReport `json:"reconciliation"`
}
