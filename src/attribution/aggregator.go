package attribution

import (
	"sort"
	"strings"

	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/models"
)

// SpendAggregator folds a batch of raw export rows into per-product,
// per-country totals plus the daily grain buckets the store persists.
type SpendAggregator struct {
	parser *NameParser
}

func NewSpendAggregator(parser *NameParser) *SpendAggregator {
	if parser == nil {
		parser = NewNameParser(nil)
	}
	return &SpendAggregator{parser: parser}
}

// BucketKey builds the within-batch merge key for one daily grain.
func BucketKey(date, country, product string) string {
	return strings.Join([]string{date, country, product}, "|")
}

// Aggregate folds rows into an AggregationResult. A row is skipped only when
// its campaign name, amount, or date is entirely absent; rows with unusual
// names are attributed to a fallback bucket, never dropped. Local totals are
// derived with exchangeRate at fold time and the rate is recorded on the
// result.
func (a *SpendAggregator) Aggregate(rows []models.RawSpendRow, exchangeRate float64) *models.AggregationResult {
	result := &models.AggregationResult{
		ProductMap:    make(map[string]map[string]float64),
		ProductTotals: make(map[string]float64),
		ExchangeRate:  exchangeRate,
		DailyBuckets:  make(map[string]*models.DailyBucket),
	}

	for i, row := range rows {
		if reason := retentionFailure(row); reason != "" {
			result.RowsSkipped++
			logger.L.Warn("Skipping malformed spend row", "rowIndex", i, "reason", reason, "campaignName", row.CampaignName)
			continue
		}

		parsed := a.parser.Parse(row.CampaignName)
		if parsed.IsUnrecognized() {
			result.RowsUnrecognized++
			logger.L.Debug("Campaign name not fully recognized, using fallback attribution",
				"campaignName", row.CampaignName, "kind", parsed.Kind.String(),
				"product", parsed.Product, "country", parsed.CountryCode)
		}

		if result.ProductMap[parsed.Product] == nil {
			result.ProductMap[parsed.Product] = make(map[string]float64)
		}
		result.ProductMap[parsed.Product][parsed.CountryCode] += row.AmountSpent
		result.ProductTotals[parsed.Product] += row.AmountSpent
		result.GrandTotalUSD += row.AmountSpent
		result.GrandTotalLocal += row.AmountSpent * exchangeRate
		result.RowsRetained++

		key := BucketKey(row.Date, parsed.CountryCode, parsed.Product)
		bucket, ok := result.DailyBuckets[key]
		if !ok {
			bucket = &models.DailyBucket{
				Date:    row.Date,
				Product: parsed.Product,
				Country: parsed.CountryCode,
			}
			result.DailyBuckets[key] = bucket
		}
		bucket.SpendUSD += row.AmountSpent
		bucket.SpendLocal += row.AmountSpent * exchangeRate
	}

	logger.L.Info("Spend aggregation complete",
		"rowsRetained", result.RowsRetained,
		"rowsSkipped", result.RowsSkipped,
		"rowsUnrecognized", result.RowsUnrecognized,
		"grandTotalUSD", result.GrandTotalUSD,
		"exchangeRate", exchangeRate)
	return result
}

// RetainedTotal sums the amounts of rows that pass the retention rule. Used
// as an independent expected total when the caller does not supply one.
func RetainedTotal(rows []models.RawSpendRow) float64 {
	var total float64
	for _, row := range rows {
		if retentionFailure(row) == "" {
			total += row.AmountSpent
		}
	}
	return total
}

// retentionFailure returns a non-empty reason when the row must be skipped.
// This is the only legitimate drop condition.
func retentionFailure(row models.RawSpendRow) string {
	switch {
	case strings.TrimSpace(row.CampaignName) == "":
		return "missing campaign name"
	case row.AmountSpent == 0:
		return "missing or zero amount"
	case strings.TrimSpace(row.Date) == "":
		return "missing date"
	default:
		return ""
	}
}

// SortedBuckets flattens the daily grain map into a deterministic slice for
// the store's multi-row upsert.
func SortedBuckets(result *models.AggregationResult) []models.DailyBucket {
	keys := make([]string, 0, len(result.DailyBuckets))
	for key := range result.DailyBuckets {
		keys = append(keys, key)
	}
	// Keys are "date|country|product", so a plain sort orders by date first.
	sort.Strings(keys)
	buckets := make([]models.DailyBucket, 0, len(keys))
	for _, key := range keys {
		buckets = append(buckets, *result.DailyBuckets[key])
	}
	return buckets
}
