// backend/src/services/import_service.go
package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/spendfolio/backend/src/attribution"
	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/models"
	"github.com/username/spendfolio/backend/src/parsers"
)

const (
	// Cached range reads; one key per queried window.
	ckAttributionRange = "attr_range_user_%d_%s_%s"
	ckHasData          = "attr_has_data_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type importServiceImpl struct {
	store        AttributionStore
	aggregator   *attribution.SpendAggregator
	notifier     *Notifier
	emailService EmailService
	reportCache  *cache.Cache

	defaultExchangeRate float64
	tolerancePct        float64
	alertEmail          string
}

func NewImportService(
	store AttributionStore,
	aggregator *attribution.SpendAggregator,
	notifier *Notifier,
	emailService EmailService,
	reportCache *cache.Cache,
	defaultExchangeRate float64,
	tolerancePct float64,
	alertEmail string,
) ImportService {
	return &importServiceImpl{
		store:               store,
		aggregator:          aggregator,
		notifier:            notifier,
		emailService:        emailService,
		reportCache:         reportCache,
		defaultExchangeRate: defaultExchangeRate,
		tolerancePct:        tolerancePct,
		alertEmail:          alertEmail,
	}
}

// ProcessImport runs one synchronous batch: parse, aggregate, reconcile,
// persist, notify. Reconciliation is advisory and never blocks the write; a
// failed write fails the whole batch and the caller retries it.
func (s *importServiceImpl) ProcessImport(fileReader io.Reader, userID int64, opts ImportOptions) (*models.ImportSummary, error) {
	overallStartTime := time.Now()
	batchID := uuid.NewString()
	logger.L.Info("ProcessImport START", "userID", userID, "source", opts.Source, "batchID", batchID)

	parser, err := parsers.GetParser(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	rows, err := parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	exchangeRate := opts.ExchangeRate
	if exchangeRate <= 0 {
		exchangeRate = s.defaultExchangeRate
	}

	result := s.aggregator.Aggregate(rows, exchangeRate)

	// When the caller supplies no expected total, reconcile against an
	// independent pass over the parsed rows. That still catches fold bugs,
	// though not parser-level drift.
	expectedTotal := opts.ExpectedTotal
	if expectedTotal == 0 {
		expectedTotal = attribution.RetainedTotal(rows)
	}
	report := attribution.Check(result.GrandTotalUSD, expectedTotal, s.tolerancePct)
	if !report.IsCoherent {
		logger.L.Warn("Reconciliation mismatch on import", "userID", userID, "batchID", batchID,
			"calculated", report.CalculatedTotal, "expected", report.ExpectedTotal, "mismatchPct", report.MismatchPct)
		if s.alertEmail != "" && s.emailService != nil {
			// Fire-and-forget; a failed alert never affects the import.
			go func() {
				if mailErr := s.emailService.SendReconciliationAlert(s.alertEmail, batchID, report); mailErr != nil {
					logger.L.Error("Failed to send reconciliation alert", "batchID", batchID, "error", mailErr)
				}
			}()
		}
	}

	written, err := s.store.WriteBatch(userID, attribution.SortedBuckets(result))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	s.InvalidateUserCache(userID)
	s.notifier.Publish(Event{Type: EventAttributionsUpdated, UserID: userID, BatchID: batchID})

	summary := &models.ImportSummary{
		BatchID:          batchID,
		RowsParsed:       len(rows),
		RowsSkipped:      result.RowsSkipped,
		RowsUnrecognized: result.RowsUnrecognized,
		RecordsWritten:   written,
		GrandTotalUSD:    result.GrandTotalUSD,
		GrandTotalLocal:  result.GrandTotalLocal,
		ExchangeRate:     result.ExchangeRate,
		Reconciliation:   report,
	}

	logger.L.Info("ProcessImport END", "userID", userID, "batchID", batchID,
		"recordsWritten", written, "duration", time.Since(overallStartTime))
	return summary, nil
}

func (s *importServiceImpl) GetAttributions(userID int64, start, end string) ([]models.AttributionRecord, error) {
	cacheKey := fmt.Sprintf(ckAttributionRange, userID, start, end)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for attribution range", "userID", userID, "start", start, "end", end)
		return cached.([]models.AttributionRecord), nil
	}

	records, err := s.store.ListRange(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	s.reportCache.Set(cacheKey, records, DefaultCacheExpiration)
	return records, nil
}

func (s *importServiceImpl) DeleteAllAttributions(userID int64) (int64, error) {
	deleted, err := s.store.DeleteAll(userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	s.InvalidateUserCache(userID)
	s.notifier.Publish(Event{Type: EventAttributionsUpdated, UserID: userID})
	return deleted, nil
}

func (s *importServiceImpl) HasData(userID int64) (bool, error) {
	cacheKey := fmt.Sprintf(ckHasData, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(bool), nil
	}
	hasData, err := s.store.HasData(userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	s.reportCache.Set(cacheKey, hasData, DefaultCacheExpiration)
	return hasData, nil
}

// InvalidateUserCache clears all cached reads for a user. Range keys embed the
// queried window, so invalidation scans by prefix.
func (s *importServiceImpl) InvalidateUserCache(userID int64) {
	prefix := fmt.Sprintf("attr_range_user_%d_", userID)
	for key := range s.reportCache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.reportCache.Delete(key)
		}
	}
	s.reportCache.Delete(fmt.Sprintf(ckHasData, userID))
	logger.L.Info("Invalidated all caches for user", "userID", userID)
}
