package services

import (
	"errors"
	"io"

	"github.com/username/spendfolio/backend/src/models"
)

var (
	ErrParsingFailed     = errors.New("export parsing failed")
	ErrPersistenceFailed = errors.New("attribution write failed")
	ErrReadFailed        = errors.New("attribution read failed")
)

// AttributionWriter merges aggregated spend into the store. A failed write
// means the whole batch failed; callers retry the batch.
type AttributionWriter interface {
	WriteBatch(userID int64, buckets []models.DailyBucket) (int, error)
}

// AttributionReader fetches previously persisted attribution records.
type AttributionReader interface {
	ListRange(userID int64, start, end string) ([]models.AttributionRecord, error)
	DeleteAll(userID int64) (int64, error)
	HasData(userID int64) (bool, error)
}

// AttributionStore is the full persistence surface the import service needs.
type AttributionStore interface {
	AttributionWriter
	AttributionReader
}

// ImportOptions carries the caller-supplied knobs of one batch import. Zero
// values fall back to configured defaults.
type ImportOptions struct {
	Source        string  // export source, defaults to "meta"
	ExchangeRate  float64 // USD to local; 0 means use the configured default
	ExpectedTotal float64 // independent total for reconciliation; 0 means derive from the parsed rows
}

// ImportService is the core engine surface: synchronous batch import plus the
// read path the dashboard consumes.
type ImportService interface {
	ProcessImport(fileReader io.Reader, userID int64, opts ImportOptions) (*models.ImportSummary, error)
	GetAttributions(userID int64, start, end string) ([]models.AttributionRecord, error)
	DeleteAllAttributions(userID int64) (int64, error)
	HasData(userID int64) (bool, error)
	InvalidateUserCache(userID int64)
}
