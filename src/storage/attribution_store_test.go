package storage

import (
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/models"
	_ "modernc.org/sqlite"
)

func TestMain(m *testing.M) {
	logger.L = slog.New(slog.NewTextHandler(io.Discard, nil))
	os.Exit(m.Run())
}

func newTestStore(t *testing.T) *AttributionStore {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE spend_attributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		product TEXT NOT NULL,
		country TEXT NOT NULL,
		spend_usd REAL NOT NULL DEFAULT 0,
		spend_local REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, date, product, country)
	)`)
	if err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	return NewAttributionStore(db)
}

func bucket(date, product, country string, usd, local float64) models.DailyBucket {
	return models.DailyBucket{Date: date, Product: product, Country: country, SpendUSD: usd, SpendLocal: local}
}

func TestWriteBatch_Idempotent(t *testing.T) {
	store := newTestStore(t)

	buckets := []models.DailyBucket{
		bucket("2024-03-01", "STUD", "CM", 25.0, 250.0),
		bucket("2024-03-02", "VIRAMAX", "TG", 5.0, 50.0),
	}

	for i := 0; i < 2; i++ {
		written, err := store.WriteBatch(1, buckets)
		if err != nil {
			t.Fatalf("WriteBatch pass %d failed: %v", i+1, err)
		}
		if written != 2 {
			t.Errorf("WriteBatch pass %d wrote %d, want 2", i+1, written)
		}
	}

	records, err := store.ListRange(1, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d after re-import, want 2 (one per grain)", len(records))
	}
}

func TestWriteBatch_ReplacesSpendOnConflict(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.WriteBatch(1, []models.DailyBucket{bucket("2024-03-01", "STUD", "CM", 10.0, 100.0)}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	// A corrected re-export of the same day replaces the grain's values.
	if _, err := store.WriteBatch(1, []models.DailyBucket{bucket("2024-03-01", "STUD", "CM", 25.0, 250.0)}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	records, err := store.ListRange(1, "2024-03-01", "2024-03-01")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].SpendUSD != 25.0 {
		t.Errorf("SpendUSD = %v, want 25 (replaced, not incremented)", records[0].SpendUSD)
	}
	if records[0].SpendLocal != 250.0 {
		t.Errorf("SpendLocal = %v, want 250", records[0].SpendLocal)
	}
}

func TestWriteBatch_EmptyBatch(t *testing.T) {
	store := newTestStore(t)

	written, err := store.WriteBatch(1, nil)
	if err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
}

func TestListRange_OrderAndBounds(t *testing.T) {
	store := newTestStore(t)

	buckets := []models.DailyBucket{
		bucket("2024-03-01", "VIRAMAX", "CM", 1.0, 10.0),
		bucket("2024-03-01", "STUD", "TG", 2.0, 20.0),
		bucket("2024-03-01", "STUD", "CM", 3.0, 30.0),
		bucket("2024-03-05", "STUD", "CM", 4.0, 40.0),
		bucket("2024-04-01", "STUD", "CM", 5.0, 50.0), // outside the window
	}
	if _, err := store.WriteBatch(1, buckets); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	records, err := store.ListRange(1, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("len(records) = %d, want 4 (April excluded)", len(records))
	}

	// Newest date first, then product, then country.
	wantOrder := []struct{ date, product, country string }{
		{"2024-03-05", "STUD", "CM"},
		{"2024-03-01", "STUD", "CM"},
		{"2024-03-01", "STUD", "TG"},
		{"2024-03-01", "VIRAMAX", "CM"},
	}
	for i, want := range wantOrder {
		got := records[i]
		if got.Date != want.date || got.Product != want.product || got.Country != want.country {
			t.Errorf("records[%d] = %s/%s/%s, want %s/%s/%s",
				i, got.Date, got.Product, got.Country, want.date, want.product, want.country)
		}
	}

	// Inclusive bounds on both ends.
	records, err = store.ListRange(1, "2024-03-05", "2024-03-05")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(records) != 1 || records[0].SpendUSD != 4.0 {
		t.Errorf("single-day window: %+v", records)
	}
}

func TestListRange_EmptyResultIsNotNil(t *testing.T) {
	store := newTestStore(t)

	records, err := store.ListRange(1, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if records == nil {
		t.Error("empty range must return an empty slice, not nil")
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestListRange_IsolatedPerUser(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.WriteBatch(1, []models.DailyBucket{bucket("2024-03-01", "STUD", "CM", 10.0, 100.0)}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.WriteBatch(2, []models.DailyBucket{bucket("2024-03-01", "STUD", "CM", 99.0, 990.0)}); err != nil {
		t.Fatal(err)
	}

	records, err := store.ListRange(1, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(records) != 1 || records[0].SpendUSD != 10.0 {
		t.Errorf("user 1 sees foreign records: %+v", records)
	}
}

func TestDeleteAllAndHasData(t *testing.T) {
	store := newTestStore(t)

	hasData, err := store.HasData(1)
	if err != nil {
		t.Fatalf("HasData failed: %v", err)
	}
	if hasData {
		t.Error("fresh store must report no data")
	}

	if _, err := store.WriteBatch(1, []models.DailyBucket{
		bucket("2024-03-01", "STUD", "CM", 10.0, 100.0),
		bucket("2024-03-02", "STUD", "CM", 11.0, 110.0),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.WriteBatch(2, []models.DailyBucket{bucket("2024-03-01", "GLUCO", "TG", 7.0, 70.0)}); err != nil {
		t.Fatal(err)
	}

	if hasData, _ = store.HasData(1); !hasData {
		t.Error("HasData = false after a write")
	}

	deleted, err := store.DeleteAll(1)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	if hasData, _ = store.HasData(1); hasData {
		t.Error("HasData = true after DeleteAll")
	}
	// Other users are untouched.
	if hasData, _ = store.HasData(2); !hasData {
		t.Error("DeleteAll for user 1 removed user 2's records")
	}
}
