package storage

import (
	"database/sql"
	"fmt"

	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/models"
)

// AttributionStore persists attributed spend at the (user, date, product,
// country) grain on top of database/sql.
type AttributionStore struct {
	db *sql.DB
}

func NewAttributionStore(db *sql.DB) *AttributionStore {
	return &AttributionStore{db: db}
}

// WriteBatch merges one batch's daily buckets into spend_attributions as a
// single transaction: either every grain of the batch lands or none does.
// Re-importing the same source data replaces the spend values for a grain
// rather than incrementing them, so the write path is idempotent.
func (s *AttributionStore) WriteBatch(userID int64, buckets []models.DailyBucket) (int, error) {
	if len(buckets) == 0 {
		return 0, nil
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO spend_attributions (user_id, date, product, country, spend_usd, spend_local, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, date, product, country)
		DO UPDATE SET spend_usd = excluded.spend_usd, spend_local = excluded.spend_local, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("error preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, bucket := range buckets {
		if _, err := stmt.Exec(userID, bucket.Date, bucket.Product, bucket.Country, bucket.SpendUSD, bucket.SpendLocal); err != nil {
			return 0, fmt.Errorf("error upserting attribution (date=%s product=%s country=%s): %w",
				bucket.Date, bucket.Product, bucket.Country, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing attribution batch: %w", err)
	}

	logger.L.Info("Attribution batch written", "userID", userID, "records", len(buckets))
	return len(buckets), nil
}

// ListRange returns attribution records whose date falls within [start, end]
// inclusive, newest first. An empty result is a nil-free empty slice, not an
// error.
func (s *AttributionStore) ListRange(userID int64, start, end string) ([]models.AttributionRecord, error) {
	rows, err := s.db.Query(`SELECT id, user_id, date, product, country, spend_usd, spend_local, created_at, updated_at
		FROM spend_attributions
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC, product ASC, country ASC`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("error querying attributions for userID %d: %w", userID, err)
	}
	defer rows.Close()

	records := []models.AttributionRecord{}
	for rows.Next() {
		var rec models.AttributionRecord
		scanErr := rows.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Product, &rec.Country,
			&rec.SpendUSD, &rec.SpendLocal, &rec.CreatedAt, &rec.UpdatedAt)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning attribution row for userID %d: %w", userID, scanErr)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over attribution rows for userID %d: %w", userID, err)
	}
	return records, nil
}

// DeleteAll wipes every attribution record for the user. Deletion is a
// UI-triggered operation; the import engine itself never deletes.
func (s *AttributionStore) DeleteAll(userID int64) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM spend_attributions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting attributions for userID %d: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	logger.L.Info("Deleted all attributions for user", "userID", userID, "rows", affected)
	return affected, nil
}

// HasData reports whether the user has any persisted attribution records.
func (s *AttributionStore) HasData(userID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM spend_attributions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error counting attributions for userID %d: %w", userID, err)
	}
	return count > 0, nil
}
