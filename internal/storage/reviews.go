package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/conorfennell/studyloop/internal/domain"
)

const reviewColumns = `id, item_id, session_id, reviewed_at, rating,
	interval_before, interval_after, strength_before, strength_after`

// CommitReview applies a review in a single transaction: the item statistics
// are saved, the entry is appended and, if the entry belongs to a session,
// the session's correct count is recomputed and stored.
func (db *DB) CommitReview(ctx context.Context, c domain.ReviewCommit) (int, error) {
	var sessionCorrect int
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := saveItem(ctx, tx, &c.Item); err != nil {
			return err
		}

		e := c.Entry
		_, err := tx.ExecContext(ctx, `
			INSERT INTO review_entries (`+reviewColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.ItemID, e.SessionID, e.ReviewedAt, int(e.Rating),
			e.IntervalBefore, e.IntervalAfter, e.StrengthBefore, e.StrengthAfter)
		if err != nil {
			return fmt.Errorf("failed to insert review entry for item %d: %w", e.ItemID, err)
		}

		if !e.SessionID.Valid {
			return nil
		}
		sessionCorrect, err = countSuccesses(ctx, tx, e.SessionID.UUID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE sessions SET correct_count = ? WHERE id = ?`, sessionCorrect, e.SessionID.UUID)
		if err != nil {
			return fmt.Errorf("failed to update correct count for session %s: %w", e.SessionID.UUID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &domain.NotFoundError{Kind: "session", ID: e.SessionID.UUID}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sessionCorrect, nil
}

// ReviewsForItem retrieves an item's review history, oldest first.
func (db *DB) ReviewsForItem(ctx context.Context, itemID int64) ([]domain.ReviewEntry, error) {
	return db.queryReviews(ctx, `SELECT `+reviewColumns+` FROM review_entries WHERE item_id = ? ORDER BY reviewed_at, rowid`, itemID)
}

// ReviewsForSession retrieves the reviews given during a session, oldest first.
func (db *DB) ReviewsForSession(ctx context.Context, sessionID uuid.UUID) ([]domain.ReviewEntry, error) {
	return db.queryReviews(ctx, `SELECT `+reviewColumns+` FROM review_entries WHERE session_id = ? ORDER BY reviewed_at, rowid`, sessionID)
}

func (db *DB) queryReviews(ctx context.Context, query string, arg any) ([]domain.ReviewEntry, error) {
	rows, err := db.conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query review entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.ReviewEntry
	for rows.Next() {
		var e domain.ReviewEntry
		var rating int
		if err := rows.Scan(&e.ID, &e.ItemID, &e.SessionID, &e.ReviewedAt, &rating,
			&e.IntervalBefore, &e.IntervalAfter, &e.StrengthBefore, &e.StrengthAfter); err != nil {
			return nil, fmt.Errorf("failed to scan review entry row: %w", err)
		}
		e.Rating = domain.Rating(rating)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
