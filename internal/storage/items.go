package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/studyloop/internal/domain"
)

const itemColumns = `id, deck_id, hash, front, back, context,
	review_count, correct_count, lapse_count, interval_days, strength_factor,
	due_at, last_reviewed_at`

type scanner interface {
	Scan(dest ...any) error
}

// InsertItem inserts a new item and sets its ID.
func (db *DB) InsertItem(ctx context.Context, item *domain.Item) error {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO items (deck_id, hash, front, back, context,
			review_count, correct_count, lapse_count, interval_days, strength_factor,
			due_at, last_reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.DeckID, item.Hash, item.Front, item.Back, item.Context,
		item.ReviewCount, item.CorrectCount, item.LapseCount, item.IntervalDays, item.StrengthFactor,
		item.DueAt, toNullTime(item.LastReviewedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item %s: %w", item.Hash, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for item %s: %w", item.Hash, err)
	}
	item.ID = id
	return nil
}

// FetchItems retrieves every item of a deck, ordered by ID.
func (db *DB) FetchItems(ctx context.Context, deckID int64) ([]domain.Item, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items WHERE deck_id = ?
		ORDER BY id
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for deck %d: %w", deckID, err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row for deck %d: %w", deckID, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get items for deck %d: %w", deckID, err)
	}
	return items, nil
}

// FetchItem retrieves a single item by its ID.
func (db *DB) FetchItem(ctx context.Context, id int64) (*domain.Item, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item %d: %w", id, err)
	}
	return item, nil
}

// SaveItem updates an item's content, content hash and review statistics.
func (db *DB) SaveItem(ctx context.Context, item *domain.Item) error {
	return saveItem(ctx, db.conn, item)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveItem(ctx context.Context, ex execer, item *domain.Item) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE items
		SET hash = ?, front = ?, back = ?, context = ?,
		    review_count = ?, correct_count = ?, lapse_count = ?,
		    interval_days = ?, strength_factor = ?, due_at = ?, last_reviewed_at = ?
		WHERE id = ?
	`,
		item.Hash, item.Front, item.Back, item.Context,
		item.ReviewCount, item.CorrectCount, item.LapseCount,
		item.IntervalDays, item.StrengthFactor, item.DueAt, toNullTime(item.LastReviewedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", item.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Kind: "item", ID: item.ID}
	}
	return nil
}

// DeleteItem removes an item and its review history.
func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, err)
	}
	return nil
}

func scanItem(row scanner) (*domain.Item, error) {
	var it domain.Item
	var lastReviewed sql.NullTime
	err := row.Scan(
		&it.ID, &it.DeckID, &it.Hash, &it.Front, &it.Back, &it.Context,
		&it.ReviewCount, &it.CorrectCount, &it.LapseCount, &it.IntervalDays, &it.StrengthFactor,
		&it.DueAt, &lastReviewed,
	)
	if err != nil {
		return nil, err
	}
	it.LastReviewedAt = fromNullTime(lastReviewed)
	return &it, nil
}
