package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/studyloop/internal/domain"
)

// CreateDeck inserts a new deck and sets its ID.
func (db *DB) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = time.Now()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO decks (name, source, created_at, last_scanned)
		VALUES (?, ?, ?, ?)
	`, deck.Name, deck.Source, deck.CreatedAt, toNullTime(deck.LastScanned))
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", deck.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for deck %s: %w", deck.Name, err)
	}
	deck.ID = id
	return nil
}

// FindDeck retrieves a deck by its ID.
func (db *DB) FindDeck(ctx context.Context, id int64) (*domain.Deck, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, source, created_at, last_scanned
		FROM decks WHERE id = ?
	`, id)
	deck, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "deck", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deck %d: %w", id, err)
	}
	return deck, nil
}

// FindDeckByName retrieves a deck by its name.
func (db *DB) FindDeckByName(ctx context.Context, name string) (*domain.Deck, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, source, created_at, last_scanned
		FROM decks WHERE name = ?
	`, name)
	deck, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Deck not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deck by name %s: %w", name, err)
	}
	return deck, nil
}

// ListDecks retrieves all decks with their item, new and due counts as of
// now, counted the way domain.DeckSummary.Count does.
func (db *DB) ListDecks(ctx context.Context, now time.Time) ([]domain.DeckSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT d.id, d.name, d.source, d.created_at, d.last_scanned,
		       COUNT(i.id),
		       COALESCE(SUM(CASE WHEN i.review_count = 0 THEN 1 ELSE 0 END), 0)
		FROM decks d
		LEFT JOIN items i ON i.deck_id = d.id
		GROUP BY d.id
		ORDER BY d.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.DeckSummary
	index := map[int64]int{}
	for rows.Next() {
		var s domain.DeckSummary
		var lastScanned sql.NullTime
		if err := rows.Scan(&s.ID, &s.Name, &s.Source, &s.CreatedAt, &lastScanned, &s.ItemCount, &s.NewCount); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		s.LastScanned = fromNullTime(lastScanned)
		index[s.ID] = len(decks)
		decks = append(decks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}

	// Due dates are compared in Go rather than as stored text.
	dueRows, err := db.conn.QueryContext(ctx, `
		SELECT deck_id, due_at FROM items WHERE review_count > 0
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count due items: %w", err)
	}
	defer dueRows.Close()
	for dueRows.Next() {
		var deckID int64
		var dueAt time.Time
		if err := dueRows.Scan(&deckID, &dueAt); err != nil {
			return nil, fmt.Errorf("failed to scan due item row: %w", err)
		}
		if i, ok := index[deckID]; ok && !dueAt.After(now) {
			decks[i].DueCount++
		}
	}
	return decks, dueRows.Err()
}

// DeleteDeck removes a deck together with its items, sessions and review history.
func (db *DB) DeleteDeck(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deck %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Kind: "deck", ID: id}
	}
	return nil
}

// MarkDeckScanned updates the last_scanned timestamp for a deck.
func (db *DB) MarkDeckScanned(ctx context.Context, id int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE decks
		SET last_scanned = ?
		WHERE id = ?
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for deck %d: %w", id, err)
	}
	return nil
}

func scanDeck(row scanner) (*domain.Deck, error) {
	var d domain.Deck
	var lastScanned sql.NullTime
	if err := row.Scan(&d.ID, &d.Name, &d.Source, &d.CreatedAt, &lastScanned); err != nil {
		return nil, err
	}
	d.LastScanned = fromNullTime(lastScanned)
	return &d, nil
}
