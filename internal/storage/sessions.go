package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/conorfennell/studyloop/internal/domain"
)

const sessionColumns = `id, deck_id, created_at, is_active, strategy, queue, cursor, items_played, correct_count`

// InsertSession inserts a new session. The schema rejects a second active
// session for the same deck.
func (db *DB) InsertSession(ctx context.Context, s *domain.Session) error {
	queue, err := encodeQueue(s.Queue)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.DeckID, s.CreatedAt, s.IsActive, string(s.Strategy), queue, s.Cursor, s.ItemsPlayed, s.CorrectCount)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

// FindActiveSession retrieves the active session of a deck.
func (db *DB) FindActiveSession(ctx context.Context, deckID int64) (*domain.Session, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE deck_id = ? AND is_active = 1
		ORDER BY created_at DESC
		LIMIT 1
	`, deckID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No active session
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active session for deck %d: %w", deckID, err)
	}
	return s, nil
}

// FindSession retrieves a session by its ID.
func (db *DB) FindSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "session", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session %s: %w", id, err)
	}
	return s, nil
}

// SaveSession writes the mutable session fields and recomputes its correct
// count from the review history. s.CorrectCount is only updated once the
// write has committed.
func (db *DB) SaveSession(ctx context.Context, s *domain.Session) error {
	queue, err := encodeQueue(s.Queue)
	if err != nil {
		return err
	}

	var correct int
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		correct, err = countSuccesses(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET is_active = ?, strategy = ?, queue = ?, cursor = ?, items_played = ?, correct_count = ?
			WHERE id = ?
		`, s.IsActive, string(s.Strategy), queue, s.Cursor, s.ItemsPlayed, correct, s.ID)
		if err != nil {
			return fmt.Errorf("failed to update session %s: %w", s.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &domain.NotFoundError{Kind: "session", ID: s.ID}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.CorrectCount = correct
	return nil
}

// DeleteSession removes a session. Its review entries are kept and detached.
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func countSuccesses(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM review_entries
		WHERE session_id = ? AND rating >= ?
	`, sessionID, int(domain.SuccessThreshold)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count successful reviews for session %s: %w", sessionID, err)
	}
	return n, nil
}

func scanSession(row scanner) (*domain.Session, error) {
	var s domain.Session
	var strategy, queue string
	if err := row.Scan(&s.ID, &s.DeckID, &s.CreatedAt, &s.IsActive, &strategy, &queue, &s.Cursor, &s.ItemsPlayed, &s.CorrectCount); err != nil {
		return nil, err
	}
	s.Strategy = domain.Strategy(strategy)
	if err := json.Unmarshal([]byte(queue), &s.Queue); err != nil {
		return nil, fmt.Errorf("failed to decode queue of session %s: %w", s.ID, err)
	}
	if s.Queue == nil {
		s.Queue = []int64{}
	}
	return &s, nil
}

func encodeQueue(queue []int64) (string, error) {
	if queue == nil {
		queue = []int64{}
	}
	b, err := json.Marshal(queue)
	if err != nil {
		return "", fmt.Errorf("failed to encode queue: %w", err)
	}
	return string(b), nil
}
