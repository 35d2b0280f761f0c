package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeckRepository persists decks. Lookups by identifier return a
// *NotFoundError when the deck does not exist.
type DeckRepository interface {
	CreateDeck(ctx context.Context, deck *Deck) error
	FindDeck(ctx context.Context, id int64) (*Deck, error)
	// FindDeckByName returns nil, nil when no deck has that name.
	FindDeckByName(ctx context.Context, name string) (*Deck, error)
	ListDecks(ctx context.Context, now time.Time) ([]DeckSummary, error)
	DeleteDeck(ctx context.Context, id int64) error
	MarkDeckScanned(ctx context.Context, id int64, at time.Time) error
}

// ItemRepository persists items and their review statistics.
type ItemRepository interface {
	FetchItems(ctx context.Context, deckID int64) ([]Item, error)
	FetchItem(ctx context.Context, id int64) (*Item, error)
	InsertItem(ctx context.Context, item *Item) error
	SaveItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id int64) error
}

// SessionRepository persists study sessions.
type SessionRepository interface {
	// FindActiveSession returns nil, nil when the deck has no active session.
	FindActiveSession(ctx context.Context, deckID int64) (*Session, error)
	FindSession(ctx context.Context, id uuid.UUID) (*Session, error)
	InsertSession(ctx context.Context, s *Session) error
	// SaveSession writes the session and refreshes s.CorrectCount from its
	// review entries that meet SuccessThreshold.
	SaveSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// ReviewRepository persists review entries.
type ReviewRepository interface {
	// CommitReview saves the item statistics and inserts the entry in one
	// transaction. When the entry belongs to a session it returns that
	// session's recomputed correct count.
	CommitReview(ctx context.Context, c ReviewCommit) (sessionCorrect int, err error)
	ReviewsForItem(ctx context.Context, itemID int64) ([]ReviewEntry, error)
	ReviewsForSession(ctx context.Context, sessionID uuid.UUID) ([]ReviewEntry, error)
}
