package domain

import "time"

// Default review statistics for an item that has never been reviewed.
const (
	DefaultStrengthFactor = 2.5
	MinStrengthFactor     = 1.3
	MaxStrengthFactor     = 2.5
)

// Item is a learnable unit owned by a Deck. Its review statistics are
// mutated only by the review recorder.
type Item struct {
	ID      int64
	DeckID  int64
	Hash    string
	Front   string
	Back    string
	Context string

	ReviewCount    int
	CorrectCount   int
	LapseCount     int
	IntervalDays   int
	StrengthFactor float64
	DueAt          time.Time
	LastReviewedAt *time.Time
}

// NewItem builds an unseen item for deckID from a parsed card.
func NewItem(deckID int64, card Card, now time.Time) Item {
	return Item{
		DeckID:         deckID,
		Hash:           card.Hash,
		Front:          card.Front,
		Back:           card.Back,
		Context:        card.Context,
		StrengthFactor: DefaultStrengthFactor,
		DueAt:          now,
	}
}

// IsNew reports whether the item has never been reviewed.
func (it Item) IsNew() bool { return it.ReviewCount == 0 }

// IsDue reports whether the item is due at now.
func (it Item) IsDue(now time.Time) bool { return !it.DueAt.After(now) }
