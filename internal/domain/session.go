package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is one study pass over a deck. At most one session per deck is
// active at a time.
type Session struct {
	ID           uuid.UUID
	DeckID       int64
	CreatedAt    time.Time
	IsActive     bool
	Strategy     Strategy
	Queue        []int64
	Cursor       int
	ItemsPlayed  int
	CorrectCount int
}

// NewSession returns an active session over queue with the cursor at 0.
func NewSession(deckID int64, strategy Strategy, queue []int64, now time.Time) *Session {
	if queue == nil {
		queue = []int64{}
	}
	return &Session{
		ID:        uuid.New(),
		DeckID:    deckID,
		CreatedAt: now,
		IsActive:  true,
		Strategy:  strategy,
		Queue:     queue,
	}
}

// CurrentItemID returns the item identifier under the cursor.
func (s *Session) CurrentItemID() (int64, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Queue) {
		return 0, false
	}
	return s.Queue[s.Cursor], true
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Queue = append(make([]int64, 0, len(s.Queue)), s.Queue...)
	return &c
}
