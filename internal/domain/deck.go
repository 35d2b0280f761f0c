package domain

import "time"

// Deck is a named collection of Items. Deleting a deck deletes its items
// and sessions.
type Deck struct {
	ID          int64
	Name        string
	Source      string // local directory or git URL; empty for decks built in place
	CreatedAt   time.Time
	LastScanned *time.Time
}

// DeckSummary is a deck with aggregate counts for listings.
type DeckSummary struct {
	Deck
	ItemCount int
	DueCount  int
	NewCount  int
}

// Count adds it to the summary's counters as of now. Unseen items count as
// new, never as due; an item is due once it has been reviewed and its due
// date has passed.
func (s *DeckSummary) Count(it Item, now time.Time) {
	s.ItemCount++
	switch {
	case it.IsNew():
		s.NewCount++
	case it.IsDue(now):
		s.DueCount++
	}
}
