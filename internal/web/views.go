package web

import (
	"time"

	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/session"
)

type deckView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Source      string     `json:"source,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
	ItemCount   int        `json:"item_count"`
	DueCount    int        `json:"due_count"`
	NewCount    int        `json:"new_count"`
}

func newDeckView(d domain.Deck) deckView {
	return deckView{
		ID:          d.ID,
		Name:        d.Name,
		Source:      d.Source,
		CreatedAt:   d.CreatedAt,
		LastScanned: d.LastScanned,
	}
}

func newDeckSummaryView(d domain.DeckSummary) deckView {
	v := newDeckView(d.Deck)
	v.ItemCount = d.ItemCount
	v.DueCount = d.DueCount
	v.NewCount = d.NewCount
	return v
}

type itemView struct {
	ID             int64      `json:"id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Context        string     `json:"context,omitempty"`
	ReviewCount    int        `json:"review_count"`
	CorrectCount   int        `json:"correct_count"`
	LapseCount     int        `json:"lapse_count"`
	IntervalDays   int        `json:"interval_days"`
	StrengthFactor float64    `json:"strength_factor"`
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}

func newItemView(it domain.Item) itemView {
	return itemView{
		ID:             it.ID,
		Front:          it.Front,
		Back:           it.Back,
		Context:        it.Context,
		ReviewCount:    it.ReviewCount,
		CorrectCount:   it.CorrectCount,
		LapseCount:     it.LapseCount,
		IntervalDays:   it.IntervalDays,
		StrengthFactor: it.StrengthFactor,
		DueAt:          it.DueAt,
		LastReviewedAt: it.LastReviewedAt,
	}
}

type sessionView struct {
	ID           string    `json:"id"`
	DeckID       int64     `json:"deck_id"`
	CreatedAt    time.Time `json:"created_at"`
	Active       bool      `json:"active"`
	Strategy     string    `json:"strategy"`
	Queue        []int64   `json:"queue"`
	Cursor       int       `json:"cursor"`
	ItemsPlayed  int       `json:"items_played"`
	CorrectCount int       `json:"correct_count"`
	Current      *itemView `json:"current,omitempty"`
}

func newSessionView(st *session.State) sessionView {
	v := newSessionRecordView(st.Session())
	if it, ok := st.Current(); ok {
		iv := newItemView(it)
		v.Current = &iv
	}
	return v
}

func newSessionRecordView(s domain.Session) sessionView {
	return sessionView{
		ID:           s.ID.String(),
		DeckID:       s.DeckID,
		CreatedAt:    s.CreatedAt,
		Active:       s.IsActive,
		Strategy:     string(s.Strategy),
		Queue:        s.Queue,
		Cursor:       s.Cursor,
		ItemsPlayed:  s.ItemsPlayed,
		CorrectCount: s.CorrectCount,
	}
}

type reviewView struct {
	ID             string    `json:"id"`
	ItemID         int64     `json:"item_id"`
	ReviewedAt     time.Time `json:"reviewed_at"`
	Rating         string    `json:"rating"`
	IntervalBefore int       `json:"interval_before"`
	IntervalAfter  int       `json:"interval_after"`
	StrengthBefore float64   `json:"strength_before"`
	StrengthAfter  float64   `json:"strength_after"`
}

func newReviewView(e domain.ReviewEntry) reviewView {
	return reviewView{
		ID:             e.ID.String(),
		ItemID:         e.ItemID,
		ReviewedAt:     e.ReviewedAt,
		Rating:         e.Rating.String(),
		IntervalBefore: e.IntervalBefore,
		IntervalAfter:  e.IntervalAfter,
		StrengthBefore: e.StrengthBefore,
		StrengthAfter:  e.StrengthAfter,
	}
}

func newReviewViews(entries []domain.ReviewEntry) []reviewView {
	out := make([]reviewView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newReviewView(e))
	}
	return out
}
