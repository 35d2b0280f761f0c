package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewEntry is the immutable record of one rating applied to an item.
// It references its item and, optionally, the session it was given in.
type ReviewEntry struct {
	ID             uuid.UUID
	ItemID         int64
	SessionID      uuid.NullUUID
	ReviewedAt     time.Time
	Rating         Rating
	IntervalBefore int
	IntervalAfter  int
	StrengthBefore float64
	StrengthAfter  float64
}

// ReviewCommit is everything a single rating changes, persisted as one unit.
type ReviewCommit struct {
	Item  Item
	Entry ReviewEntry
}
