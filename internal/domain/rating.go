package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Rating is the learner's assessment of how well an item was recalled.
type Rating int

const (
	Again Rating = iota + 1 // Forgot; counts as a lapse.
	Hard                    // Recalled with significant difficulty.
	Good                    // Recalled with some effort.
	Easy                    // Recalled effortlessly.
)

// SuccessThreshold is the lowest rating that counts towards a session's
// correct count.
const SuccessThreshold = Good

var ratingNames = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}

// IsValid reports whether r is one of Again, Hard, Good or Easy.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// IsLapse reports whether r is the lowest tier.
func (r Rating) IsLapse() bool {
	return r == Again
}

// IsSuccess reports whether r meets the session success threshold.
func (r Rating) IsSuccess() bool {
	return r >= SuccessThreshold
}

func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating accepts either the rating name ("again", "Easy") or its
// numeric value ("1".."4").
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if r := Rating(n); r.IsValid() {
			return r, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	for r := Again; r <= Easy; r++ {
		if ratingNames[r] == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}
