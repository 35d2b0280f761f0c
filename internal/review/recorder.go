// Package review applies learner ratings to items.
package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/conorfennell/studyloop/internal/clock"
	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/scheduler"
)

// Recorder applies ratings through the scheduling algorithm and persists the
// result together with a history entry.
type Recorder struct {
	reviews domain.ReviewRepository
	params  *scheduler.Params
	clock   clock.Clock
	log     *slog.Logger
}

// NewRecorder creates a Recorder. A nil params uses scheduler.DefaultParams,
// a nil clock the system clock and a nil logger slog.Default().
func NewRecorder(reviews domain.ReviewRepository, params *scheduler.Params, clk clock.Clock, log *slog.Logger) *Recorder {
	if params == nil {
		params = scheduler.DefaultParams()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{reviews: reviews, params: params, clock: clock.Or(clk), log: log}
}

// Record applies rating to item. When sess is not nil the history entry is
// linked to it and sess.CorrectCount is refreshed.
//
// Record is all-or-nothing: item and sess are only modified after the store
// has committed the item statistics, the history entry and the session count
// together. On failure both are left untouched and a *domain.PersistError is
// returned.
func (r *Recorder) Record(ctx context.Context, item *domain.Item, rating domain.Rating, sess *domain.Session) (domain.ReviewEntry, error) {
	if !rating.IsValid() {
		return domain.ReviewEntry{}, fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(rating))
	}
	now := r.clock.Now()

	before := *item
	res := r.params.NextReview(before.IntervalDays, before.StrengthFactor, rating)

	after := before
	after.ReviewCount++
	if rating.IsLapse() {
		after.LapseCount++
	} else {
		after.CorrectCount++
	}
	after.IntervalDays = res.IntervalDays
	after.StrengthFactor = res.Strength
	after.DueAt = scheduler.NextDueDate(now, res.IntervalDays)
	reviewedAt := now
	after.LastReviewedAt = &reviewedAt

	entry := domain.ReviewEntry{
		ID:             uuid.New(),
		ItemID:         item.ID,
		ReviewedAt:     now,
		Rating:         rating,
		IntervalBefore: before.IntervalDays,
		IntervalAfter:  after.IntervalDays,
		StrengthBefore: before.StrengthFactor,
		StrengthAfter:  after.StrengthFactor,
	}
	if sess != nil {
		entry.SessionID = uuid.NullUUID{UUID: sess.ID, Valid: true}
	}

	correct, err := r.reviews.CommitReview(ctx, domain.ReviewCommit{Item: after, Entry: entry})
	if err != nil {
		return domain.ReviewEntry{}, &domain.PersistError{Op: "review", Err: err}
	}

	*item = after
	if sess != nil {
		sess.CorrectCount = correct
	}

	r.log.Debug("review recorded",
		"item_id", item.ID,
		"rating", rating.String(),
		"interval_before", entry.IntervalBefore,
		"interval_after", entry.IntervalAfter,
		"strength_after", entry.StrengthAfter,
	)
	return entry, nil
}
