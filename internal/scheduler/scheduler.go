package scheduler

import (
	"math"
	"time"

	"github.com/conorfennell/studyloop/internal/domain"
)

// Params holds the tuning values of the scheduling algorithm.
type Params struct {
	MinFactor     float64 // lower bound of the strength factor
	MaxFactor     float64 // upper bound of the strength factor
	DefaultFactor float64 // strength used when a stored value is unusable

	Increment     float64 // strength gained on Good and Easy
	Decrement     float64 // strength lost on Again
	HardDecrement float64 // strength lost on Hard

	HardMultiplier float64
	GoodMultiplier float64
	EasyMultiplier float64
}

// DefaultParams provides the standard parameter set.
func DefaultParams() *Params {
	return &Params{
		MinFactor:      domain.MinStrengthFactor,
		MaxFactor:      domain.MaxStrengthFactor,
		DefaultFactor:  domain.DefaultStrengthFactor,
		Increment:      0.1,
		Decrement:      0.2,
		HardDecrement:  0.15,
		HardMultiplier: 0.5,
		GoodMultiplier: 1.0,
		EasyMultiplier: 1.5,
	}
}

// Result is the outcome of a single review.
type Result struct {
	IntervalDays int
	Strength     float64
}

// NextReview computes the interval and strength that follow a review rated
// rating. It never fails: a negative interval, an out-of-range strength or an
// unknown rating are normalised first, so a corrupted stored record heals on
// its next review.
func (p *Params) NextReview(interval int, strength float64, rating domain.Rating) Result {
	if p == nil {
		p = DefaultParams()
	}
	if interval < 0 {
		interval = 0
	}
	strength = p.clamp(strength)
	rating = normalizeRating(rating)

	if rating == domain.Again {
		return Result{
			IntervalDays: 1,
			Strength:     p.clamp(strength - p.Decrement),
		}
	}

	multiplier := p.EasyMultiplier
	newStrength := strength + p.Increment
	switch rating {
	case domain.Hard:
		multiplier = p.HardMultiplier
		newStrength = strength - p.HardDecrement
	case domain.Good:
		multiplier = p.GoodMultiplier
	}

	next := math.Round(float64(interval) * strength * multiplier)
	if math.IsNaN(next) || next < 1 {
		next = 1
	}
	if next > math.MaxInt32 {
		next = math.MaxInt32
	}

	return Result{
		IntervalDays: int(next),
		Strength:     p.clamp(newStrength),
	}
}

// clamp keeps strength within [MinFactor, MaxFactor]. NaN falls back to
// DefaultFactor.
func (p *Params) clamp(strength float64) float64 {
	if math.IsNaN(strength) {
		strength = p.DefaultFactor
	}
	return math.Max(p.MinFactor, math.Min(p.MaxFactor, strength))
}

func normalizeRating(r domain.Rating) domain.Rating {
	switch {
	case r < domain.Again:
		return domain.Again
	case r > domain.Easy:
		return domain.Easy
	}
	return r
}

// NextDueDate returns the moment an item reviewed at now becomes due again.
func NextDueDate(now time.Time, intervalDays int) time.Time {
	if intervalDays < 1 {
		intervalDays = 1
	}
	return now.AddDate(0, 0, intervalDays)
}
