// Package queue orders the items of a deck for a study session.
package queue

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/conorfennell/studyloop/internal/domain"
)

// Builder produces session queues. It is safe for concurrent use.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder returns a Builder drawing randomness from rng. A nil rng is
// seeded from the current time.
func NewBuilder(rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{rng: rng}
}

// Build returns the identifiers of items ordered by strategy. Every item
// appears exactly once; an empty deck yields an empty queue. An unknown
// strategy is treated as Linear.
func (b *Builder) Build(items []domain.Item, strategy domain.Strategy, now time.Time) []int64 {
	switch strategy {
	case domain.Shuffled:
		ids := idsOf(items)
		b.shuffle(ids)
		return ids
	case domain.Intelligent:
		return b.intelligent(items, now)
	default:
		ids := idsOf(items)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids
	}
}

// Bucket is the priority partition an item falls into under the
// Intelligent strategy.
type Bucket int

const (
	DueOrLapsed Bucket = iota
	Unseen
	Settled
)

// Classify places item into its Intelligent bucket as of now.
func Classify(item domain.Item, now time.Time) Bucket {
	switch {
	case item.ReviewCount > 0 && (item.IsDue(now) || item.LapseCount > 0):
		return DueOrLapsed
	case item.ReviewCount == 0:
		return Unseen
	default:
		return Settled
	}
}

func (b *Builder) intelligent(items []domain.Item, now time.Time) []int64 {
	var buckets [3][]int64
	for _, it := range items {
		k := Classify(it, now)
		buckets[k] = append(buckets[k], it.ID)
	}

	ids := make([]int64, 0, len(items))
	for _, bucket := range buckets {
		b.shuffle(bucket)
		ids = append(ids, bucket...)
	}
	return ids
}

func (b *Builder) shuffle(ids []int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

func idsOf(items []domain.Item) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
