package queue

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/conorfennell/studyloop/internal/domain"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func item(id int64, reviews, lapses int, due time.Time) domain.Item {
	return domain.Item{ID: id, ReviewCount: reviews, LapseCount: lapses, DueAt: due, StrengthFactor: 2.5}
}

func TestBuildLinear(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(1)))
	items := []domain.Item{item(5, 0, 0, now), item(2, 3, 0, now), item(9, 1, 1, now), item(1, 0, 0, now)}

	first := b.Build(items, domain.Linear, now)
	second := b.Build(items, domain.Linear, now)

	want := []int64{1, 2, 5, 9}
	if !equal(first, want) {
		t.Errorf("Expected %v, but got %v", want, first)
	}
	if !equal(first, second) {
		t.Errorf("Expected linear build to be deterministic, but got %v and %v", first, second)
	}
}

func TestBuildUnknownStrategyIsLinear(t *testing.T) {
	b := NewBuilder(nil)
	got := b.Build([]domain.Item{item(3, 0, 0, now), item(1, 0, 0, now)}, domain.Strategy("bogus"), now)
	if !equal(got, []int64{1, 3}) {
		t.Errorf("Expected [1 3], but got %v", got)
	}
}

func TestBuildShuffledIsPermutation(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(42)))
	var items []domain.Item
	for i := int64(1); i <= 50; i++ {
		items = append(items, item(i, 0, 0, now))
	}

	got := b.Build(items, domain.Shuffled, now)
	if len(got) != len(items) {
		t.Fatalf("Expected %d ids, but got %d", len(items), len(got))
	}
	sorted := append([]int64(nil), got...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, id := range sorted {
		if id != int64(i+1) {
			t.Fatalf("Expected a permutation of 1..50, but got %v", got)
		}
	}
}

func TestBuildEmptyDeck(t *testing.T) {
	b := NewBuilder(nil)
	for _, s := range domain.Strategies {
		if got := b.Build(nil, s, now); len(got) != 0 {
			t.Errorf("Expected empty queue for %s, but got %v", s, got)
		}
	}
}

func TestBuildIntelligentScenario(t *testing.T) {
	items := []domain.Item{
		item(3, 2, 0, now.AddDate(0, 0, 5)),
		item(2, 0, 0, now),
		item(1, 1, 0, now.AddDate(0, 0, -1)),
	}
	for seed := int64(0); seed < 20; seed++ {
		b := NewBuilder(rand.New(rand.NewSource(seed)))
		got := b.Build(items, domain.Intelligent, now)
		if !equal(got, []int64{1, 2, 3}) {
			t.Fatalf("Expected [1 2 3] with seed %d, but got %v", seed, got)
		}
	}
}

func TestBuildIntelligentBucketOrder(t *testing.T) {
	items := []domain.Item{
		item(1, 4, 2, now.AddDate(0, 0, 10)), // lapsed, not due
		item(2, 0, 0, now),                   // new
		item(3, 5, 0, now.AddDate(0, 0, 3)),  // settled
		item(4, 1, 0, now),                   // due exactly now
		item(5, 0, 0, now.AddDate(0, 0, 2)),  // new, due later
		item(6, 2, 0, now.AddDate(0, 0, -9)), // overdue
		item(7, 3, 0, now.AddDate(0, 1, 0)),  // settled
	}
	b := NewBuilder(rand.New(rand.NewSource(7)))
	got := b.Build(items, domain.Intelligent, now)
	if len(got) != len(items) {
		t.Fatalf("Expected %d ids, but got %v", len(items), got)
	}

	byID := map[int64]domain.Item{}
	for _, it := range items {
		byID[it.ID] = it
	}
	last := DueOrLapsed
	for _, id := range got {
		k := Classify(byID[id], now)
		if k < last {
			t.Fatalf("Expected buckets in priority order, but got %v", got)
		}
		last = k
	}
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		item domain.Item
		want Bucket
	}{
		{"overdue", item(1, 1, 0, now.Add(-time.Hour)), DueOrLapsed},
		{"lapsed but scheduled", item(1, 3, 1, now.Add(48*time.Hour)), DueOrLapsed},
		{"never reviewed", item(1, 0, 0, now.Add(-time.Hour)), Unseen},
		{"never reviewed with stray lapses", item(1, 0, 2, now), Unseen},
		{"scheduled", item(1, 2, 0, now.Add(time.Hour)), Settled},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.item, now); got != tc.want {
				t.Errorf("Expected bucket %d, but got %d", tc.want, got)
			}
		})
	}
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
