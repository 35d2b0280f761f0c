package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/studyloop/internal/domain"
)

var t0 = time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedDeck(t *testing.T, db *DB, name string, fronts ...string) (*domain.Deck, []domain.Item) {
	t.Helper()
	ctx := context.Background()
	deck := &domain.Deck{Name: name, CreatedAt: t0}
	require.NoError(t, db.CreateDeck(ctx, deck))

	var items []domain.Item
	for _, front := range fronts {
		it := domain.NewItem(deck.ID, domain.Card{Front: front, Back: front + " back", Hash: front}, t0)
		require.NoError(t, db.InsertItem(ctx, &it))
		items = append(items, it)
	}
	return deck, items
}

func TestDeckLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	deck, items := seedDeck(t, db, "verbs", "a", "b", "c")
	require.NotZero(t, deck.ID)
	require.Len(t, items, 3)

	found, err := db.FindDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, "verbs", found.Name)
	assert.True(t, found.CreatedAt.Equal(t0))
	assert.Nil(t, found.LastScanned)

	byName, err := db.FindDeckByName(ctx, "verbs")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, deck.ID, byName.ID)

	missing, err := db.FindDeckByName(ctx, "nouns")
	require.NoError(t, err)
	assert.Nil(t, missing)

	scanned := t0.Add(time.Hour)
	require.NoError(t, db.MarkDeckScanned(ctx, deck.ID, scanned))
	found, err = db.FindDeck(ctx, deck.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastScanned)
	assert.True(t, found.LastScanned.Equal(scanned))

	require.NoError(t, db.DeleteDeck(ctx, deck.ID))
	_, err = db.FindDeck(ctx, deck.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	remaining, err := db.FetchItems(ctx, deck.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining, "deleting a deck deletes its items")

	assert.ErrorIs(t, db.DeleteDeck(ctx, deck.ID), domain.ErrNotFound)
}

func TestListDecksCounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, items := seedDeck(t, db, "b-deck", "x", "y", "z")
	seedDeck(t, db, "a-deck")

	items[0].ReviewCount = 1
	items[0].DueAt = t0.Add(-time.Hour)
	items[1].ReviewCount = 2
	items[1].DueAt = t0.Add(72 * time.Hour)
	require.NoError(t, db.SaveItem(ctx, &items[0]))
	require.NoError(t, db.SaveItem(ctx, &items[1]))

	decks, err := db.ListDecks(ctx, t0)
	require.NoError(t, err)
	require.Len(t, decks, 2)

	assert.Equal(t, "a-deck", decks[0].Name)
	assert.Equal(t, 0, decks[0].ItemCount)

	assert.Equal(t, "b-deck", decks[1].Name)
	assert.Equal(t, 3, decks[1].ItemCount)
	assert.Equal(t, 1, decks[1].NewCount)
	assert.Equal(t, 1, decks[1].DueCount)
}

func TestItemRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, items := seedDeck(t, db, "deck", "hello")

	it := items[0]
	reviewed := t0.Add(2 * time.Hour)
	it.ReviewCount = 4
	it.CorrectCount = 3
	it.LapseCount = 1
	it.IntervalDays = 9
	it.StrengthFactor = 1.7
	it.DueAt = reviewed.AddDate(0, 0, 9)
	it.LastReviewedAt = &reviewed
	it.Front = "hello again"
	it.Hash = "rehashed"
	require.NoError(t, db.SaveItem(ctx, &it))

	got, err := db.FetchItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello again", got.Front)
	assert.Equal(t, "rehashed", got.Hash)
	assert.Equal(t, 4, got.ReviewCount)
	assert.Equal(t, 3, got.CorrectCount)
	assert.Equal(t, 1, got.LapseCount)
	assert.Equal(t, 9, got.IntervalDays)
	assert.InDelta(t, 1.7, got.StrengthFactor, 1e-9)
	assert.True(t, got.DueAt.Equal(it.DueAt))
	require.NotNil(t, got.LastReviewedAt)
	assert.True(t, got.LastReviewedAt.Equal(reviewed))

	_, err = db.FetchItem(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ghost := domain.Item{ID: 9999}
	assert.ErrorIs(t, db.SaveItem(ctx, &ghost), domain.ErrNotFound)
}

func TestDuplicateItemHashRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	deck, _ := seedDeck(t, db, "deck", "same")

	dup := domain.NewItem(deck.ID, domain.Card{Front: "same", Hash: "same"}, t0)
	assert.Error(t, db.InsertItem(ctx, &dup))
}

func TestSessionPersistence(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	deck, items := seedDeck(t, db, "deck", "a", "b")

	none, err := db.FindActiveSession(ctx, deck.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	s := domain.NewSession(deck.ID, domain.Intelligent, []int64{items[1].ID, items[0].ID}, t0)
	require.NoError(t, db.InsertSession(ctx, s))

	active, err := db.FindActiveSession(ctx, deck.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, s.ID, active.ID)
	assert.Equal(t, s.Queue, active.Queue)
	assert.Equal(t, domain.Intelligent, active.Strategy)
	assert.True(t, active.IsActive)

	second := domain.NewSession(deck.ID, domain.Linear, nil, t0)
	assert.Error(t, db.InsertSession(ctx, second), "only one active session per deck")

	s.Cursor = 1
	s.ItemsPlayed = 3
	s.Strategy = domain.Linear
	s.IsActive = false
	require.NoError(t, db.SaveSession(ctx, s))

	none, err = db.FindActiveSession(ctx, deck.ID)
	require.NoError(t, err)
	assert.Nil(t, none, "finished sessions are not active")

	loaded, err := db.FindSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Cursor)
	assert.Equal(t, 3, loaded.ItemsPlayed)
	assert.Equal(t, domain.Linear, loaded.Strategy)
	assert.False(t, loaded.IsActive)

	require.NoError(t, db.InsertSession(ctx, second), "a new session can start once the old one finished")

	_, err = db.FindSession(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ghost := domain.NewSession(deck.ID, domain.Linear, nil, t0)
	assert.ErrorIs(t, db.SaveSession(ctx, ghost), domain.ErrNotFound)
}

func TestSaveSessionIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	deck, items := seedDeck(t, db, "deck", "a", "b", "c")

	s := domain.NewSession(deck.ID, domain.Linear, []int64{items[0].ID, items[1].ID, items[2].ID}, t0)
	require.NoError(t, db.InsertSession(ctx, s))
	s.Cursor = 2
	s.ItemsPlayed = 5

	dump := func() string {
		var row string
		err := db.conn.QueryRowContext(ctx, `
			SELECT id || '|' || deck_id || '|' || created_at || '|' || is_active || '|' || strategy || '|' ||
			       queue || '|' || cursor || '|' || items_played || '|' || correct_count
			FROM sessions WHERE id = ?`, s.ID).Scan(&row)
		require.NoError(t, err)
		return row
	}

	require.NoError(t, db.SaveSession(ctx, s))
	once := dump()
	require.NoError(t, db.SaveSession(ctx, s))
	assert.Equal(t, once, dump())
}

func TestCommitReview(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	deck, items := seedDeck(t, db, "deck", "a")

	s := domain.NewSession(deck.ID, domain.Linear, []int64{items[0].ID}, t0)
	require.NoError(t, db.InsertSession(ctx, s))

	commit := func(r domain.Rating, withSession bool) int {
		it := items[0]
		it.ReviewCount++
		entry := domain.ReviewEntry{
			ID: uuid.New(), ItemID: it.ID, ReviewedAt: t0, Rating: r,
			IntervalBefore: 0, IntervalAfter: 1, StrengthBefore: 2.5, StrengthAfter: 2.5,
		}
		if withSession {
			entry.SessionID = uuid.NullUUID{UUID: s.ID, Valid: true}
		}
		n, err := db.CommitReview(ctx, domain.ReviewCommit{Item: it, Entry: entry})
		require.NoError(t, err)
		items[0] = it
		return n
	}

	assert.Equal(t, 1, commit(domain.Easy, true))
	assert.Equal(t, 1, commit(domain.Again, true))
	assert.Equal(t, 1, commit(domain.Hard, true))
	assert.Equal(t, 2, commit(domain.Good, true))
	assert.Equal(t, 0, commit(domain.Easy, false))

	loaded, err := db.FindSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.CorrectCount)

	itemHistory, err := db.ReviewsForItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Len(t, itemHistory, 5)

	sessionHistory, err := db.ReviewsForSession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, sessionHistory, 4)
	assert.Equal(t, domain.Easy, sessionHistory[0].Rating)
	assert.True(t, sessionHistory[0].SessionID.Valid)

	stored, err := db.FetchItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.ReviewCount)
}

func TestCommitReviewIsAtomic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, items := seedDeck(t, db, "deck", "a")

	it := items[0]
	it.ReviewCount = 1
	entry := domain.ReviewEntry{
		ID: uuid.New(), ItemID: it.ID, ReviewedAt: t0, Rating: domain.Easy,
		SessionID: uuid.NullUUID{UUID: uuid.New(), Valid: true}, // unknown session
	}
	_, err := db.CommitReview(ctx, domain.ReviewCommit{Item: it, Entry: entry})
	require.Error(t, err)

	stored, err := db.FetchItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.ReviewCount, "item update must roll back with the failed review")

	history, err := db.ReviewsForItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}
