package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/studyloop/internal/clock"
	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/knol"
	"github.com/conorfennell/studyloop/internal/storage"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeGit struct {
	calls []string
	files map[string]string
	err   error
}

func (f *fakeGit) Sync(_ context.Context, url, localPath string) error {
	f.calls = append(f.calls, url+" -> "+localPath)
	if f.err != nil {
		return f.err
	}
	for name, body := range f.files {
		if err := os.MkdirAll(localPath, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(localPath, name), []byte(body), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func setup(t *testing.T, git GitSyncer) (*Importer, *storage.DB, string) {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	reposDir := t.TempDir()
	return New(db, db, git, reposDir, clock.NewManual(t0), nil), db, reposDir
}

func writeDeck(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestImportLocalDirectory(t *testing.T) {
	im, db, _ := setup(t, nil)
	ctx := context.Background()
	dir := t.TempDir()
	writeDeck(t, dir, "animals.md", "Q: gato\nA: cat\n---\nQ: perro\nA: dog\n")
	writeDeck(t, filepath.Join(dir, "sub"), "colours.MD", "Q: rojo\nA: red\nC: colour\n")
	writeDeck(t, dir, "notes.txt", "Q: ignored\nA: ignored\n")

	report, err := im.Import(ctx, "spanish", dir)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Parsed)
	assert.Equal(t, 3, report.Inserted)
	assert.Empty(t, report.Errors)
	assert.Equal(t, dir, report.Deck.Source)
	require.NotNil(t, report.Deck.LastScanned)

	items, err := db.FetchItems(ctx, report.Deck.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, it := range items {
		assert.True(t, it.IsNew())
		assert.InDelta(t, domain.DefaultStrengthFactor, it.StrengthFactor, 1e-9)
		assert.NotEmpty(t, it.Hash)
	}
}

func TestReimportKeepsStatsAndDeletesOrphans(t *testing.T) {
	im, db, _ := setup(t, nil)
	ctx := context.Background()
	dir := t.TempDir()
	writeDeck(t, dir, "deck.md", "Q: uno\nA: one\n---\nQ: dos\nA: two\n")

	first, err := im.Import(ctx, "numbers", dir)
	require.NoError(t, err)

	items, err := db.FetchItems(ctx, first.Deck.ID)
	require.NoError(t, err)
	var uno domain.Item
	for _, it := range items {
		if it.Front == "uno" {
			uno = it
		}
	}
	uno.ReviewCount = 3
	uno.CorrectCount = 2
	uno.IntervalDays = 6
	require.NoError(t, db.SaveItem(ctx, &uno))

	writeDeck(t, dir, "deck.md", "Q: uno\nA: one\n---\nQ: tres\nA: three\n")
	second, err := im.Import(ctx, "numbers", dir)
	require.NoError(t, err)
	assert.Equal(t, first.Deck.ID, second.Deck.ID)
	assert.Equal(t, 1, second.Inserted)
	assert.Equal(t, 1, second.Deleted)
	assert.Equal(t, 1, second.Unchanged)

	kept, err := db.FetchItem(ctx, uno.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, kept.ReviewCount)
	assert.Equal(t, 6, kept.IntervalDays)

	items, err = db.FetchItems(ctx, first.Deck.ID)
	require.NoError(t, err)
	var fronts []string
	for _, it := range items {
		fronts = append(fronts, it.Front)
	}
	assert.ElementsMatch(t, []string{"uno", "tres"}, fronts)
}

func TestDuplicateCardsCountedOnce(t *testing.T) {
	im, _, _ := setup(t, nil)
	dir := t.TempDir()
	writeDeck(t, dir, "a.md", "Q: same\nA: card\n")
	writeDeck(t, dir, "b.md", "Q: SAME\nA: card\n")

	report, err := im.Import(context.Background(), "dupes", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Duplicates)
}

func TestImportGitSource(t *testing.T) {
	git := &fakeGit{files: map[string]string{"deck.md": "Q: hola\nA: hello\n"}}
	im, _, reposDir := setup(t, git)

	report, err := im.Import(context.Background(), "remote", "https://github.com/conorfennell/cards.git")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	require.Len(t, git.calls, 1)
	assert.Contains(t, git.calls[0], filepath.Join(reposDir, "github.com", "conorfennell", "cards"))
	assert.Equal(t, "https://github.com/conorfennell/cards.git", report.Deck.Source)
}

func TestImportGitFailure(t *testing.T) {
	git := &fakeGit{err: errors.New("authentication required")}
	im, db, _ := setup(t, git)

	_, err := im.Import(context.Background(), "remote", "git@github.com:u/cards.git")
	require.Error(t, err)

	deck, err := db.FindDeckByName(context.Background(), "remote")
	require.NoError(t, err)
	assert.Nil(t, deck, "a failed fetch creates no deck")
}

func TestImportMissingDirectory(t *testing.T) {
	im, _, _ := setup(t, nil)
	_, err := im.Import(context.Background(), "missing", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestCreateDeck(t *testing.T) {
	im, db, _ := setup(t, nil)
	ctx := context.Background()
	cards := []domain.Card{{Front: "sol", Back: "sun"}, {Front: "luna", Back: "moon"}}

	report, err := im.CreateDeck(ctx, "sky", cards)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Empty(t, report.Deck.Source)

	items, err := db.FetchItems(ctx, report.Deck.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = im.CreateDeck(ctx, "sky", cards)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSyncAll(t *testing.T) {
	im, _, _ := setup(t, nil)
	ctx := context.Background()
	dirA, dirB := t.TempDir(), t.TempDir()
	writeDeck(t, dirA, "a.md", "Q: a\nA: 1\n")
	writeDeck(t, dirB, "b.md", "Q: b\nA: 2\n")

	_, err := im.Import(ctx, "a", dirA)
	require.NoError(t, err)
	_, err = im.Import(ctx, "b", dirB)
	require.NoError(t, err)
	_, err = im.CreateDeck(ctx, "inline", []domain.Card{{Front: "x", Back: "y"}})
	require.NoError(t, err)

	writeDeck(t, dirA, "a2.md", "Q: a2\nA: 3\n")
	require.NoError(t, os.RemoveAll(dirB))

	reports, err := im.SyncAll(ctx)
	require.Error(t, err, "missing source directory is reported")
	require.Len(t, reports, 1)
	assert.Equal(t, "a", reports[0].Deck.Name)
	assert.Equal(t, 1, reports[0].Inserted)
}

func TestAddCard(t *testing.T) {
	im, db, _ := setup(t, nil)
	ctx := context.Background()
	report, err := im.CreateDeck(ctx, "animals", []domain.Card{{Front: "perro", Back: "dog"}})
	require.NoError(t, err)

	item, err := im.AddCard(ctx, report.Deck.ID, domain.Card{Front: "gato", Back: "cat"})
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, knol.Hash(domain.Card{Front: "gato", Back: "cat"}), item.Hash)
	assert.Equal(t, domain.DefaultStrengthFactor, item.StrengthFactor)

	items, err := db.FetchItems(ctx, report.Deck.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = im.AddCard(ctx, report.Deck.ID, domain.Card{Front: " Perro ", Back: "DOG"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists, "content hash ignores case and padding")

	_, err = im.AddCard(ctx, report.Deck.ID, domain.Card{Front: "  ", Back: "blank"})
	assert.ErrorIs(t, err, domain.ErrInvalidCard)

	_, err = im.AddCard(ctx, 999, domain.Card{Front: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditCard(t *testing.T) {
	im, db, _ := setup(t, nil)
	ctx := context.Background()
	report, err := im.CreateDeck(ctx, "animals", []domain.Card{
		{Front: "perro", Back: "dog"},
		{Front: "gato", Back: "cat"},
	})
	require.NoError(t, err)
	items, err := db.FetchItems(ctx, report.Deck.ID)
	require.NoError(t, err)
	perro := items[0]
	perro.ReviewCount = 2
	perro.IntervalDays = 4
	require.NoError(t, db.SaveItem(ctx, &perro))

	edited, err := im.EditCard(ctx, report.Deck.ID, perro.ID, domain.Card{Front: "perro", Back: "hound"})
	require.NoError(t, err)
	assert.Equal(t, "hound", edited.Back)
	assert.Equal(t, knol.Hash(domain.Card{Front: "perro", Back: "hound"}), edited.Hash)

	stored, err := db.FetchItem(ctx, perro.ID)
	require.NoError(t, err)
	assert.Equal(t, edited.Hash, stored.Hash)
	assert.Equal(t, 2, stored.ReviewCount, "review statistics survive an edit")
	assert.Equal(t, 4, stored.IntervalDays)

	_, err = im.EditCard(ctx, report.Deck.ID, perro.ID, domain.Card{Front: "gato", Back: "cat"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = im.EditCard(ctx, report.Deck.ID, perro.ID, domain.Card{Front: "perro", Back: "hound"})
	assert.NoError(t, err, "saving unchanged content does not collide with itself")

	other, err := im.CreateDeck(ctx, "other", nil)
	require.NoError(t, err)
	_, err = im.EditCard(ctx, other.Deck.ID, perro.ID, domain.Card{Front: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound, "items are addressed through their own deck")
}
