// Package importer populates decks from Markdown card files in local
// directories or git repositories, and keeps them reconciled on re-import.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/conorfennell/studyloop/internal/clock"
	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/gitsource"
	"github.com/conorfennell/studyloop/internal/knol"
	"github.com/conorfennell/studyloop/internal/parser"
)

// GitSyncer fetches a git source into a local directory.
// *gitsource.Syncer implements it.
type GitSyncer interface {
	Sync(ctx context.Context, url, localPath string) error
}

// Report summarises one import.
type Report struct {
	Deck       domain.Deck
	Parsed     int
	Inserted   int
	Deleted    int
	Unchanged  int
	Duplicates int
	Errors     []error
}

type Importer struct {
	decks    domain.DeckRepository
	items    domain.ItemRepository
	git      GitSyncer
	reposDir string
	clock    clock.Clock
	log      *slog.Logger
}

// New creates an Importer. git may be nil, in which case git sources are
// rejected.
func New(decks domain.DeckRepository, items domain.ItemRepository, git GitSyncer, reposDir string, clk clock.Clock, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{decks: decks, items: items, git: git, reposDir: reposDir, clock: clock.Or(clk), log: log}
}

// Import reconciles deckName with the cards found under source, a local
// directory or a git URL. The deck is created if needed. Items whose content
// hash is unchanged keep their review statistics; items no longer present
// are deleted.
func (im *Importer) Import(ctx context.Context, deckName, source string) (*Report, error) {
	dir := source
	if gitsource.IsRemote(source) {
		if im.git == nil {
			return nil, fmt.Errorf("git source %s: no git syncer configured", source)
		}
		local, err := gitsource.LocalPath(im.reposDir, source)
		if err != nil {
			return nil, err
		}
		if err := im.git.Sync(ctx, source, local); err != nil {
			return nil, err
		}
		dir = local
	}

	cards, parseErrs, err := scanDir(dir)
	if err != nil {
		return nil, err
	}

	deck, err := im.ensureDeck(ctx, deckName, source)
	if err != nil {
		return nil, err
	}
	report, err := im.reconcile(ctx, deck, cards)
	if err != nil {
		return nil, err
	}
	report.Errors = append(parseErrs, report.Errors...)

	im.log.Info("reconciliation complete",
		"deck", deck.Name,
		"path", dir,
		"parsed_cards", report.Parsed,
		"inserted", report.Inserted,
		"orphaned_deleted", report.Deleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

// CreateDeck creates a deck from cards given in place. It fails with
// domain.ErrAlreadyExists if the name is taken.
func (im *Importer) CreateDeck(ctx context.Context, name string, cards []domain.Card) (*Report, error) {
	existing, err := im.decks.FindDeckByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("deck %q: %w", name, domain.ErrAlreadyExists)
	}
	deck, err := im.ensureDeck(ctx, name, "")
	if err != nil {
		return nil, err
	}
	knol.Stamp(cards)
	return im.reconcile(ctx, deck, cards)
}

// SyncAll re-imports every deck that has a source. A failing deck is logged
// and skipped.
func (im *Importer) SyncAll(ctx context.Context) ([]Report, error) {
	im.log.Info("starting sync for all decks")
	decks, err := im.decks.ListDecks(ctx, im.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}

	var reports []Report
	var errs []error
	for _, d := range decks {
		if d.Source == "" {
			continue
		}
		r, err := im.Import(ctx, d.Name, d.Source)
		if err != nil {
			im.log.Error("failed to sync deck", "deck", d.Name, "source", d.Source, "error", err)
			errs = append(errs, fmt.Errorf("deck %s: %w", d.Name, err))
			continue
		}
		reports = append(reports, *r)
	}
	if len(reports) == 0 && len(errs) == 0 {
		im.log.Info("no decks with sources; add one with: studyloop import --deck NAME <path/or/url.git>")
	}
	im.log.Info("sync complete", "decks", len(reports), "failed", len(errs))
	return reports, errors.Join(errs...)
}

func (im *Importer) ensureDeck(ctx context.Context, name, source string) (*domain.Deck, error) {
	deck, err := im.decks.FindDeckByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if deck != nil {
		if deck.Source != source && source != "" {
			im.log.Warn("deck already imported from another source", "deck", name, "source", deck.Source, "requested", source)
		}
		return deck, nil
	}
	deck = &domain.Deck{Name: name, Source: source, CreatedAt: im.clock.Now()}
	if err := im.decks.CreateDeck(ctx, deck); err != nil {
		return nil, err
	}
	im.log.Info("deck created", "deck", name, "id", deck.ID)
	return deck, nil
}

func (im *Importer) reconcile(ctx context.Context, deck *domain.Deck, cards []domain.Card) (*Report, error) {
	report := &Report{Parsed: len(cards)}

	existing, err := im.items.FetchItems(ctx, deck.ID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, it := range existing {
		known[it.Hash] = true
	}

	now := im.clock.Now()
	found := make(map[string]bool, len(cards))
	for _, card := range cards {
		if found[card.Hash] {
			report.Duplicates++
			continue
		}
		found[card.Hash] = true
		if known[card.Hash] {
			report.Unchanged++
			continue
		}
		item := domain.NewItem(deck.ID, card, now)
		if err := im.items.InsertItem(ctx, &item); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("insert %s: %w", card.Hash, err))
			continue
		}
		im.log.Debug("new card inserted", "deck", deck.Name, "hash", card.Hash)
		report.Inserted++
	}

	for _, it := range existing {
		if found[it.Hash] {
			continue
		}
		if err := im.items.DeleteItem(ctx, it.ID); err != nil {
			im.log.Warn("failed to delete orphaned card", "hash", it.Hash, "error", err)
			report.Errors = append(report.Errors, fmt.Errorf("delete %s: %w", it.Hash, err))
			continue
		}
		im.log.Debug("orphaned card deleted", "deck", deck.Name, "hash", it.Hash)
		report.Deleted++
	}

	if err := im.decks.MarkDeckScanned(ctx, deck.ID, now); err != nil {
		im.log.Warn("failed to update last scanned", "deck", deck.Name, "error", err)
	} else {
		deck.LastScanned = &now
	}
	report.Deck = *deck
	return report, nil
}

// scanDir parses every Markdown file under dir. Files that fail to parse are
// reported, not fatal.
func scanDir(dir string) ([]domain.Card, []error, error) {
	var cards []domain.Card
	var parseErrors []error

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		cards = append(cards, fileCards...)
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	knol.Stamp(cards)
	return cards, parseErrors, nil
}
