package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/knol"
)

// AddCard inserts a single card into an existing deck. It returns
// domain.ErrAlreadyExists if the deck already holds a card with the same
// content.
func (im *Importer) AddCard(ctx context.Context, deckID int64, card domain.Card) (*domain.Item, error) {
	if err := checkCard(card); err != nil {
		return nil, err
	}
	if _, err := im.decks.FindDeck(ctx, deckID); err != nil {
		return nil, err
	}
	card.Hash = knol.Hash(card)
	if err := im.checkUnique(ctx, deckID, 0, card.Hash); err != nil {
		return nil, err
	}

	item := domain.NewItem(deckID, card, im.clock.Now())
	if err := im.items.InsertItem(ctx, &item); err != nil {
		return nil, err
	}
	im.log.Info("card added", "deck_id", deckID, "item_id", item.ID, "hash", item.Hash)
	return &item, nil
}

// EditCard replaces the faces of an item and recomputes its content hash.
// Review statistics are kept. Cards of a deck with a source are replaced on
// its next import if the source still holds the old text.
func (im *Importer) EditCard(ctx context.Context, deckID, itemID int64, card domain.Card) (*domain.Item, error) {
	if err := checkCard(card); err != nil {
		return nil, err
	}
	item, err := im.items.FetchItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.DeckID != deckID {
		return nil, &domain.NotFoundError{Kind: "item", ID: itemID}
	}

	card.Hash = knol.Hash(card)
	if err := im.checkUnique(ctx, deckID, itemID, card.Hash); err != nil {
		return nil, err
	}

	item.Front, item.Back, item.Context, item.Hash = card.Front, card.Back, card.Context, card.Hash
	if err := im.items.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	im.log.Info("card edited", "deck_id", deckID, "item_id", itemID, "hash", item.Hash)
	return item, nil
}

// checkUnique fails if an item of the deck other than except has hash.
func (im *Importer) checkUnique(ctx context.Context, deckID, except int64, hash string) error {
	items, err := im.items.FetchItems(ctx, deckID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Hash == hash && it.ID != except {
			return fmt.Errorf("card matches item %d: %w", it.ID, domain.ErrAlreadyExists)
		}
	}
	return nil
}

func checkCard(card domain.Card) error {
	if strings.TrimSpace(card.Front) == "" {
		return fmt.Errorf("%w: front is empty", domain.ErrInvalidCard)
	}
	return nil
}
