// Package knol derives the content identity of a card. The hash is the
// stable key of an item within its deck, so re-importing an unchanged card
// keeps its review statistics.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/studyloop/internal/domain"
)

// Normalize joins the card's faces after trimming, lowercasing and
// normalising line endings of each one.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return strings.TrimSpace(p)
	}

	// Joined with a newline so "ab"+"c" and "a"+"bc" stay distinct.
	return strings.Join([]string{
		normalizePart(card.Front),
		normalizePart(card.Back),
		normalizePart(card.Context),
	}, "\n")
}

// Hash returns the SHA-256 of the normalised card as a hex string.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}

// Stamp sets the Hash of every card in place.
func Stamp(cards []domain.Card) {
	for i := range cards {
		cards[i].Hash = Hash(cards[i])
	}
}
