package knol

import (
	"testing"

	"github.com/conorfennell/studyloop/internal/domain"
)

func TestNormalize(t *testing.T) {
	card := domain.Card{
		Front:   "  What is a LAPSE? \r\n",
		Back:    "An 'again' rating.",
		Context: "Spaced repetition",
	}
	expected := "what is a lapse?\nan 'again' rating.\nspaced repetition"
	normalized := Normalize(card)

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		card := domain.Card{Front: "Q", Back: "A", Context: "C"}
		// Hash for "q\na\nc"
		expectedHash := "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2"
		if hash := Hash(card); hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		card1 := domain.Card{Front: "  good morning ", Back: "Goedemorgen"}
		card2 := domain.Card{Front: "Good Morning", Back: "goedemorgen"}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("field boundaries matter", func(t *testing.T) {
		card1 := domain.Card{Front: "ab", Back: "c"}
		card2 := domain.Card{Front: "a", Back: "bc"}
		if Hash(card1) == Hash(card2) {
			t.Error("Expected hashes for differently split cards to differ")
		}
	})
}

func TestStamp(t *testing.T) {
	cards := []domain.Card{{Front: "one"}, {Front: "two"}}
	Stamp(cards)
	for _, c := range cards {
		if c.Hash != Hash(domain.Card{Front: c.Front}) {
			t.Errorf("Expected card %q to be stamped with its hash, but got %q", c.Front, c.Hash)
		}
	}
}
