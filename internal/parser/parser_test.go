package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
		expectedCtx   string
	}{
		{
			name:          "Simple front and back",
			input:         "Q: How do you say 'thank you'?\nA: Dank je wel",
			expectedCards: 1,
			expectedFront: "How do you say 'thank you'?",
			expectedBack:  "Dank je wel",
		},
		{
			name:          "Front, back and context",
			input:         "Q: I'd like to ...\nA: I would like to ...\nC: Polite requests",
			expectedCards: 1,
			expectedFront: "I'd like to ...",
			expectedBack:  "I would like to ...",
			expectedCtx:   "Polite requests",
		},
		{
			name:          "F and B aliases",
			input:         "F: front text\nB: back text",
			expectedCards: 1,
			expectedFront: "front text",
			expectedBack:  "back text",
		},
		{
			name: "Multiline back",
			input: `
Q: Name the strategies
A: linear
shuffled
intelligent
`,
			expectedCards: 1,
			expectedFront: "Name the strategies",
			expectedBack:  "linear\nshuffled\nintelligent",
		},
		{
			name: "Two cards",
			input: `
Q: First front
A: First back

Q: Second front
A: Second back
`,
			expectedCards: 2,
			expectedFront: "First front",
			expectedBack:  "First back",
		},
		{
			name:          "Separator ends a card",
			input:         "Q: one\nA: 1\n---\nThis line is ignored\nQ: two\nA: 2",
			expectedCards: 2,
			expectedFront: "one",
			expectedBack:  "1",
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no cards.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Front\nA:Back",
			expectedCards: 1,
			expectedFront: "Front",
			expectedBack:  "Back",
		},
		{
			name:          "Back without front is dropped",
			input:         "A: orphan answer",
			expectedCards: 0,
		},
		{
			name:          "Front without back is kept",
			input:         "Q: only a front",
			expectedCards: 1,
			expectedFront: "only a front",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an error: %v", err)
			}
			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}
			if tc.expectedCards == 0 {
				return
			}
			card := cards[0]
			if card.Front != tc.expectedFront {
				t.Errorf("Expected front '%s', but got '%s'", tc.expectedFront, card.Front)
			}
			if card.Back != tc.expectedBack {
				t.Errorf("Expected back '%s', but got '%s'", tc.expectedBack, card.Back)
			}
			if card.Context != tc.expectedCtx {
				t.Errorf("Expected context '%s', but got '%s'", tc.expectedCtx, card.Context)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.md")
	if err := os.WriteFile(path, []byte("Q: a\nA: b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cards, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an error: %v", err)
	}
	if len(cards) != 1 || cards[0].Back != "b" {
		t.Errorf("Expected one card with back 'b', but got %+v", cards)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
