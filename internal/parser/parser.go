// Package parser reads flashcards from Markdown deck files.
//
// A card starts with a front line ("Q:" or "F:") and continues with an
// optional back ("A:" or "B:") and context ("C:"). Each field may span
// several lines. A new front line or a "---" separator ends the card.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/studyloop/internal/domain"
)

type field int

const (
	none field = iota
	front
	back
	context
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"Q:", front},
	{"F:", front},
	{"A:", back},
	{"B:", back},
	{"C:", context},
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. Cards without a
// front are dropped.
func Parse(r io.Reader) ([]domain.Card, error) {
	p := &cardParser{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		p.line(scanner.Text())
	}
	p.finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.cards, nil
}

type cardParser struct {
	cards   []domain.Card
	current domain.Card
	field   field
	block   []string
}

func (p *cardParser) line(line string) {
	if strings.TrimSpace(line) == "---" {
		p.finishCard()
		return
	}

	if f, rest, ok := splitPrefix(line); ok {
		p.flushBlock()
		if f == front && p.field != none { // A new front always starts a new card
			p.finishCard()
		}
		p.field = f
		p.block = append(p.block, rest)
		return
	}

	if p.field != none {
		p.block = append(p.block, line)
	}
}

func (p *cardParser) flushBlock() {
	if len(p.block) == 0 {
		return
	}
	content := strings.TrimRight(strings.Join(p.block, "\n"), "\n ")
	switch p.field {
	case front:
		p.current.Front = content
	case back:
		p.current.Back = content
	case context:
		p.current.Context = content
	}
	p.block = nil
}

func (p *cardParser) finishCard() {
	p.flushBlock()
	if p.current.Front != "" {
		p.cards = append(p.cards, p.current)
	}
	p.current = domain.Card{}
	p.field = none
}

func splitPrefix(line string) (field, string, bool) {
	for _, pr := range prefixes {
		if strings.HasPrefix(line, pr.prefix) {
			return pr.field, strings.TrimPrefix(line[len(pr.prefix):], " "), true
		}
	}
	return none, "", false
}
