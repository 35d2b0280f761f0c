package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/session"
)

func runStudy(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	deck, st, err := a.prepareDeck(ctx, fs)
	if err != nil {
		return err
	}
	return a.study(ctx, deck, st, os.Stdin, os.Stdout)
}

// study shows each card, waits for the answer to be revealed and records the
// rating the user gives it.
func (a *app) study(ctx context.Context, deck *domain.Deck, st *session.State, in io.Reader, out io.Writer) error {
	lines := readLines(in)

	// next returns the next input line; ok is false on EOF or interrupt.
	next := func() (string, bool) {
		select {
		case <-ctx.Done():
			return "", false
		case line, ok := <-lines:
			return strings.ToLower(strings.TrimSpace(line)), ok
		}
	}

	s := st.Session()
	fmt.Fprintf(out, "Studying %s: %d cards, %s order. Press Enter to flip; s changes order, q finishes, x leaves the session open.\n",
		deck.Name, len(s.Queue), s.Strategy)

	for {
		item, ok := st.Current()
		if !ok {
			fmt.Fprintln(out, "This deck has no cards.")
			return nil
		}
		s = st.Session()
		fmt.Fprintf(out, "\n[%d/%d] %s\n", s.Cursor+1, len(s.Queue), item.Front)

		line, ok := next()
		if !ok || line == "x" {
			return st.Save(context.WithoutCancel(ctx))
		}
		switch line {
		case "q":
			return finishStudy(ctx, st, out)
		case "s":
			cycleStrategy(ctx, a, st, out)
			continue
		}

		fmt.Fprintln(out, item.Back)
		if item.Context != "" {
			fmt.Fprintf(out, "(%s)\n", item.Context)
		}

		for {
			fmt.Fprint(out, "Rate 1 again, 2 hard, 3 good, 4 easy: ")
			line, ok = next()
			if !ok || line == "x" {
				return st.Save(context.WithoutCancel(ctx))
			}
			if line == "q" {
				return finishStudy(ctx, st, out)
			}
			rating, err := domain.ParseRating(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			entry, err := st.Rate(ctx, rating)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Next review in %d day(s).\n", entry.IntervalAfter)
			break
		}

		if err := st.Move(ctx, session.Next); err != nil {
			a.log.Warn("failed to save session position", "error", err)
		}
	}
}

func finishStudy(ctx context.Context, st *session.State, out io.Writer) error {
	if err := st.Finish(ctx); err != nil {
		return err
	}
	s := st.Session()
	fmt.Fprintf(out, "Session finished: %d cards played, %d correct.\n", s.ItemsPlayed, s.CorrectCount)
	return nil
}
