package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/playback"
	"github.com/conorfennell/studyloop/internal/session"
	"github.com/conorfennell/studyloop/internal/speech"
)

var playCommands = map[string]playback.Action{
	"n":      playback.Next,
	"next":   playback.Next,
	"p":      playback.Previous,
	"prev":   playback.Previous,
	"f":      playback.Flip,
	"flip":   playback.Flip,
	"pause":  playback.Pause,
	"resume": playback.Resume,
	"r":      playback.Resume,
	"q":      playback.Dismiss,
	"quit":   playback.Dismiss,
}

const playHelp = "Commands: n, p, f, pause, resume, s (change order), q"

func (a *app) newSpeaker(out io.Writer) speech.Speaker {
	switch a.cfg.Speech.Backend {
	case "console":
		return speech.NewConsole(out, a.clock, a.cfg.Speech.PerRune, a.cfg.Speech.MinDuration)
	case "command":
		return speech.NewCommand(a.cfg.Speech.Command, a.cfg.Speech.Args, a.log)
	default:
		return nil
	}
}

func runPlay(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	deck, st, err := a.prepareDeck(ctx, fs)
	if err != nil {
		return err
	}
	return a.play(ctx, deck, st, os.Stdin, os.Stdout)
}

// play runs the playback engine over st, reading commands from in until the
// user quits, in reaches EOF or ctx is cancelled.
func (a *app) play(ctx context.Context, deck *domain.Deck, st *session.State, in io.Reader, out io.Writer) error {
	if _, ok := st.Current(); !ok {
		fmt.Fprintf(out, "Deck %s has no cards.\n", deck.Name)
		return nil
	}

	// Dismiss is accepted from every state, so it can be processed more
	// than once before the loop below notices.
	dismissed := make(chan struct{})
	var dismissOnce sync.Once
	opts := a.cfg.Playback.Options(a.log)
	opts.OnDismiss = func() { dismissOnce.Do(func() { close(dismissed) }) }
	opts.OnChange = func(s playback.Snapshot) {
		a.log.Debug("playback", "state", s.State, "item_id", s.Item.ID, "flipped", s.Flipped)
	}

	engine := playback.New(st, a.newSpeaker(out), a.clock, opts)
	defer func() {
		engine.Close()
		if err := st.Save(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("failed to save session", "error", err)
		}
	}()

	fmt.Fprintf(out, "Playing %s (%s). %s\n", deck.Name, st.Session().Strategy, playHelp)
	engine.Send(playback.Start)

	lines := readLines(in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dismissed:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd := strings.ToLower(strings.TrimSpace(line))
			if cmd == "s" {
				cycleStrategy(ctx, a, st, out)
				continue
			}
			action, known := playCommands[cmd]
			if !known {
				fmt.Fprintln(out, playHelp)
				continue
			}
			engine.Send(action)
		}
	}
}

// cycleStrategy switches st to the next ordering, keeping the current card.
func cycleStrategy(ctx context.Context, a *app, st *session.State, out io.Writer) {
	next := st.Session().Strategy.Next()
	if err := st.ChangeStrategy(ctx, next); err != nil {
		a.log.Warn("failed to change order", "strategy", next, "error", err)
	}
	fmt.Fprintf(out, "Order: %s\n", st.Session().Strategy)
}

// readLines delivers lines from r until EOF.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}
