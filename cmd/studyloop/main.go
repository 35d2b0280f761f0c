package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/conorfennell/studyloop/internal/clock"
	"github.com/conorfennell/studyloop/internal/config"
	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/gitsource"
	"github.com/conorfennell/studyloop/internal/importer"
	"github.com/conorfennell/studyloop/internal/queue"
	"github.com/conorfennell/studyloop/internal/review"
	"github.com/conorfennell/studyloop/internal/session"
	"github.com/conorfennell/studyloop/internal/storage"
)

const usage = `usage: studyloop <command> [flags]

commands:
  serve                       run the HTTP API
  import --deck NAME SOURCE   import a deck from a directory or git URL
  sync                        re-import every deck that has a source
  decks                       list decks
  play --deck NAME            hands-free playback of a deck
  study --deck NAME           review a deck and rate each card

Run 'studyloop <command> --help' for the flags of a command.
`

type command func(ctx context.Context, a *app, fs *pflag.FlagSet) error

var commands = map[string]command{
	"serve":  runServe,
	"import": runImport,
	"sync":   runSync,
	"decks":  runDecks,
	"play":   runPlay,
	"study":  runStudy,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	// 1. Parse flags and load configuration
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	config.RegisterFlags(fs)
	fs.String("deck", "", "Deck name")
	if err := fs.Parse(os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 2. Set up logging and open the database
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.db.Close()

	// 3. Run the command until it finishes or we are interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, a, fs); err != nil {
		logger.Error("command failed", "command", name, "error", err)
		a.db.Close()
		os.Exit(1)
	}
}

// app wires the components every command shares.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	clock    clock.Clock
	db       *storage.DB
	sessions *session.Manager
	importer *importer.Importer
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", cfg.DB.Path)

	clk := clock.Real{}
	recorder := review.NewRecorder(db, cfg.Scheduler.Params(), clk, logger)
	manager := session.NewManager(session.Config{
		Decks:    db,
		Items:    db,
		Sessions: db,
		Recorder: recorder,
		Builder:  queue.NewBuilder(nil),
		Clock:    clk,
		Logger:   logger,
	})
	imp := importer.New(db, db, gitsource.NewSyncer(logger, nil), cfg.Sources.ReposDir, clk, logger)

	return &app{
		cfg:      cfg,
		log:      logger,
		clock:    clk,
		db:       db,
		sessions: manager,
		importer: imp,
	}, nil
}

// prepareDeck resumes or starts the session of the deck named by --deck.
func (a *app) prepareDeck(ctx context.Context, fs *pflag.FlagSet) (*domain.Deck, *session.State, error) {
	name, _ := fs.GetString("deck")
	if name == "" {
		return nil, nil, errors.New("--deck is required")
	}
	deck, err := a.db.FindDeckByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if deck == nil {
		return nil, nil, &domain.NotFoundError{Kind: "deck", ID: name}
	}
	strategy, err := domain.ParseStrategy(a.cfg.Study.Strategy)
	if err != nil {
		return nil, nil, err
	}
	st, err := a.sessions.Prepare(ctx, deck.ID, strategy)
	if err != nil {
		return nil, nil, err
	}
	return deck, st, nil
}
