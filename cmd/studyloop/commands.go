package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/studyloop/internal/importer"
	"github.com/conorfennell/studyloop/internal/web"
)

func runServe(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	srv := &http.Server{
		Addr: a.cfg.HTTP.Addr,
		Handler: web.NewServer(web.Config{
			Decks:           a.db,
			Items:           a.db,
			Records:         a.db,
			Reviews:         a.db,
			Sessions:        a.sessions,
			Importer:        a.importer,
			DefaultStrategy: a.cfg.Study.DefaultStrategy(),
			AllowedOrigins:  a.cfg.HTTP.AllowedOrigins,
			Clock:           a.clock,
			Logger:          a.log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("starting server", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runImport(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	name, _ := fs.GetString("deck")
	if name == "" || fs.NArg() != 1 {
		return errors.New("usage: studyloop import --deck NAME <path/or/url.git>")
	}
	report, err := a.importer.Import(ctx, name, fs.Arg(0))
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func runSync(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	reports, err := a.importer.SyncAll(ctx)
	for i := range reports {
		printReport(&reports[i])
	}
	return err
}

func runDecks(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	decks, err := a.db.ListDecks(ctx, a.clock.Now())
	if err != nil {
		return err
	}
	if len(decks) == 0 {
		fmt.Println("No decks yet. Import one with: studyloop import --deck NAME <path>")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tITEMS\tDUE\tNEW\tSOURCE")
	for _, d := range decks {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n", d.ID, d.Name, d.ItemCount, d.DueCount, d.NewCount, d.Source)
	}
	return tw.Flush()
}

func printReport(r *importer.Report) {
	fmt.Printf("%s: %d cards parsed, %d new, %d removed, %d unchanged, %d errors.\n",
		r.Deck.Name, r.Parsed, r.Inserted, r.Deleted, r.Unchanged, len(r.Errors))
	if len(r.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range r.Errors {
			fmt.Printf("- %s\n", e)
		}
	}
}
