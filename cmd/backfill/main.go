package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/openlegis/openlegis-backend/internal/app"
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
)

// Backfill runs one ingestion pass inline, without Temporal. Useful for
// loading a fresh archive drop or replaying a source locally.
func main() {
	var (
		kind     = flag.String("source", "", "source kind to ingest")
		limit    = flag.Int("limit", 0, "max items to process, 0 for all")
		congress = flag.Int("congress", 0, "restrict to one congress or session year")
		from     = flag.String("from", "", "earliest publication date, YYYY-MM-DD")
		to       = flag.String("to", "", "latest publication date, YYYY-MM-DD")
		pkg      = flag.String("package", "", "single package name to ingest")
	)
	flag.Parse()

	if *kind == "" {
		fmt.Println("usage: backfill -source <kind> [-limit n] [-congress n] [-from date] [-to date] [-package name]")
		os.Exit(2)
	}
	if !source.ValidKind(source.Kind(*kind)) {
		fmt.Printf("unknown source kind %q\n", *kind)
		os.Exit(2)
	}

	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scope := map[string]string{}
	if *congress > 0 {
		scope["congress"] = strconv.Itoa(*congress)
	}
	if *from != "" {
		scope["from"] = *from
	}
	if *to != "" {
		scope["to"] = *to
	}
	if *pkg != "" {
		scope["package"] = *pkg
	}
	if len(scope) == 0 {
		scope = nil
	}

	summary, err := a.Services.Ingest.Execute(ctx, source.Kind(*kind), orchestrator.Params{
		Trigger: types.TriggerManual,
		Limit:   *limit,
		Scope:   scope,
	})
	if err != nil {
		a.Log.Error("backfill failed", "source_kind", *kind, "error", err)
		os.Exit(1)
	}
	a.Log.Info("backfill finished",
		"run_id", summary.RunID.String(),
		"fetched", summary.Fetched,
		"skipped", summary.Skipped,
		"applied", summary.Applied,
		"failed", summary.Failed)
}
