// Command prune-webhook-events deletes payment event ledger rows processed
// before a cutoff.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/postgres"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/logging"
)

const defaultRetention = 30 * 24 * time.Hour

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		olderThan   = flag.Duration("older-than", defaultRetention, "Delete events processed longer ago than this")
		dryRun      = flag.Bool("dry-run", false, "Count matching events without deleting")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}
	if *olderThan < 72*time.Hour {
		// The provider retries for up to three days; pruning inside that
		// window would let a late retry be applied twice.
		log.Fatal("--older-than must be at least 72h")
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.InitLogger(level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.Connect(ctx, *databaseURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	slog.Info("Connected to database", "url", sanitizeURL(*databaseURL))

	start := time.Now()
	cutoff := start.Add(-*olderThan).UTC()

	n, err := postgres.NewBillingStore(pool).PruneEvents(ctx, cutoff, *dryRun)
	if err != nil {
		log.Fatalf("Prune failed: %v", err)
	}

	slog.Info("Prune summary",
		"dry_run", *dryRun,
		"cutoff", cutoff.Format(time.RFC3339),
		"events", n,
		"duration_ms", time.Since(start).Milliseconds())
}

// sanitizeURL hides the password for logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
