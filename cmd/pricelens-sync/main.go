package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	corecfg "github.com/pricelens-lab/pricelens/internal/core/config"
	"github.com/pricelens-lab/pricelens/internal/core/storage/postgres"
	"github.com/pricelens-lab/pricelens/internal/ingestion"
	"github.com/pricelens-lab/pricelens/internal/keepa"
	"github.com/pricelens-lab/pricelens/internal/migrations"
)

// Exit codes: non-zero only for fatal setup problems. Individual product or
// batch failures are logged, counted and never change the exit code.
func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	asinsFile := flag.String("asins-file", "", "Path to newline-delimited external id list (required)")
	batch := flag.Int("batch", 0, "Batch size (overrides config)")
	workers := flag.Int("workers", 0, "Concurrent batch workers (overrides config)")
	stats := flag.Int("stats", -1, "Vendor stats flag (overrides config)")
	buybox := flag.Int("buybox", -1, "Vendor buybox flag (overrides config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if *asinsFile == "" {
		slog.Error("Missing required -asins-file flag")
		os.Exit(1)
	}

	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *batch > 0 {
		cfg.Sync.BatchSize = *batch
	}
	if *workers > 0 {
		cfg.Sync.Workers = *workers
	}
	if *stats >= 0 {
		cfg.Sync.Stats = *stats
	}
	if *buybox >= 0 {
		cfg.Sync.Buybox = *buybox
	}
	if err := cfg.ValidateSync(); err != nil {
		slog.Error("Invalid sync configuration", "error", err)
		os.Exit(1)
	}

	asins, err := ingestion.ReadExternalIDs(*asinsFile)
	if err != nil {
		slog.Error("Failed to read id list", "path", *asinsFile, "error", err)
		os.Exit(1)
	}
	if len(asins) == 0 {
		slog.Error("Id list is empty", "path", *asinsFile)
		os.Exit(1)
	}

	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	if err := dbAdapter.ValidateSchema(); err != nil {
		slog.Error("Schema validation failed", "error", err)
		os.Exit(1)
	}

	client := keepa.NewClient(cfg.Keepa.APIKey, cfg.Keepa.Domain, cfg.Keepa.FetchTimeout())
	runner := ingestion.NewRunner(client, postgres.NewSyncAdapter(dbAdapter.DB()), ingestion.Options{
		PlatformName: cfg.Platform.Name,
		BatchSize:    cfg.Sync.BatchSize,
		Workers:      cfg.Sync.Workers,
		Stats:        cfg.Sync.Stats,
		Buybox:       cfg.Sync.Buybox,
	})

	// A signal between batches leaves completed per-product transactions
	// durable; re-running the same list later is safe.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summary, err := runner.Run(ctx, asins)
	if err != nil {
		slog.Error("Sync run aborted", "error", err)
		os.Exit(1)
	}

	fmt.Printf("OK sync: products=%d prices_added=%d ratings_added=%d ranks_added=%d\n",
		summary.ProductsOK, summary.PricesAdded, summary.RatingsAdded, summary.RanksAdded)
}
