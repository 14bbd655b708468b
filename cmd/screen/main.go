package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/skpark33/bnf-stock/internal/dataset"
	"github.com/skpark33/bnf-stock/internal/reporting"
	"github.com/skpark33/bnf-stock/internal/screening"
	"github.com/skpark33/bnf-stock/internal/simulate"
	"github.com/skpark33/bnf-stock/internal/storage"
	"github.com/skpark33/bnf-stock/internal/storage/memory"
	"github.com/skpark33/bnf-stock/internal/storage/migrations"
	pgstore "github.com/skpark33/bnf-stock/internal/storage/postgres"
)

func main() {
	// Parse flags
	strategy := flag.String("strategy", "", "Strategy: momentum_trend, align_momentum, bollinger_volume, macd_rsi_separation (required)")
	dataDir := flag.String("data-dir", "", "Directory with per-year market data files (required)")
	startDate := flag.String("start-date", "", "Scan window start, YYYYMMDD (required)")
	endDate := flag.String("end-date", "", "Scan window end, YYYYMMDD (required)")
	dataStart := flag.String("data-start", "", "Load range start (default: one year before --start-date)")
	dataEnd := flag.String("data-end", "", "Load range end (default: end of --end-date's year)")
	disableStages := flag.String("disable-stages", "", "Comma-separated stage names to skip")
	workers := flag.Int("workers", runtime.NumCPU(), "Parallel instrument workers")

	runSim := flag.Bool("simulate", false, "Simulate exits for selected signals")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required with --persist)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage with --persist")
	persist := flag.Bool("persist", false, "Persist signals (and exit results) to storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[screen] ", log.LstdFlags)

	if *strategy == "" {
		logger.Fatal("--strategy is required")
	}
	if *dataDir == "" {
		logger.Fatal("--data-dir is required")
	}
	if *startDate == "" || *endDate == "" {
		logger.Fatal("--start-date and --end-date are required")
	}

	cfg, err := screening.FromName(*strategy)
	if err != nil {
		logger.Fatalf("invalid strategy %q: %v", *strategy, err)
	}
	cfg.StartDate = *startDate
	cfg.EndDate = *endDate
	if *disableStages != "" {
		cfg.DisabledStages = make(map[string]bool)
		for _, name := range strings.Split(*disableStages, ",") {
			cfg.DisabledStages[strings.TrimSpace(name)] = true
		}
	}

	loadStart, loadEnd, err := loadRange(*startDate, *endDate, *dataStart, *dataEnd)
	if err != nil {
		logger.Fatal(err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	logger.Printf("Loading market data from %s [%s..%s]", *dataDir, loadStart, loadEnd)
	data, err := dataset.Load(*dataDir, loadStart, loadEnd)
	if err != nil {
		logger.Fatalf("load dataset: %v", err)
	}
	logger.Printf("Loaded %d trading days, %d instruments", data.Days(), len(data.Universe()))

	runner, err := screening.NewRunner(cfg, *workers)
	if err != nil {
		logger.Fatalf("build runner: %v", err)
	}

	logger.Printf("Screening: strategy=%s window=[%s..%s] workers=%d",
		cfg.Strategy, cfg.StartDate, cfg.EndDate, *workers)

	signals, stats, err := runner.Run(ctx, data)
	if err != nil {
		logger.Fatalf("screening failed: %v", err)
	}
	logger.Printf("Selected %d of %d instruments", stats.Selected, stats.Universe)

	report := &reporting.Report{
		GeneratedAt: time.Now(),
		Strategy:    cfg.Strategy,
		StartDate:   cfg.StartDate,
		EndDate:     cfg.EndDate,
		Funnel:      stats,
		Signals:     signals,
	}

	if *runSim {
		results := simulate.SimulateAll(signals, data, cfg.ExitMode)
		report.Results = results
		report.Backtest = reporting.Summarize(results)
		logger.Printf("Simulated %d exits", len(results))
	}

	if *persist {
		if err := persistReport(ctx, logger, report, *postgresDSN, *useMemory); err != nil {
			logger.Fatalf("persist: %v", err)
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Print(reporting.RenderMarkdown(report))
	}
}

// loadRange widens the scan window so the warm-up history before the
// first scanned bar is available.
func loadRange(startDate, endDate, dataStart, dataEnd string) (string, string, error) {
	if dataStart == "" {
		year, err := strconv.Atoi(startDate[:4])
		if err != nil {
			return "", "", fmt.Errorf("bad --start-date %q", startDate)
		}
		dataStart = fmt.Sprintf("%04d%s", year-1, startDate[4:])
	}
	if dataEnd == "" {
		if len(endDate) != 8 {
			return "", "", fmt.Errorf("bad --end-date %q", endDate)
		}
		dataEnd = endDate[:4] + "1231"
	}
	return dataStart, dataEnd, nil
}

// persistReport writes signals and exit results to the chosen backend.
func persistReport(ctx context.Context, logger *log.Logger, report *reporting.Report, postgresDSN string, useMemory bool) error {
	var signalStore storage.SignalRecordStore = memory.NewSignalRecordStore()
	var exitStore storage.ExitResultStore = memory.NewExitResultStore()

	if !useMemory {
		if postgresDSN == "" {
			return fmt.Errorf("--postgres-dsn is required when not using --use-memory")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		signalStore = pgstore.NewSignalRecordStore(pool)
		exitStore = pgstore.NewExitResultStore(pool)
	}

	for i := range report.Signals {
		if err := signalStore.Insert(ctx, &report.Signals[i]); err != nil {
			return fmt.Errorf("insert signal %s: %w", report.Signals[i].SignalID, err)
		}
	}
	for i := range report.Results {
		if err := exitStore.Insert(ctx, &report.Results[i]); err != nil {
			return fmt.Errorf("insert exit result %s: %w", report.Results[i].SignalID, err)
		}
	}

	logger.Printf("Persisted %d signals, %d exit results", len(report.Signals), len(report.Results))
	return nil
}
