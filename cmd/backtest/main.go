package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skpark33/bnf-stock/internal/dataset"
	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/reporting"
	"github.com/skpark33/bnf-stock/internal/screening"
	"github.com/skpark33/bnf-stock/internal/simulate"
	chstore "github.com/skpark33/bnf-stock/internal/storage/clickhouse"
	"github.com/skpark33/bnf-stock/internal/storage/migrations"
	pgstore "github.com/skpark33/bnf-stock/internal/storage/postgres"
)

func main() {
	// Parse flags
	strategy := flag.String("strategy", "", "Strategy whose stored signals to simulate (required)")
	startDate := flag.String("start-date", "", "Restrict to signals dated on or after (YYYYMMDD)")
	endDate := flag.String("end-date", "", "Restrict to signals dated on or before (YYYYMMDD)")

	// Signal source
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")

	// Bar source: a dataset directory or the ClickHouse bar store
	dataDir := flag.String("data-dir", "", "Directory with per-year market data files")
	dataStart := flag.String("data-start", "", "Dataset load range start (YYYYMMDD, required with --data-dir)")
	dataEnd := flag.String("data-end", "", "Dataset load range end (YYYYMMDD, required with --data-dir)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (bar store)")

	persist := flag.Bool("persist", false, "Persist exit results to PostgreSQL")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *strategy == "" {
		logger.Fatal("--strategy is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if (*dataDir == "") == (*clickhouseDSN == "") {
		logger.Fatal("exactly one of --data-dir or --clickhouse-dsn is required")
	}

	cfg, err := screening.FromName(*strategy)
	if err != nil {
		logger.Fatalf("invalid strategy %q: %v", *strategy, err)
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

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("run migrations: %v", err)
	}

	signalStore := pgstore.NewSignalRecordStore(pool)

	var stored []*domain.SignalRecord
	if *startDate != "" || *endDate != "" {
		start, end := *startDate, *endDate
		if start == "" {
			start = "00000000"
		}
		if end == "" {
			end = "99999999"
		}
		stored, err = signalStore.GetByDateRange(ctx, *strategy, start, end)
	} else {
		stored, err = signalStore.GetByStrategy(ctx, *strategy)
	}
	if err != nil {
		logger.Fatalf("load signals: %v", err)
	}
	if len(stored) == 0 {
		logger.Fatalf("no stored signals for strategy %s", *strategy)
	}
	logger.Printf("Loaded %d signals", len(stored))

	signals := make([]domain.SignalRecord, len(stored))
	for i, s := range stored {
		signals[i] = *s
	}

	src, closeSrc, err := barSource(ctx, logger, *dataDir, *dataStart, *dataEnd, *clickhouseDSN)
	if err != nil {
		logger.Fatal(err)
	}
	defer closeSrc()

	results := simulate.SimulateAll(signals, src, cfg.ExitMode)
	logger.Printf("Simulated %d of %d signals", len(results), len(signals))

	if *persist {
		exitStore := pgstore.NewExitResultStore(pool)
		for i := range results {
			if err := exitStore.Insert(ctx, &results[i]); err != nil {
				logger.Fatalf("insert exit result %s: %v", results[i].SignalID, err)
			}
		}
		logger.Printf("Persisted %d exit results", len(results))
	}

	report := &reporting.Report{
		GeneratedAt: time.Now(),
		Strategy:    *strategy,
		StartDate:   *startDate,
		EndDate:     *endDate,
		Backtest:    reporting.Summarize(results),
		Results:     results,
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Print(reporting.RenderMarkdown(report))
	}
}

// barSource builds the forward-bar source for simulation from either a
// dataset directory or the ClickHouse bar store.
func barSource(ctx context.Context, logger *log.Logger, dataDir, dataStart, dataEnd, clickhouseDSN string) (simulate.Source, func(), error) {
	if dataDir != "" {
		if dataStart == "" || dataEnd == "" {
			return nil, nil, fmt.Errorf("--data-start and --data-end are required with --data-dir")
		}
		data, err := dataset.Load(dataDir, dataStart, dataEnd)
		if err != nil {
			return nil, nil, fmt.Errorf("load dataset: %w", err)
		}
		return data, func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	src := &barStoreSource{
		ctx:    ctx,
		store:  chstore.NewBarStore(conn),
		logger: logger,
	}
	return src, func() { conn.Close() }, nil
}

// barStoreSource adapts the BarStore to the simulator's series lookup.
type barStoreSource struct {
	ctx    context.Context
	store  *chstore.BarStore
	logger *log.Logger
}

func (s *barStoreSource) Series(code string) (domain.Series, bool) {
	series, err := s.store.GetByCode(s.ctx, code)
	if err != nil {
		s.logger.Printf("load bars for %s: %v", code, err)
		return nil, false
	}
	if len(series) == 0 {
		return nil, false
	}
	return series, true
}
