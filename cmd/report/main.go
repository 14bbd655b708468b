package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/skpark33/bnf-stock/internal/domain"
	"github.com/skpark33/bnf-stock/internal/reporting"
	pgstore "github.com/skpark33/bnf-stock/internal/storage/postgres"
)

func main() {
	// Parse flags
	strategy := flag.String("strategy", "", "Strategy to report on (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	format := flag.String("format", "markdown", "Output format: markdown, signals-csv, results-csv")
	outPath := flag.String("out", "", "Output file (default: stdout)")

	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *strategy == "" {
		logger.Fatal("--strategy is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	switch *format {
	case "markdown", "signals-csv", "results-csv":
	default:
		logger.Fatalf("invalid format %q: must be markdown, signals-csv, or results-csv", *format)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	signalStore := pgstore.NewSignalRecordStore(pool)
	exitStore := pgstore.NewExitResultStore(pool)

	storedSignals, err := signalStore.GetByStrategy(ctx, *strategy)
	if err != nil {
		logger.Fatalf("load signals: %v", err)
	}
	storedResults, err := exitStore.GetByStrategy(ctx, *strategy)
	if err != nil {
		logger.Fatalf("load exit results: %v", err)
	}
	logger.Printf("Loaded %d signals, %d exit results", len(storedSignals), len(storedResults))

	signals := make([]domain.SignalRecord, len(storedSignals))
	for i, s := range storedSignals {
		signals[i] = *s
	}
	results := make([]domain.ExitResult, len(storedResults))
	for i, r := range storedResults {
		results[i] = *r
	}

	var rendered string
	switch *format {
	case "signals-csv":
		rendered = reporting.RenderSignalsCSV(signals)
	case "results-csv":
		rendered = reporting.RenderResultsCSV(results)
	default:
		report := &reporting.Report{
			GeneratedAt: time.Now(),
			Strategy:    *strategy,
			Signals:     signals,
			Results:     results,
		}
		if len(results) > 0 {
			report.Backtest = reporting.Summarize(results)
		}
		rendered = reporting.RenderMarkdown(report)
	}

	if *outPath == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*outPath, []byte(rendered), 0o644); err != nil {
		logger.Fatalf("write %s: %v", *outPath, err)
	}
	logger.Printf("Wrote %s", *outPath)
}
