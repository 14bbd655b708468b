package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/skpark33/bnf-stock/internal/dataset"
	"github.com/skpark33/bnf-stock/internal/storage"
	chstore "github.com/skpark33/bnf-stock/internal/storage/clickhouse"
	"github.com/skpark33/bnf-stock/internal/storage/migrations"
)

func main() {
	// Parse flags
	dataDir := flag.String("data-dir", "", "Directory with per-year market data files (required)")
	startDate := flag.String("start-date", "", "Load range start, YYYYMMDD (required)")
	endDate := flag.String("end-date", "", "Load range end, YYYYMMDD (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (required)")
	skipDuplicates := flag.Bool("skip-duplicates", false, "Skip instruments whose bars already exist")

	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *dataDir == "" {
		logger.Fatal("--data-dir is required")
	}
	if *startDate == "" || *endDate == "" {
		logger.Fatal("--start-date and --end-date are required")
	}
	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
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

	logger.Printf("Loading market data from %s [%s..%s]", *dataDir, *startDate, *endDate)
	data, err := dataset.Load(*dataDir, *startDate, *endDate)
	if err != nil {
		logger.Fatalf("load dataset: %v", err)
	}
	logger.Printf("Loaded %d trading days, %d instruments", data.Days(), len(data.Universe()))

	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	store := chstore.NewBarStore(conn)

	var inserted, skipped int
	for _, inst := range data.Universe() {
		select {
		case <-ctx.Done():
			logger.Fatalf("ingest interrupted after %d instruments", inserted)
		default:
		}

		series, ok := data.Series(inst.Code)
		if !ok {
			continue
		}

		err := store.InsertBulk(ctx, inst.Code, series)
		if errors.Is(err, storage.ErrDuplicateKey) && *skipDuplicates {
			skipped++
			continue
		}
		if err != nil {
			logger.Fatalf("insert bars for %s: %v", inst.Code, err)
		}
		inserted++
	}

	logger.Printf("Done: %d instruments inserted, %d skipped", inserted, skipped)
}
