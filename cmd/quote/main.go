package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/skpark33/bnf-stock/internal/kis"
)

func main() {
	// Parse flags
	code := flag.String("code", "", "Stock code to quote (required)")
	appKey := flag.String("app-key", os.Getenv("KIS_APP_KEY"), "KIS app key (default: $KIS_APP_KEY)")
	appSecret := flag.String("app-secret", os.Getenv("KIS_APP_SECRET"), "KIS app secret (default: $KIS_APP_SECRET)")
	mock := flag.Bool("mock", false, "Use the paper-trading environment")
	daily := flag.Bool("daily", false, "Print recent daily bars")
	watch := flag.Bool("watch", false, "Stream realtime execution prices until interrupted")

	flag.Parse()

	logger := log.New(os.Stderr, "[quote] ", log.LstdFlags)

	if *code == "" {
		logger.Fatal("--code is required")
	}
	if *appKey == "" || *appSecret == "" {
		logger.Fatal("--app-key and --app-secret (or KIS_APP_KEY/KIS_APP_SECRET) are required")
	}

	baseURL := kis.RealBaseURL
	if *mock {
		baseURL = kis.MockBaseURL
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

	client := kis.NewClient(baseURL, *appKey, *appSecret)
	if err := client.Authorize(ctx); err != nil {
		logger.Fatalf("authorize: %v", err)
	}

	quote, err := client.CurrentPrice(ctx, *code)
	if err != nil {
		logger.Fatalf("current price: %v", err)
	}
	fmt.Printf("%s  open=%.0f high=%.0f low=%.0f last=%.0f volume=%d\n",
		quote.Code, quote.Open, quote.High, quote.Low, quote.Close, quote.Volume)

	if *daily {
		series, err := client.DailyBars(ctx, *code)
		if err != nil {
			logger.Fatalf("daily bars: %v", err)
		}
		for _, bar := range series {
			fmt.Printf("%s  open=%.0f high=%.0f low=%.0f close=%.0f volume=%d\n",
				bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		}
	}

	if !*watch {
		return
	}

	approvalKey, err := client.ApprovalKey(ctx)
	if err != nil {
		logger.Fatalf("approval key: %v", err)
	}

	rt, err := kis.NewRealtimeClient(ctx, kis.RealtimeEndpoint, approvalKey, nil)
	if err != nil {
		logger.Fatalf("connect realtime: %v", err)
	}
	defer rt.Close()

	ticks, err := rt.SubscribeQuotes(ctx, *code)
	if err != nil {
		logger.Fatalf("subscribe: %v", err)
	}
	logger.Printf("Watching %s, Ctrl-C to stop", *code)

	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			fmt.Printf("%s %s  price=%.0f volume=%d\n", tick.Code, tick.Time, tick.Price, tick.Volume)
		}
	}
}
