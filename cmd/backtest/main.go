// cmd/backtest replays historical bars from SQLite through the regime
// strategy against a paper broker to validate signal behavior without
// live market data.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/bars.db --speed=0 --from=0
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"regime-systemv1/config"
	"regime-systemv1/internal/execution"
	"regime-systemv1/internal/indicator"
	"regime-systemv1/internal/logger"
	"regime-systemv1/internal/marketdata/replay"
	"regime-systemv1/internal/model"
	"regime-systemv1/internal/portfolio"
	sqlitestore "regime-systemv1/internal/store/sqlite"
	"regime-systemv1/internal/strategy"
)

func main() {
	logger.Init("backtest", slog.LevelInfo)

	speed := flag.Float64("speed", 0, "Playback speed multiplier (0=max, 1=realtime, 100=100x)")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start replay from (0=all)")
	dbPath := flag.String("db", "", "Path to SQLite bar database (overrides SQLITE_PATH)")
	journalPath := flag.String("journal", "", "Path to fill journal database (empty=in-memory path from config)")
	flag.Parse()

	cfg := config.Load()
	if *dbPath != "" {
		cfg.SQLitePath = *dbPath
	}
	if *journalPath != "" {
		cfg.JournalPath = *journalPath
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		slog.Error("sqlite open failed", "err", err)
		os.Exit(1)
	}
	defer reader.Close()

	os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755)
	journal, err := execution.NewJournal(cfg.JournalPath)
	if err != nil {
		slog.Error("journal open failed", "err", err)
		os.Exit(1)
	}
	defer journal.Close()

	channel, quality, err := buildIndicators(cfg)
	if err != nil {
		slog.Error("indicator init failed", "err", err)
		os.Exit(1)
	}

	broker := execution.NewPaperBroker(cfg.Token, cfg.Exchange, cfg.StartingCash, cfg.SlippageBps)
	book := portfolio.New()
	broker.OnFill(func(f execution.Fill) {
		book.ApplyFill(f)
		if err := journal.RecordFill(f); err != nil {
			slog.Warn("journal write failed", "err", err, "order_id", f.OrderID)
		}
	})

	strat, err := strategy.NewRegimeStrategy(strategy.RegimeConfig{
		LowThreshold:  cfg.LowThreshold,
		HighThreshold: cfg.HighThreshold,
		BetweenFactor: cfg.BetweenFactor,
		Allocation:    cfg.Allocation,
		MaxOrders:     cfg.MaxOrders,
	}, channel, quality, broker, broker)
	if err != nil {
		slog.Error("strategy init failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	replayer := replay.New(reader)
	barCh := make(chan model.Bar, 10000)
	go func() {
		if err := replayer.Run(ctx, cfg.TF, *fromTS, *speed, barCh); err != nil && err != context.Canceled {
			slog.Error("replay failed", "err", err)
		}
		close(barCh)
	}()

	processed := 0
	signalCount := 0
	for bar := range barCh {
		if bar.Token != cfg.Token || bar.Exchange != cfg.Exchange {
			continue
		}
		broker.UpdatePrice(bar)
		book.UpdatePrice(bar)
		signals := strat.OnBar(bar)
		signalCount += len(signals)
		for _, sig := range signals {
			slog.Info("signal",
				"ts", bar.TS.Format("2006-01-02 15:04:05"),
				"action", sig.Action, "qty", sig.Qty, "tag", sig.Tag)
		}
		processed++
	}

	printSummary(cfg, broker, book, processed, signalCount, journal)
}

// buildIndicators constructs the channel and trend-quality indicators from config.
func buildIndicators(cfg *config.Config) (indicator.Channel, indicator.Indicator, error) {
	var channel indicator.Channel
	var err error
	switch cfg.ChannelType {
	case "BOLL":
		channel, err = indicator.NewBollinger(cfg.BollLength, cfg.BollMult)
	default:
		channel, err = indicator.NewLinRegChannel(cfg.LinRegCount, cfg.UpperDeviation, cfg.LowerDeviation)
	}
	if err != nil {
		return nil, nil, err
	}

	quality, err := indicator.NewTrendQuality(
		cfg.FastLength, cfg.SlowLength, cfg.TrendLength, cfg.NoiseLength,
		cfg.CorrectionFactor, indicator.NoiseMode(cfg.NoiseMode))
	if err != nil {
		return nil, nil, err
	}
	return channel, quality, nil
}

func printSummary(cfg *config.Config, broker *execution.PaperBroker, book *portfolio.Portfolio, processed, signalCount int, journal *execution.Journal) {
	sum := book.GetSummary()

	fmt.Println()
	fmt.Println("=== BACKTEST COMPLETE ===")
	fmt.Printf("Instrument:       %s:%s TF=%ds\n", cfg.Exchange, cfg.Token, cfg.TF)
	fmt.Printf("Bars processed:   %d\n", processed)
	fmt.Printf("Signals:          %d\n", signalCount)
	fmt.Printf("Fills:            %d\n", sum.Fills)
	fmt.Printf("Final cash:       %.2f\n", model.Rupees(broker.Cash()))
	fmt.Printf("Open position:    %d\n", broker.Position())
	fmt.Printf("Equity:           %.2f\n", model.Rupees(broker.Equity()))
	fmt.Printf("Realized PnL:     %.2f\n", model.Rupees(sum.RealizedPnL))
	fmt.Printf("Unrealized PnL:   %.2f\n", model.Rupees(sum.UnrealizedPnL))
	fmt.Printf("Total PnL:        %.2f\n", model.Rupees(sum.TotalPnL))

	if counts, err := journal.CountByTag(); err == nil && len(counts) > 0 {
		fmt.Println("Fills by tag:")
		for tag, n := range counts {
			fmt.Printf("  %-24s %d\n", tag, n)
		}
	}
}
