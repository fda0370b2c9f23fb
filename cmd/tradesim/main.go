package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/tradesim/tradesim/internal/config"
	"github.com/tradesim/tradesim/internal/orchestrator"
	"github.com/tradesim/tradesim/internal/report"
	"github.com/tradesim/tradesim/internal/types"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional, falls back to TRADESIM_CONFIG)")
	outPath := flag.String("out", "", "write the JSON summary to this file")
	showTrades := flag.Bool("trades", false, "print each run's trade list")
	bars := flag.Int("bars", 500, "bars per synthetic series")
	seed := flag.Int64("seed", 42, "seed for the synthetic series")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assets := map[string][]types.Bar{
		"EURUSD": trendingSeries(*seed, *bars, start, 1.0850),
		"GBPUSD": rangingSeries(*seed+1, *bars, start, 1.2700),
		"USDJPY": volatileSeries(*seed+2, *bars, start, 150.00),
	}
	conditions := map[string]orchestrator.MarketCondition{
		"EURUSD": orchestrator.Trend,
		"GBPUSD": orchestrator.Range,
		"USDJPY": orchestrator.Volatility,
	}
	pairs := map[string]orchestrator.PairSeries{
		"EURUSD/GBPUSD": {
			A: "EURUSD", B: "GBPUSD",
			SeriesA: assets["EURUSD"], SeriesB: assets["GBPUSD"],
		},
	}

	slog.Info("Starting session", "assets", len(assets), "pairs", len(pairs), "bars", *bars, "balance", cfg.InitialBalance)

	o := orchestrator.New(orchestrator.Config{
		MaxConcurrentStrategies: cfg.MaxConcurrentStrategies,
		MaxExposurePerAsset:     cfg.MaxExposurePerAsset,
		InitialBalance:          cfg.InitialBalance,
		PipValue:                cfg.PipValue,
		Costs:                   cfg.Costs,
		Risk:                    cfg.Risk,
	})
	results := o.RunAssets(ctx, assets, conditions, pairs)

	summary := report.Summarize(results, time.Now().UTC())
	for _, run := range summary.Runs {
		fmt.Printf("\n--- %s on %s [%s] ---\n", run.Strategy, run.Instrument, run.Status)
		if run.Stats != nil {
			run.Stats.Print()
			if *showTrades && len(run.Trades) > 0 {
				view := report.Results{
					InitialBalance: run.InitialBalance,
					FinalBalance:   run.FinalBalance,
					Trades:         run.Trades,
				}
				view.PrintTrades()
			}
		} else if run.Reason != "" {
			fmt.Printf("Reason: %s\n", run.Reason)
		}
	}

	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			slog.Error("Failed to create summary file", "path", *outPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := summary.WriteJSON(f); err != nil {
			slog.Error("Failed to write summary", "error", err)
			os.Exit(1)
		}
		slog.Info("Wrote summary", "path", *outPath)
	}
}

// trendingSeries drifts upward with small noise.
func trendingSeries(seed int64, n int, start time.Time, base float64) []types.Bar {
	rng := rand.New(rand.NewSource(seed))
	return series(rng, n, start, base, func(i int, price float64) float64 {
		return price * (1 + 0.0004 + rng.NormFloat64()*0.0008)
	})
}

// rangingSeries oscillates around the base price.
func rangingSeries(seed int64, n int, start time.Time, base float64) []types.Bar {
	rng := rand.New(rand.NewSource(seed))
	return series(rng, n, start, base, func(i int, price float64) float64 {
		cycle := base * (1 + 0.005*math.Sin(float64(i)/12))
		return price + (cycle-price)*0.3 + rng.NormFloat64()*base*0.0005
	})
}

// volatileSeries has no drift and fat noise.
func volatileSeries(seed int64, n int, start time.Time, base float64) []types.Bar {
	rng := rand.New(rand.NewSource(seed))
	return series(rng, n, start, base, func(i int, price float64) float64 {
		return price * (1 + rng.NormFloat64()*0.004)
	})
}

func series(rng *rand.Rand, n int, start time.Time, base float64, next func(int, float64) float64) []types.Bar {
	bars := make([]types.Bar, n)
	price := base
	for i := 0; i < n; i++ {
		open := price
		price = next(i, price)
		high := math.Max(open, price) * (1 + math.Abs(rng.NormFloat64())*0.0003)
		low := math.Min(open, price) * (1 - math.Abs(rng.NormFloat64())*0.0003)
		bars[i] = types.Bar{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    1000 + rng.Float64()*5000,
		}
	}
	return bars
}
