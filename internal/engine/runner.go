package engine

import (
	"context"

	"github.com/tradesim/tradesim/internal/account"
	"github.com/tradesim/tradesim/internal/strategy"
	"github.com/tradesim/tradesim/internal/types"
)

// Status is the per-run outcome surfaced to the orchestrator's caller.
type Status string

const (
	Completed Status = "COMPLETED"
	Failed    Status = "FAILED"
	Halted    Status = "HALTED"
)

// RunResult is the finished ledger and final account snapshot for one
// (strategy, instrument) run.
type RunResult struct {
	Strategy   string
	Instrument string
	Status     Status
	Reason     string

	InitialBalance float64
	FinalBalance   float64
	SkippedBars    int
	Ledger         *account.Ledger
}

// Run replays the series through the strategy with a freshly isolated
// Account and Ledger. Malformed bars are skipped, cancellation lets the
// current bar finish, and any remaining exposure is flattened at the final
// bar. Faults in the strategy propagate as panics for the orchestrator to
// isolate.
func Run(ctx context.Context, cfg Config, initialBalance float64, strat strategy.Strategy, series []types.Bar) *RunResult {
	acc := account.NewAccount(initialBalance)
	ledger := account.NewLedger(initialBalance)
	exec := NewExecutor(cfg, acc, ledger)

	result := &RunResult{
		Strategy:       cfg.StrategyID,
		Instrument:     cfg.Instrument,
		InitialBalance: initialBalance,
		Ledger:         ledger,
	}

	engineLog.Debug("Starting run", "strategy", cfg.StrategyID, "instrument", cfg.Instrument, "bars", len(series), "balance", initialBalance)

	var lastBar *types.Bar
	for i := range series {
		if ctx.Err() != nil {
			engineLog.Info("Run cancelled, stopping after current bar", "strategy", cfg.StrategyID, "instrument", cfg.Instrument, "bar", i)
			break
		}

		bar := series[i]
		if err := bar.Validate(); err != nil {
			result.SkippedBars++
			engineLog.Warn("Skipping malformed bar", "instrument", cfg.Instrument, "index", i, "error", err)
			continue
		}

		sig := strat.Evaluate(bar, acc.Position(cfg.Instrument))
		exec.OnBar(sig, bar)
		lastBar = &bar
	}

	if lastBar != nil {
		exec.CloseAll(*lastBar)
	}

	// replay tripwire: the ledger must reproduce the live balance exactly
	ledger.Verify(acc.Balance)

	result.FinalBalance = acc.Balance
	result.Status = Completed
	if exec.EverHalted() {
		result.Status = Halted
		result.Reason = "drawdown limit exceeded"
	}

	engineLog.Debug("Run finished", "strategy", cfg.StrategyID, "instrument", cfg.Instrument, "status", result.Status, "finalBalance", acc.Balance, "entries", ledger.Len())
	return result
}
