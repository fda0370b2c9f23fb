package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradesim/tradesim/internal/account"
	"github.com/tradesim/tradesim/internal/types"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(hours int) time.Time { return t0.Add(time.Duration(hours) * time.Hour) }

func TestTradesFromLedger_RoundTrip(t *testing.T) {
	acc := account.NewAccount(10000)
	ledger := account.NewLedger(10000)

	acc.Apply(ledger, at(0), "EURUSD", types.BUY, 10, 100, 2, "ENTRY")
	acc.Apply(ledger, at(3), "EURUSD", types.SELL, -10, 110, 2, "TAKE_PROFIT")

	trades := TradesFromLedger(ledger)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, types.LONG, tr.Direction)
	assert.Equal(t, 100.0, tr.EntryPrice)
	assert.Equal(t, 110.0, tr.ExitPrice)
	assert.Equal(t, 10.0, tr.Size)
	assert.InDelta(t, 96.0, tr.PnL, 1e-9, "10x10 gain minus both commissions")
	assert.Equal(t, "TAKE_PROFIT", tr.Reason)
	assert.Equal(t, 3*time.Hour, tr.ExitTime.Sub(tr.EntryTime))
}

func TestTradesFromLedger_PartialClosesSplitCommission(t *testing.T) {
	acc := account.NewAccount(10000)
	ledger := account.NewLedger(10000)

	acc.Apply(ledger, at(0), "EURUSD", types.BUY, 10, 100, 4, "ENTRY")
	acc.Apply(ledger, at(1), "EURUSD", types.SELL, -4, 110, 1, "PARTIAL_CLOSE")
	acc.Apply(ledger, at(2), "EURUSD", types.SELL, -6, 90, 1, "STOP_LOSS")

	trades := TradesFromLedger(ledger)
	require.Len(t, trades, 2)

	assert.InDelta(t, 37.4, trades[0].PnL, 1e-9, "4x10 gain minus 40% of open commission minus close commission")
	assert.InDelta(t, -63.4, trades[1].PnL, 1e-9)
	assert.Equal(t, trades[0].EntryTime, trades[1].EntryTime, "both legs belong to the same lot")
}

func TestTradesFromLedger_ShortTrade(t *testing.T) {
	acc := account.NewAccount(10000)
	ledger := account.NewLedger(10000)

	acc.Apply(ledger, at(0), "EURUSD", types.SELL, -10, 100, 0, "ENTRY")
	acc.Apply(ledger, at(1), "EURUSD", types.BUY, 10, 90, 0, "TAKE_PROFIT")

	trades := TradesFromLedger(ledger)
	require.Len(t, trades, 1)
	assert.Equal(t, types.SHORT, trades[0].Direction)
	assert.InDelta(t, 100.0, trades[0].PnL, 1e-9)
}

func TestTradesFromLedger_ScaleInReAveragesEntry(t *testing.T) {
	acc := account.NewAccount(10000)
	ledger := account.NewLedger(10000)

	acc.Apply(ledger, at(0), "EURUSD", types.BUY, 10, 100, 0, "ENTRY")
	acc.Apply(ledger, at(1), "EURUSD", types.BUY, 10, 110, 0, "SCALE_IN")
	acc.Apply(ledger, at(2), "EURUSD", types.SELL, -20, 105, 0, "END_OF_RUN")

	trades := TradesFromLedger(ledger)
	require.Len(t, trades, 1)
	assert.InDelta(t, 105.0, trades[0].EntryPrice, 1e-9)
	assert.InDelta(t, 0.0, trades[0].PnL, 1e-9)
}

func TestCalculate(t *testing.T) {
	r := &Results{
		InitialBalance: 10000,
		FinalBalance:   10050,
		Trades: []Trade{
			{PnL: 100, EntryTime: at(0), ExitTime: at(2)},
			{PnL: -50, EntryTime: at(2), ExitTime: at(6)},
		},
	}

	stats := r.Calculate()

	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 50.0, stats.TotalPnL, 1e-9)
	assert.InDelta(t, 0.5, stats.TotalPnLPercent, 1e-9)
	assert.InDelta(t, 100.0, stats.GrossProfit, 1e-9)
	assert.InDelta(t, -50.0, stats.GrossLoss, 1e-9)
	assert.InDelta(t, 2.0, stats.ProfitFactor, 1e-9)
	assert.InDelta(t, 100.0, stats.AvgWin, 1e-9)
	assert.InDelta(t, -50.0, stats.AvgLoss, 1e-9)
	assert.InDelta(t, 25.0, stats.ExpectedValue, 1e-9)
	assert.InDelta(t, 50.0, stats.MaxDrawdown, 1e-9, "peak after the win, then the loss")
	assert.Equal(t, 3*time.Hour, stats.AvgTradeDuration)
	assert.Greater(t, stats.SharpeRatio, 0.0)

	assert.Same(t, stats, r.Calculate(), "statistics are computed once and cached")
}

func TestCalculate_NoTrades(t *testing.T) {
	r := &Results{InitialBalance: 10000, FinalBalance: 10000}
	stats := r.Calculate()
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Zero(t, stats.WinRate)
}

func TestPrintedViews(t *testing.T) {
	r := &Results{
		InitialBalance: 10000,
		FinalBalance:   10050,
		Trades: []Trade{
			{Instrument: "EURUSD", Direction: types.LONG, EntryTime: at(0), ExitTime: at(2), EntryPrice: 100, ExitPrice: 105, Size: 10, PnL: 50, Reason: "TAKE_PROFIT"},
		},
	}

	assert.NotPanics(t, func() {
		r.Calculate().Print()
		r.PrintTrades()
	})
}

func TestSharpe_DegenerateCases(t *testing.T) {
	assert.Zero(t, sharpe([]Trade{{PnL: 5}}), "a single trade has no dispersion")
	assert.Zero(t, sharpe([]Trade{{PnL: 5}, {PnL: 5}}), "zero variance")
}
