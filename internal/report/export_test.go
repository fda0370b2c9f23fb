package report

import (
	"bytes"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradesim/tradesim/internal/account"
	"github.com/tradesim/tradesim/internal/engine"
	"github.com/tradesim/tradesim/internal/orchestrator"
	"github.com/tradesim/tradesim/internal/strategy"
	"github.com/tradesim/tradesim/internal/types"
)

func completedResult(t *testing.T) orchestrator.Result {
	t.Helper()
	acc := account.NewAccount(10000)
	ledger := account.NewLedger(10000)
	acc.Apply(ledger, at(0), "EURUSD", types.BUY, 10, 100, 0, "ENTRY")
	acc.Apply(ledger, at(1), "EURUSD", types.SELL, -10, 110, 0, "END_OF_RUN")

	return orchestrator.Result{
		RunID:      "run-1",
		Strategy:   strategy.TrendFollowing,
		Instrument: "EURUSD",
		Status:     engine.Completed,
		Run: &engine.RunResult{
			Strategy:       string(strategy.TrendFollowing),
			Instrument:     "EURUSD",
			Status:         engine.Completed,
			InitialBalance: 10000,
			FinalBalance:   acc.Balance,
			Ledger:         ledger,
		},
	}
}

func TestSummarize(t *testing.T) {
	results := map[string]orchestrator.Result{
		"trend_following:EURUSD": completedResult(t),
		"momentum:GBPUSD": {
			RunID:      "run-2",
			Strategy:   strategy.Momentum,
			Instrument: "GBPUSD",
			Status:     engine.Failed,
			Reason:     "task panic: signal function exploded",
		},
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	summary := Summarize(results, now)

	require.Len(t, summary.Runs, 2)
	assert.Equal(t, now, summary.GeneratedAt)

	// keys sort momentum before trend_following
	failed, completed := summary.Runs[0], summary.Runs[1]

	assert.Equal(t, "FAILED", failed.Status)
	assert.Nil(t, failed.Stats)
	assert.Empty(t, failed.Trades)
	assert.NotEmpty(t, failed.Reason)

	assert.Equal(t, "COMPLETED", completed.Status)
	require.NotNil(t, completed.Stats)
	assert.Equal(t, 1, completed.Stats.TotalTrades)
	assert.Len(t, completed.Trades, 1)
	assert.InDelta(t, 10100.0, completed.FinalBalance, 1e-9)
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	results := map[string]orchestrator.Result{
		"trend_following:EURUSD": completedResult(t),
	}
	summary := Summarize(results, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, summary.WriteJSON(&buf))

	var decoded Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Runs, 1)
	assert.Equal(t, "run-1", decoded.Runs[0].RunID)
	assert.Equal(t, "trend_following", decoded.Runs[0].Strategy)
}

func TestWriteJSON_StableAcrossExports(t *testing.T) {
	results := map[string]orchestrator.Result{
		"trend_following:EURUSD": completedResult(t),
		"momentum:GBPUSD":        {RunID: "run-2", Strategy: strategy.Momentum, Instrument: "GBPUSD", Status: engine.Failed, Reason: "x"},
	}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var a, b bytes.Buffer
	require.NoError(t, Summarize(results, now).WriteJSON(&a))
	require.NoError(t, Summarize(results, now).WriteJSON(&b))
	assert.Equal(t, a.String(), b.String(), "map iteration must not leak into the export")
}
