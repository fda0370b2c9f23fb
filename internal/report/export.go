package report

import (
	"io"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tradesim/tradesim/internal/orchestrator"
)

// Summary is the export envelope for one orchestrated session.
type Summary struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Runs        []RunSummary `json:"runs"`
}

// RunSummary is one task's exported view. Failed tasks carry no trades or
// statistics, only the failure reason.
type RunSummary struct {
	RunID      string `json:"runId"`
	Strategy   string `json:"strategy"`
	Instrument string `json:"instrument"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`

	InitialBalance float64     `json:"initialBalance,omitempty"`
	FinalBalance   float64     `json:"finalBalance,omitempty"`
	SkippedBars    int         `json:"skippedBars,omitempty"`
	Stats          *Statistics `json:"stats,omitempty"`
	Trades         []Trade     `json:"trades,omitempty"`
}

// Summarize flattens orchestrator results into export form, ordered by task
// key so repeated exports of the same session are byte-identical.
func Summarize(results map[string]orchestrator.Result, at time.Time) Summary {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	summary := Summary{GeneratedAt: at, Runs: make([]RunSummary, 0, len(keys))}
	for _, k := range keys {
		res := results[k]
		run := RunSummary{
			RunID:      res.RunID,
			Strategy:   string(res.Strategy),
			Instrument: res.Instrument,
			Status:     string(res.Status),
			Reason:     res.Reason,
		}
		if res.Run != nil {
			view := FromLedger(res.Run.Ledger)
			run.InitialBalance = res.Run.InitialBalance
			run.FinalBalance = res.Run.FinalBalance
			run.SkippedBars = res.Run.SkippedBars
			run.Stats = view.Calculate()
			run.Trades = view.Trades
		}
		summary.Runs = append(summary.Runs, run)
	}
	return summary
}

// WriteJSON streams the summary as indented JSON.
func (s Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
