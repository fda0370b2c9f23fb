// Package orchestrator fans signal generation and execution out across
// (strategy, instrument) tasks under a bounded worker pool, each task owning
// a private Account and Ledger, and merges the finished results
// deterministically.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/tradesim/tradesim/internal/cost"
	"github.com/tradesim/tradesim/internal/engine"
	"github.com/tradesim/tradesim/internal/logging"
	"github.com/tradesim/tradesim/internal/risk"
	"github.com/tradesim/tradesim/internal/strategy"
	"github.com/tradesim/tradesim/internal/types"
)

var orchLog = logging.New("orchestrator")

const defaultMaxConcurrent = 5

// Config caps concurrency and exposure for one orchestrated run. The risk
// and cost snapshots are handed unchanged to every task.
type Config struct {
	MaxConcurrentStrategies int
	MaxExposurePerAsset     float64 // fraction of the initial balance
	InitialBalance          float64
	PipValue                float64
	Costs                   cost.Config
	Risk                    risk.Parameters
}

// Result is one task's outcome. Run is nil when the task failed before
// producing a ledger.
type Result struct {
	RunID      string
	Strategy   strategy.ID
	Instrument string
	Status     engine.Status
	Reason     string
	Run        *engine.RunResult
}

// PairSeries is the matched price history for a pairwise task.
type PairSeries struct {
	A       string
	B       string
	SeriesA []types.Bar
	SeriesB []types.Bar
}

type Orchestrator struct {
	cfg  Config
	gate *exposureGate

	// newStrategy is a seam for tests; production always builds from the
	// closed set.
	newStrategy func(id strategy.ID, partner string) (strategy.Strategy, error)
}

func New(cfg Config) *Orchestrator {
	if cfg.MaxConcurrentStrategies <= 0 {
		cfg.MaxConcurrentStrategies = defaultMaxConcurrent
	}
	return &Orchestrator{
		cfg:         cfg,
		gate:        newExposureGate(cfg.MaxExposurePerAsset * cfg.InitialBalance),
		newStrategy: buildStrategy,
	}
}

func buildStrategy(id strategy.ID, partner string) (strategy.Strategy, error) {
	if id == strategy.Cointegration {
		return strategy.NewCointegration(partner, 20), nil
	}
	return strategy.New(id)
}

func key(id strategy.ID, instrument string) string {
	return string(id) + ":" + instrument
}

// worstCaseExposure is the notional an entry could reach under the risk
// parameters: size * price = balance * riskPerTrade / stopLossBuffer.
func (o *Orchestrator) worstCaseExposure() float64 {
	riskAmount := o.cfg.InitialBalance * o.cfg.Risk.RiskPerTrade
	if o.cfg.Risk.StopLossBuffer > 0 {
		return riskAmount / o.cfg.Risk.StopLossBuffer
	}
	return riskAmount
}

type task struct {
	id         strategy.ID
	instrument string
	partner    string
	series     []types.Bar
}

// RunConcurrent schedules the selected strategies against one instrument's
// series. Each task is isolated: a fault in one marks only that task Failed.
func (o *Orchestrator) RunConcurrent(ctx context.Context, instrument string, series []types.Bar, ids []strategy.ID) map[string]Result {
	tasks := make([]task, 0, len(ids))
	for _, id := range ids {
		tasks = append(tasks, task{id: id, instrument: instrument, series: series})
	}
	return o.dispatch(ctx, tasks)
}

// RunAssets fans out across instruments and pairs under the same concurrency
// cap. Results are keyed strategy:instrument; no two tasks share a key.
func (o *Orchestrator) RunAssets(ctx context.Context, assets map[string][]types.Bar, conditions map[string]MarketCondition, pairs map[string]PairSeries) map[string]Result {
	var tasks []task

	symbols := make([]string, 0, len(assets))
	for symbol := range assets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		for _, id := range o.SelectStrategies(conditions[symbol], false) {
			tasks = append(tasks, task{id: id, instrument: symbol, series: assets[symbol]})
		}
	}

	pairNames := make([]string, 0, len(pairs))
	for name := range pairs {
		pairNames = append(pairNames, name)
	}
	sort.Strings(pairNames)
	for _, name := range pairNames {
		pair := pairs[name]
		spread := buildSpreadSeries(pair.SeriesA, pair.SeriesB)
		if len(spread) == 0 {
			orchLog.Warn("Pair has no overlapping bars, skipping", "pair", name)
			continue
		}
		tasks = append(tasks, task{id: strategy.Cointegration, instrument: name, partner: pair.B, series: spread})
	}

	return o.dispatch(ctx, tasks)
}

// dispatch runs tasks on the bounded pool. Admission holds a pool slot and
// an exposure reservation; queued tasks are discarded once the context is
// cancelled, in-flight ones finish their current bar inside engine.Run.
func (o *Orchestrator) dispatch(ctx context.Context, tasks []task) map[string]Result {
	results := make(map[string]Result, len(tasks))
	seen := make(map[string]bool, len(tasks))

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(o.cfg.MaxConcurrentStrategies)

	exposure := o.worstCaseExposure()
	for _, t := range tasks {
		t := t
		k := key(t.id, t.instrument)
		if seen[k] {
			orchLog.Warn("Duplicate task key, skipping", "key", k)
			continue
		}
		seen[k] = true

		p.Go(func() {
			if ctx.Err() != nil {
				orchLog.Info("Discarding undispatched task", "key", k)
				return
			}
			o.gate.acquire(exposure)
			defer o.gate.release(exposure)

			res := o.runTask(ctx, t)
			mu.Lock()
			results[k] = res
			mu.Unlock()
		})
	}
	p.Wait()

	return results
}

// runTask executes one isolated run. A panic anywhere inside — a faulty
// signal function, a corrupted-state tripwire — is converted into a Failed
// result without touching sibling tasks.
func (o *Orchestrator) runTask(ctx context.Context, t task) (res Result) {
	res = Result{
		RunID:      uuid.NewString(),
		Strategy:   t.id,
		Instrument: t.instrument,
	}
	defer func() {
		if r := recover(); r != nil {
			res.Status = engine.Failed
			res.Reason = fmt.Sprintf("task panic: %v", r)
			res.Run = nil
			orchLog.Warn("Task failed", "runID", res.RunID, "strategy", t.id, "instrument", t.instrument, "reason", res.Reason)
		}
	}()

	strat, err := o.newStrategy(t.id, t.partner)
	if err != nil {
		res.Status = engine.Failed
		res.Reason = err.Error()
		return res
	}

	cfg := engine.Config{
		Instrument: t.instrument,
		StrategyID: string(t.id),
		PipValue:   o.cfg.PipValue,
		Costs:      o.cfg.Costs,
		Risk:       o.cfg.Risk,
	}
	run := engine.Run(ctx, cfg, o.cfg.InitialBalance, strat, t.series)

	res.Status = run.Status
	res.Reason = run.Reason
	res.Run = run
	orchLog.Info("Task finished", "runID", res.RunID, "strategy", t.id, "instrument", t.instrument, "status", res.Status, "finalBalance", run.FinalBalance)
	return res
}

// buildSpreadSeries turns two matched series into a ratio series for
// pairwise strategies. Ratios keep prices positive, which the data contract
// and the cost model both require.
func buildSpreadSeries(a, b []types.Bar) []types.Bar {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	spread := make([]types.Bar, 0, n)
	for i := 0; i < n; i++ {
		if !a[i].Timestamp.Equal(b[i].Timestamp) {
			orchLog.Warn("Pair series misaligned, truncating", "index", i)
			break
		}
		if b[i].Open == 0 || b[i].Close == 0 {
			continue
		}
		ro := a[i].Open / b[i].Open
		rc := a[i].Close / b[i].Close
		bar := types.Bar{
			Timestamp: a[i].Timestamp,
			Open:      ro,
			High:      ro,
			Low:       rc,
			Close:     rc,
			Volume:    a[i].Volume,
		}
		if rc > ro {
			bar.High, bar.Low = rc, ro
		}
		spread = append(spread, bar)
	}
	return spread
}
