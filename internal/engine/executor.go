// Package engine turns directional signals into filled positions under the
// cost model and risk manager, one isolated run per (strategy, instrument).
package engine

import (
	"math"

	"github.com/tradesim/tradesim/internal/account"
	"github.com/tradesim/tradesim/internal/cost"
	"github.com/tradesim/tradesim/internal/logging"
	"github.com/tradesim/tradesim/internal/risk"
	"github.com/tradesim/tradesim/internal/types"
)

var engineLog = logging.New("engine")

// State tracks where the executor sits in its per-run lifecycle. States are
// observational: every transition is driven by a signal or a price condition.
type State int

const (
	Flat State = iota
	Entering
	Holding
	ScalingIn
	ScalingOut
	TrailingAdjust
	PartialClose
	Exiting
)

func (s State) String() string {
	switch s {
	case Flat:
		return "FLAT"
	case Entering:
		return "ENTERING"
	case Holding:
		return "HOLDING"
	case ScalingIn:
		return "SCALING_IN"
	case ScalingOut:
		return "SCALING_OUT"
	case TrailingAdjust:
		return "TRAILING_ADJUST"
	case PartialClose:
		return "PARTIAL_CLOSE"
	case Exiting:
		return "EXITING"
	default:
		return "UNKNOWN"
	}
}

// Config is the immutable per-run setup.
type Config struct {
	Instrument string
	StrategyID string
	PipValue   float64
	Costs      cost.Config
	Risk       risk.Parameters
}

// Executor is the execution state machine for one (strategy, instrument)
// run. It owns the run's Account and Ledger exclusively; no other goroutine
// may touch them.
type Executor struct {
	cfg    Config
	risk   *risk.Manager
	acc    *account.Account
	ledger *account.Ledger

	state      State
	halted     bool
	everHalted bool

	// protective levels for the currently open position
	stop       float64
	target     float64
	firedTiers []bool
}

func NewExecutor(cfg Config, acc *account.Account, ledger *account.Ledger) *Executor {
	if cfg.PipValue == 0 {
		cfg.PipValue = 1
	}
	return &Executor{
		cfg:    cfg,
		risk:   risk.NewManager(cfg.Risk),
		acc:    acc,
		ledger: ledger,
		state:  Flat,
	}
}

func (e *Executor) State() State { return e.state }

// EverHalted reports whether the drawdown halt engaged at any point in the
// run, even if equity later recovered.
func (e *Executor) EverHalted() bool { return e.everHalted }

// OnBar advances the state machine by one bar: protective levels and
// price-driven resizing are evaluated first, then the signal. All account
// mutations go through account.Apply, so balance and ledger move together.
func (e *Executor) OnBar(sig types.Signal, bar types.Bar) {
	equity := e.acc.Equity(map[string]float64{e.cfg.Instrument: bar.Close})
	e.acc.ObserveEquity(equity)
	wasHalted := e.halted
	e.halted = e.risk.DrawdownExceeded(e.acc.HighWater, equity)
	if e.halted {
		e.everHalted = true
		if !wasHalted {
			engineLog.Warn("Drawdown halt engaged, entries suspended", "instrument", e.cfg.Instrument, "strategy", e.cfg.StrategyID, "equity", equity, "highWater", e.acc.HighWater)
		}
	} else if wasHalted {
		engineLog.Info("Drawdown recovered, entries resumed", "instrument", e.cfg.Instrument, "strategy", e.cfg.StrategyID)
	}

	e.manage(bar)
	e.handleSignal(sig, bar)
}

// manage re-evaluates the open position against the current bar: stop and
// target hits, trailing-stop ratchet, profit-locking tiers and scaling.
func (e *Executor) manage(bar types.Bar) {
	pos := e.acc.Position(e.cfg.Instrument)
	if pos.Size == 0 {
		e.transition(Flat)
		return
	}
	dir := pos.Direction()

	// protective exits use intrabar extremes, the way a resting order fills
	if dir == types.LONG {
		if bar.Low <= e.stop {
			e.exit(bar, e.stop, "STOP_LOSS")
			return
		}
		if bar.High >= e.target {
			e.exit(bar, e.target, "TAKE_PROFIT")
			return
		}
	} else {
		if bar.High >= e.stop {
			e.exit(bar, e.stop, "STOP_LOSS")
			return
		}
		if bar.Low <= e.target {
			e.exit(bar, e.target, "TAKE_PROFIT")
			return
		}
	}

	if next := e.risk.TrailingStop(dir, bar.Close, e.stop); next != e.stop {
		risk.AssertRatchet(dir, e.stop, next)
		e.stop = next
		e.transition(TrailingAdjust)
	}

	e.lockProfits(bar, dir)
	e.rescale(bar, dir)

	if e.acc.Position(e.cfg.Instrument).Size != 0 {
		e.transition(Holding)
	}
}

// lockProfits closes a fixed fraction of the position at each profit tier.
// A tier fires at most once per open position.
func (e *Executor) lockProfits(bar types.Bar, dir types.Direction) {
	for i, tier := range e.risk.Params().ProfitTiers {
		pos := e.acc.Position(e.cfg.Instrument)
		if pos.Size == 0 {
			return
		}
		if e.firedTiers[i] || !e.risk.TierHit(dir, bar.Close, pos.AvgEntry, tier) {
			continue
		}

		closeSize := math.Abs(pos.Size) * tier.Fraction
		delta := -closeSize
		if dir == types.SHORT {
			delta = closeSize
		}
		action := dir.Opposite()
		fill, err := e.cfg.Costs.Apply(action, bar.Close, closeSize)
		if err != nil {
			engineLog.Warn("Profit lock rejected by cost model", "error", err)
			return
		}
		e.transition(PartialClose)
		e.acc.Apply(e.ledger, bar.Timestamp, e.cfg.Instrument, action, delta, fill.Price, fill.Commission, "PARTIAL_CLOSE")
		e.firedTiers[i] = true
		engineLog.Info("Locked profit", "instrument", e.cfg.Instrument, "tier", tier.Level, "closed", closeSize, "price", fill.Price)
	}
}

// rescale grows the position on a favorable move or shrinks it on an adverse
// one. Growing is an entry-type mutation and respects the drawdown halt.
func (e *Executor) rescale(bar types.Bar, dir types.Direction) {
	pos := e.acc.Position(e.cfg.Instrument)
	if pos.Size == 0 {
		return
	}
	size := math.Abs(pos.Size)

	if !e.halted {
		if grown := e.risk.ScaleIn(dir, bar.Close, pos.AvgEntry, size); grown > size {
			add := grown - size
			action := types.BUY
			delta := add
			if dir == types.SHORT {
				action = types.SELL
				delta = -add
			}
			fill, err := e.cfg.Costs.Apply(action, bar.Close, add)
			if err != nil {
				engineLog.Warn("Scale-in rejected by cost model", "error", err)
				return
			}
			e.transition(ScalingIn)
			e.acc.Apply(e.ledger, bar.Timestamp, e.cfg.Instrument, action, delta, fill.Price, fill.Commission, "SCALE_IN")
			return
		}
	}

	if shrunk := e.risk.ScaleOut(dir, bar.Close, pos.AvgEntry, size); shrunk < size {
		sub := size - shrunk
		action := dir.Opposite()
		delta := -sub
		if dir == types.SHORT {
			delta = sub
		}
		fill, err := e.cfg.Costs.Apply(action, bar.Close, sub)
		if err != nil {
			engineLog.Warn("Scale-out rejected by cost model", "error", err)
			return
		}
		e.transition(ScalingOut)
		e.acc.Apply(e.ledger, bar.Timestamp, e.cfg.Instrument, action, delta, fill.Price, fill.Commission, "SCALE_OUT")
	}
}

// handleSignal applies the bar's directional decision. A signal against an
// open position closes it fully before evaluating the opposite entry on the
// same bar: two ledger entries, same timestamp, close then open.
func (e *Executor) handleSignal(sig types.Signal, bar types.Bar) {
	if sig.Action == types.HOLD {
		return
	}

	desired := types.LONG
	if sig.Action == types.SELL {
		desired = types.SHORT
	}

	pos := e.acc.Position(e.cfg.Instrument)
	if pos.Size != 0 {
		if pos.Direction() == desired {
			return // already positioned; resizing is price-driven
		}
		e.exit(bar, bar.Close, "FLIP_CLOSE")
	}
	e.enter(sig.Action, desired, bar)
}

func (e *Executor) enter(action types.Action, dir types.Direction, bar types.Bar) {
	if e.halted {
		engineLog.Info("Entry suppressed by drawdown halt", "instrument", e.cfg.Instrument, "strategy", e.cfg.StrategyID, "action", action)
		return
	}
	if err := e.risk.ValidateTrade(e.cfg.Costs.Spread, e.acc.OpenPositionCount()); err != nil {
		engineLog.Info("Entry rejected", "instrument", e.cfg.Instrument, "error", err)
		return
	}

	e.transition(Entering)

	quote, err := e.cfg.Costs.Apply(action, bar.Close, 0)
	if err != nil {
		engineLog.Warn("Entry rejected by cost model", "instrument", e.cfg.Instrument, "error", err)
		e.transition(Flat)
		return
	}

	stop := e.risk.StopLoss(quote.Price, dir)
	size, err := e.risk.PositionSize(e.acc.Balance, math.Abs(quote.Price-stop), e.cfg.PipValue)
	if err != nil {
		engineLog.Warn("Entry rejected by sizing", "instrument", e.cfg.Instrument, "error", err)
		e.transition(Flat)
		return
	}
	if size <= 0 {
		engineLog.Info("Entry sized to zero, skipping", "instrument", e.cfg.Instrument)
		e.transition(Flat)
		return
	}

	fill, err := e.cfg.Costs.Apply(action, bar.Close, size)
	if err != nil {
		e.transition(Flat)
		return
	}
	delta := size
	if dir == types.SHORT {
		delta = -size
	}
	e.acc.Apply(e.ledger, bar.Timestamp, e.cfg.Instrument, action, delta, fill.Price, fill.Commission, "ENTRY")

	e.stop = stop
	e.target = e.risk.TakeProfit(fill.Price, dir)
	e.firedTiers = make([]bool, len(e.risk.Params().ProfitTiers))
	e.transition(Holding)
	engineLog.Info("Opened position", "instrument", e.cfg.Instrument, "strategy", e.cfg.StrategyID, "dir", dir, "size", size, "fill", fill.Price, "stop", e.stop, "target", e.target)
}

// exit closes the full position at the given raw price. Exits are always
// permitted, drawdown halt or not.
func (e *Executor) exit(bar types.Bar, rawPrice float64, reason string) {
	pos := e.acc.Position(e.cfg.Instrument)
	if pos.Size == 0 {
		return
	}

	action := pos.Direction().Opposite()
	fill, err := e.cfg.Costs.Apply(action, rawPrice, pos.Size)
	if err != nil {
		engineLog.Warn("Exit rejected by cost model", "instrument", e.cfg.Instrument, "error", err)
		return
	}

	e.transition(Exiting)
	e.acc.Apply(e.ledger, bar.Timestamp, e.cfg.Instrument, action, -pos.Size, fill.Price, fill.Commission, reason)
	e.stop, e.target = 0, 0
	e.firedTiers = nil
	e.transition(Flat)
	engineLog.Info("Closed position", "instrument", e.cfg.Instrument, "strategy", e.cfg.StrategyID, "fill", fill.Price, "reason", reason)
}

// CloseAll flattens any remaining exposure at the last bar's close.
func (e *Executor) CloseAll(lastBar types.Bar) {
	e.exit(lastBar, lastBar.Close, "END_OF_RUN")
}

func (e *Executor) transition(next State) {
	if e.state == next {
		return
	}
	engineLog.Debug("State transition", "instrument", e.cfg.Instrument, "strategy", e.cfg.StrategyID, "from", e.state, "to", next)
	e.state = next
}
