// Package account owns the mutable run state: realized balance, open
// positions keyed by instrument, and the append-only ledger that records
// every mutation. One Account per run, owned exclusively by that run's
// execution state machine.
package account

import (
	"fmt"
	"time"

	"github.com/tradesim/tradesim/internal/logging"
	"github.com/tradesim/tradesim/internal/types"
)

var acctLog = logging.New("account")

// Position is the net exposure in one instrument. Size is signed: positive
// long, negative short. Created on the first non-flat fill and removed when
// size returns to zero.
type Position struct {
	Instrument string
	Size       float64
	AvgEntry   float64
	OpenTime   time.Time
}

func (p Position) Direction() types.Direction {
	switch {
	case p.Size > 0:
		return types.LONG
	case p.Size < 0:
		return types.SHORT
	default:
		return types.FLAT
	}
}

// Unrealized returns the mark-to-market P&L of the position at the given
// price. Derived, never stored.
func (p Position) Unrealized(price float64) float64 {
	return (price - p.AvgEntry) * p.Size
}

type Account struct {
	Balance   float64
	HighWater float64

	positions map[string]*Position
}

func NewAccount(initialBalance float64) *Account {
	return &Account{
		Balance:   initialBalance,
		HighWater: initialBalance,
		positions: make(map[string]*Position),
	}
}

// Position returns a copy of the open position for the instrument, or a
// zero-size position when flat.
func (a *Account) Position(instrument string) Position {
	if p, ok := a.positions[instrument]; ok {
		return *p
	}
	return Position{Instrument: instrument}
}

func (a *Account) OpenPositionCount() int {
	return len(a.positions)
}

// Equity is the account's net liquidation value: cash balance plus the
// carrying value of every open position at the given marks. Apply debits the
// full entry notional from cash, so the position's value must be added back
// at the mark, not just its P&L against entry. Instruments without a mark
// are valued at their entry.
func (a *Account) Equity(marks map[string]float64) float64 {
	equity := a.Balance
	for instrument, pos := range a.positions {
		price, ok := marks[instrument]
		if !ok {
			price = pos.AvgEntry
		}
		equity += pos.Size * price
	}
	return equity
}

// ObserveEquity advances the drawdown high-water mark. The mark never
// decreases.
func (a *Account) ObserveEquity(equity float64) {
	if equity > a.HighWater {
		a.HighWater = equity
	}
}

// Apply executes a fill against the account and appends the matching ledger
// entry in one step. A balance mutation without a ledger entry must never be
// observable, so this is the only mutation path.
//
// Cash accounting: buying spends sizeDelta*fillPrice, selling (negative
// delta) receives it, commission is always deducted. A fill may grow, reduce
// or close a position but never flip its sign; flips are two fills.
func (a *Account) Apply(l *Ledger, ts time.Time, instrument string, action types.Action, sizeDelta, fillPrice, commission float64, reason string) LedgerEntry {
	if sizeDelta == 0 {
		panic("account: zero-size fill")
	}

	a.Balance = a.Balance - sizeDelta*fillPrice - commission

	pos, ok := a.positions[instrument]
	if !ok {
		pos = &Position{Instrument: instrument, OpenTime: ts}
		a.positions[instrument] = pos
	}

	oldSize := pos.Size
	newSize := oldSize + sizeDelta
	if oldSize != 0 && oldSize*newSize < 0 {
		panic(fmt.Sprintf("account: fill would flip position sign in %s (%.4f -> %.4f)", instrument, oldSize, newSize))
	}

	if oldSize == 0 || (oldSize > 0) == (sizeDelta > 0) {
		// opening or growing: average in the new fill
		pos.AvgEntry = (pos.AvgEntry*abs(oldSize) + fillPrice*abs(sizeDelta)) / abs(newSize)
	}
	pos.Size = newSize
	snapshot := *pos
	if newSize == 0 {
		delete(a.positions, instrument)
	}

	entry := LedgerEntry{
		Timestamp:  ts,
		Instrument: instrument,
		Action:     action,
		FillPrice:  fillPrice,
		SizeDelta:  sizeDelta,
		Commission: commission,
		Balance:    a.Balance,
		Position:   snapshot,
		Reason:     reason,
	}
	l.Append(entry)

	acctLog.Debug("Applied fill", "instrument", instrument, "action", action, "sizeDelta", sizeDelta, "fillPrice", fillPrice, "commission", commission, "balance", a.Balance, "reason", reason)
	return entry
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
