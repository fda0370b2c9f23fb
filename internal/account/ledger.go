package account

import (
	"fmt"
	"time"

	"github.com/tradesim/tradesim/internal/types"
)

// LedgerEntry is one executed trade mutation. Entries are never mutated or
// removed; the ledger is the single source of truth for downstream metrics.
type LedgerEntry struct {
	Timestamp  time.Time
	Instrument string
	Action     types.Action
	FillPrice  float64
	SizeDelta  float64
	Commission float64
	Balance    float64 // balance after this fill
	Position   Position
	Reason     string
}

// Ledger is the append-only, time-ordered record of all fills for a run.
// Replaying the entries from the initial balance must reproduce the live
// account balance exactly; divergence means state corruption and is fatal.
type Ledger struct {
	initialBalance float64
	entries        []LedgerEntry

	lastPerInstrument map[string]time.Time
	runningBalance    float64
}

func NewLedger(initialBalance float64) *Ledger {
	return &Ledger{
		initialBalance:    initialBalance,
		lastPerInstrument: make(map[string]time.Time),
		runningBalance:    initialBalance,
	}
}

// Append records an entry, enforcing per-instrument time ordering and the
// balance chain. A flip produces two entries at the same timestamp, so
// ordering is non-decreasing.
func (l *Ledger) Append(e LedgerEntry) {
	if last, ok := l.lastPerInstrument[e.Instrument]; ok && e.Timestamp.Before(last) {
		panic(fmt.Sprintf("ledger: out-of-order entry for %s: %s before %s",
			e.Instrument, e.Timestamp.Format(time.RFC3339), last.Format(time.RFC3339)))
	}

	expected := l.runningBalance - e.SizeDelta*e.FillPrice - e.Commission
	if e.Balance != expected {
		panic(fmt.Sprintf("ledger: balance diverged for %s: entry %.10f, replay %.10f",
			e.Instrument, e.Balance, expected))
	}

	l.lastPerInstrument[e.Instrument] = e.Timestamp
	l.runningBalance = e.Balance
	l.entries = append(l.entries, e)
}

// Entries returns the recorded entries. Callers must not mutate them.
func (l *Ledger) Entries() []LedgerEntry {
	return l.entries
}

func (l *Ledger) Len() int {
	return len(l.entries)
}

func (l *Ledger) InitialBalance() float64 {
	return l.initialBalance
}

// Replay recomputes the final balance from the initial balance and every
// entry's signed notional minus commission.
func (l *Ledger) Replay() float64 {
	balance := l.initialBalance
	for _, e := range l.entries {
		balance = balance - e.SizeDelta*e.FillPrice - e.Commission
	}
	return balance
}

// Verify panics when the replayed balance does not reproduce the live
// balance exactly. Called at run boundaries as a state-corruption tripwire.
func (l *Ledger) Verify(liveBalance float64) {
	if replayed := l.Replay(); replayed != liveBalance {
		panic(fmt.Sprintf("ledger: replay %.10f does not match live balance %.10f", replayed, liveBalance))
	}
}
