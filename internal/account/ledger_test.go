package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tradesim/tradesim/internal/types"
)

func TestLedger_ReplayReproducesBalance(t *testing.T) {
	acc := NewAccount(10000)
	ledger := NewLedger(10000)

	acc.Apply(ledger, t0, "EURUSD", types.BUY, 10, 1.2007, 0.12, "ENTRY")
	acc.Apply(ledger, t0.Add(time.Hour), "EURUSD", types.BUY, 5, 1.2107, 0.06, "SCALE_IN")
	acc.Apply(ledger, t0.Add(2*time.Hour), "EURUSD", types.SELL, -15, 1.2507, 0.18, "EXIT")
	acc.Apply(ledger, t0.Add(3*time.Hour), "GBPUSD", types.SELL, -8, 1.5, 0.1, "ENTRY")
	acc.Apply(ledger, t0.Add(4*time.Hour), "GBPUSD", types.BUY, 8, 1.4, 0.1, "EXIT")

	assert.Equal(t, acc.Balance, ledger.Replay(), "replay must reproduce the live balance exactly")
	assert.NotPanics(t, func() { ledger.Verify(acc.Balance) })
}

func TestLedger_VerifyPanicsOnDivergence(t *testing.T) {
	acc := NewAccount(10000)
	ledger := NewLedger(10000)
	acc.Apply(ledger, t0, "EURUSD", types.BUY, 10, 1.2, 0, "ENTRY")

	assert.Panics(t, func() { ledger.Verify(acc.Balance + 0.01) })
}

func TestLedger_RejectsOutOfOrderEntries(t *testing.T) {
	ledger := NewLedger(10000)

	ledger.Append(LedgerEntry{
		Timestamp: t0.Add(time.Hour), Instrument: "EURUSD", Action: types.BUY,
		FillPrice: 1.2, SizeDelta: 10, Balance: 10000 - 12,
	})

	assert.Panics(t, func() {
		ledger.Append(LedgerEntry{
			Timestamp: t0, Instrument: "EURUSD", Action: types.SELL,
			FillPrice: 1.2, SizeDelta: -10, Balance: 10000,
		})
	}, "per-instrument entries must be time-ordered")
}

func TestLedger_AllowsSameTimestampForFlip(t *testing.T) {
	ledger := NewLedger(10000)

	ledger.Append(LedgerEntry{
		Timestamp: t0, Instrument: "EURUSD", Action: types.SELL,
		FillPrice: 1.2, SizeDelta: -10, Balance: 10000 + 12,
	})

	assert.NotPanics(t, func() {
		ledger.Append(LedgerEntry{
			Timestamp: t0, Instrument: "EURUSD", Action: types.SELL,
			FillPrice: 1.2, SizeDelta: -5, Balance: 10000 + 12 + 6,
		})
	}, "close-then-open on one bar shares a timestamp")
}

func TestLedger_RejectsBrokenBalanceChain(t *testing.T) {
	ledger := NewLedger(10000)

	assert.Panics(t, func() {
		ledger.Append(LedgerEntry{
			Timestamp: t0, Instrument: "EURUSD", Action: types.BUY,
			FillPrice: 1.2, SizeDelta: 10, Balance: 9000, // wrong
		})
	})
}
