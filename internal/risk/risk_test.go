package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tradesim/tradesim/internal/types"
)

func testParams() Parameters {
	return Parameters{
		Leverage:          30,
		MaxDrawdown:       0.20,
		RiskPerTrade:      0.01,
		DefaultLotSize:    1.0,
		LotIncrement:      0.01,
		MaxOpenTrades:     5,
		MinSpread:         0.0001,
		MaxSpread:         0.0050,
		StopLossBuffer:    0.005,
		TakeProfitBuffer:  0.01,
		TrailingBuffer:    0.01,
		ScaleInThreshold:  0.005,
		ScaleOutThreshold: 0.01,
		ScaleStep:         0.1,
		MaxPosition:       10,
	}
}

func TestPositionSize(t *testing.T) {
	m := NewManager(testParams())

	size, err := m.PositionSize(10000, 10, 1)

	assert.NoError(t, err)
	assert.Equal(t, 10.0, size, "10000 * 0.01 / (10 * 1) = 10")
}

func TestPositionSize_FlooredToLotIncrement(t *testing.T) {
	p := testParams()
	p.LotIncrement = 0.1
	m := NewManager(p)

	size, err := m.PositionSize(10000, 7, 1)

	assert.NoError(t, err)
	assert.InDelta(t, 14.2, size, 1e-9, "100/7 = 14.2857... floors to 14.2")
}

func TestPositionSize_ZeroStopDistanceFails(t *testing.T) {
	m := NewManager(testParams())

	_, err := m.PositionSize(10000, 0, 1)

	assert.ErrorIs(t, err, ErrSizing)
}

func TestPositionSize_NegativeStopDistanceFails(t *testing.T) {
	m := NewManager(testParams())

	_, err := m.PositionSize(10000, -5, 1)

	assert.ErrorIs(t, err, ErrSizing)
}

func TestStopLossAndTakeProfit(t *testing.T) {
	m := NewManager(testParams())

	assert.InDelta(t, 99.5, m.StopLoss(100, types.LONG), 1e-9)
	assert.InDelta(t, 100.5, m.StopLoss(100, types.SHORT), 1e-9)
	assert.InDelta(t, 101.0, m.TakeProfit(100, types.LONG), 1e-9)
	assert.InDelta(t, 99.0, m.TakeProfit(100, types.SHORT), 1e-9)
}

func TestValidateTrade(t *testing.T) {
	m := NewManager(testParams())

	assert.NoError(t, m.ValidateTrade(0.0010, 0))
	assert.ErrorIs(t, m.ValidateTrade(0.0060, 0), ErrTradeRejected, "spread above maximum")
	assert.ErrorIs(t, m.ValidateTrade(0.00005, 0), ErrTradeRejected, "spread below minimum")
	assert.ErrorIs(t, m.ValidateTrade(0.0010, 5), ErrTradeRejected, "open trade count at limit")
}

func TestDrawdownExceeded(t *testing.T) {
	m := NewManager(testParams())

	assert.False(t, m.DrawdownExceeded(10000, 9000), "10% drawdown within 20% limit")
	assert.False(t, m.DrawdownExceeded(10000, 8000), "exactly at the limit does not halt")
	assert.True(t, m.DrawdownExceeded(10000, 7500), "25% drawdown halts")
	assert.False(t, m.DrawdownExceeded(0, 1000), "no high-water mark yet")
}
