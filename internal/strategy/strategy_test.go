package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradesim/tradesim/internal/account"
	"github.com/tradesim/tradesim/internal/types"
)

func barsFromCloses(closes ...float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c, Low: c, Close: c, Volume: 1000,
		}
	}
	return bars
}

func lastSignal(s Strategy, bars []types.Bar) types.Signal {
	var sig types.Signal
	for _, bar := range bars {
		sig = s.Evaluate(bar, account.Position{})
	}
	return sig
}

func TestNew_ClosedSet(t *testing.T) {
	for _, id := range []ID{TrendFollowing, MeanReversion, Breakout, Momentum, Scalping, Cointegration} {
		s, err := New(id)
		require.NoError(t, err)
		assert.Equal(t, id, s.ID())
	}

	_, err := New("martingale")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestStrategies_HoldUntilWarm(t *testing.T) {
	for _, id := range []ID{TrendFollowing, MeanReversion, Breakout, Momentum, Scalping, Cointegration} {
		s, err := New(id)
		require.NoError(t, err)

		sig := s.Evaluate(barsFromCloses(100)[0], account.Position{})
		assert.Equal(t, types.HOLD, sig.Action, "%s must hold before indicators are ready", id)
		assert.Equal(t, string(id), sig.Strategy)
	}
}

func TestTrendFollowing_BuysConfirmedUptrend(t *testing.T) {
	s := NewTrendFollowing(3, 5)

	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107}
	sig := lastSignal(s, barsFromCloses(closes...))

	assert.Equal(t, types.BUY, sig.Action, "price above fast SMA above slow SMA")
}

func TestTrendFollowing_SellsConfirmedDowntrend(t *testing.T) {
	s := NewTrendFollowing(3, 5)

	closes := []float64{107, 106, 105, 104, 103, 102, 101, 100}
	sig := lastSignal(s, barsFromCloses(closes...))

	assert.Equal(t, types.SELL, sig.Action)
}

func TestMeanReversion_FadesSpike(t *testing.T) {
	s := NewMeanReversion(10, 5)

	closes := make([]float64, 0, 16)
	for i := 0; i < 15; i++ {
		closes = append(closes, 100+float64(i)*0.01)
	}
	closes = append(closes, 150) // spike: z-score blows out, RSI pinned high
	sig := lastSignal(s, barsFromCloses(closes...))

	assert.Equal(t, types.SELL, sig.Action)
}

func TestScalping_BuysCrossInsideRSIBand(t *testing.T) {
	s := NewScalping(2, 6, 3)

	// symmetric oscillation ending on an up leg: the fast EMA sits above the
	// slow one while Wilder RSI(3) settles near 61, inside the 30-70 band
	closes := []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101}
	sig := lastSignal(s, barsFromCloses(closes...))

	assert.Equal(t, types.BUY, sig.Action)
}

func TestScalping_HoldsWhenRSIPinned(t *testing.T) {
	s := NewScalping(2, 6, 3)

	// a one-way climb pins RSI at the top; the band filter vetoes the cross
	closes := []float64{100, 102, 104, 106, 108, 110, 112, 114}
	sig := lastSignal(s, barsFromCloses(closes...))

	assert.Equal(t, types.HOLD, sig.Action)
}

func TestCointegration_SignalsOnSpreadExtremes(t *testing.T) {
	s := NewCointegration("GBPUSD", 10)

	closes := make([]float64, 0, 13)
	for i := 0; i < 12; i++ {
		closes = append(closes, 1.0+float64(i%3)*0.001)
	}
	closes = append(closes, 1.5) // spread ratio stretched far above its mean
	sig := lastSignal(s, barsFromCloses(closes...))

	assert.Equal(t, types.SELL, sig.Action)
	assert.Equal(t, "GBPUSD", sig.Partner, "pairwise signal carries the partner id")
}

func TestIndicatorsReady(t *testing.T) {
	fast := NewSMA(2)
	slow := NewSMA(4)
	fast.Update(1)
	fast.Update(2)
	slow.Update(1)

	assert.False(t, IndicatorsReady(fast, slow))

	for _, v := range []float64{2, 3, 4} {
		slow.Update(v)
	}
	assert.True(t, IndicatorsReady(fast, slow))
}
