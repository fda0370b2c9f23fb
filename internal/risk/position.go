package risk

import (
	"fmt"
	"math"

	"github.com/tradesim/tradesim/internal/types"
)

// ScaleIn grows an open position by ScaleStep * MaxPosition when price has
// moved favorably past the scale-in threshold since entry. The returned size
// is the unsigned magnitude, clamped to MaxPosition. An unchanged size means
// the conditions were not met.
func (m *Manager) ScaleIn(dir types.Direction, currentPrice, entryPrice, currentSize float64) float64 {
	if currentSize >= m.params.MaxPosition {
		return currentSize
	}

	favorable := false
	switch dir {
	case types.LONG:
		favorable = currentPrice > entryPrice*(1+m.params.ScaleInThreshold)
	case types.SHORT:
		favorable = currentPrice < entryPrice*(1-m.params.ScaleInThreshold)
	}
	if !favorable {
		return currentSize
	}

	step := m.params.ScaleStep * m.params.MaxPosition
	add := math.Min(step, m.params.MaxPosition-currentSize)
	riskLog.Debug("Scaling in", "dir", dir, "add", add, "currentSize", currentSize, "price", currentPrice)
	return currentSize + add
}

// ScaleOut shrinks an open position by ScaleStep * MaxPosition when price has
// moved adversely past the scale-out threshold since entry. The size never
// goes below zero, so the position can never flip sign here.
func (m *Manager) ScaleOut(dir types.Direction, currentPrice, entryPrice, currentSize float64) float64 {
	if currentSize <= 0 {
		return currentSize
	}

	adverse := false
	switch dir {
	case types.LONG:
		adverse = currentPrice < entryPrice*(1-m.params.ScaleOutThreshold)
	case types.SHORT:
		adverse = currentPrice > entryPrice*(1+m.params.ScaleOutThreshold)
	}
	if !adverse {
		return currentSize
	}

	step := m.params.ScaleStep * m.params.MaxPosition
	sub := math.Min(step, currentSize)
	riskLog.Debug("Scaling out", "dir", dir, "sub", sub, "currentSize", currentSize, "price", currentPrice)
	return currentSize - sub
}

// TrailingStop ratchets a protective stop in the favorable direction only: a
// long stop can only move up, a short stop only down. The monotonicity is
// guaranteed by construction; callers that observe a backward move must treat
// it as state corruption.
func (m *Manager) TrailingStop(dir types.Direction, currentPrice, currentStop float64) float64 {
	switch dir {
	case types.LONG:
		candidate := currentPrice * (1 - m.params.TrailingBuffer)
		if candidate > currentStop {
			riskLog.Debug("Trailing stop raised", "from", currentStop, "to", candidate)
			return candidate
		}
	case types.SHORT:
		candidate := currentPrice * (1 + m.params.TrailingBuffer)
		if candidate < currentStop {
			riskLog.Debug("Trailing stop lowered", "from", currentStop, "to", candidate)
			return candidate
		}
	}
	return currentStop
}

// TierHit reports whether the unrealized gain on a position has crossed the
// given profit tier. Gain is measured from average entry in the favorable
// direction.
func (m *Manager) TierHit(dir types.Direction, currentPrice, entryPrice float64, tier ProfitTier) bool {
	if entryPrice <= 0 {
		return false
	}
	switch dir {
	case types.LONG:
		return currentPrice >= entryPrice*(1+tier.Level)
	case types.SHORT:
		return currentPrice <= entryPrice*(1-tier.Level)
	}
	return false
}

// AssertRatchet panics when a trailing stop has moved against its ratchet
// direction. This is a programming error, not a market condition, and aborts
// the owning run.
func AssertRatchet(dir types.Direction, oldStop, newStop float64) {
	if dir == types.LONG && newStop < oldStop {
		panic(fmt.Sprintf("trailing stop ratchet violated: long stop moved %.5f -> %.5f", oldStop, newStop))
	}
	if dir == types.SHORT && newStop > oldStop {
		panic(fmt.Sprintf("trailing stop ratchet violated: short stop moved %.5f -> %.5f", oldStop, newStop))
	}
}
