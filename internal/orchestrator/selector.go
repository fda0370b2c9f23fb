package orchestrator

import (
	"github.com/tradesim/tradesim/internal/strategy"
)

// MarketCondition classifies the prevailing regime for an instrument. The
// classification itself is produced upstream; the orchestrator only maps it
// to applicable strategies.
type MarketCondition string

const (
	Trend      MarketCondition = "trend"
	Range      MarketCondition = "range"
	Volatility MarketCondition = "volatility"
)

// conditionTable is the deterministic rule table mapping a market condition
// to applicable strategies. Slice order is declared priority; ties never
// depend on map iteration.
var conditionTable = map[MarketCondition][]strategy.ID{
	Trend:      {strategy.TrendFollowing, strategy.Scalping},
	Range:      {strategy.MeanReversion, strategy.Scalping},
	Volatility: {strategy.Breakout, strategy.Momentum},
}

// SelectStrategies resolves the strategies applicable to a market condition.
// Pairwise series always map to the cointegration strategy. An unrecognized
// condition falls back to trend, matching the most conservative default.
func (o *Orchestrator) SelectStrategies(condition MarketCondition, pairwise bool) []strategy.ID {
	if pairwise {
		return []strategy.ID{strategy.Cointegration}
	}

	ids, ok := conditionTable[condition]
	if !ok {
		orchLog.Warn("Unrecognized market condition, defaulting to trend", "condition", condition)
		ids = conditionTable[Trend]
	}

	out := make([]strategy.ID, len(ids))
	copy(out, ids)
	return out
}
