// Package risk gatekeeps every state mutation touching the account: it sizes
// entries, places protective levels, validates admissibility and enforces the
// drawdown limit.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/tradesim/tradesim/internal/logging"
	"github.com/tradesim/tradesim/internal/types"
)

var riskLog = logging.New("risk")

var (
	// ErrSizing marks a non-positive stop distance or pip value. The entry
	// signal is rejected, the run continues.
	ErrSizing = errors.New("risk sizing error")
	// ErrTradeRejected marks a trade that failed admissibility validation.
	ErrTradeRejected = errors.New("trade rejected")
)

// ProfitTier is one profit-locking level: when unrealized gain crosses
// Level (a fraction of entry price), Fraction of the position is closed.
// Each tier fires at most once per open position.
type ProfitTier struct {
	Level    float64 `yaml:"level"`
	Fraction float64 `yaml:"fraction"`
}

// Parameters is the immutable risk configuration for the duration of a run.
type Parameters struct {
	Leverage          float64      `yaml:"leverage"`
	MaxDrawdown       float64      `yaml:"max_drawdown"`
	RiskPerTrade      float64      `yaml:"risk_per_trade"`
	DefaultLotSize    float64      `yaml:"default_lot_size"`
	LotIncrement      float64      `yaml:"lot_increment"`
	MaxOpenTrades     int          `yaml:"max_open_trades"`
	MinSpread         float64      `yaml:"min_spread"`
	MaxSpread         float64      `yaml:"max_spread"`
	StopLossBuffer    float64      `yaml:"stop_loss_buffer"`
	TakeProfitBuffer  float64      `yaml:"take_profit_buffer"`
	TrailingBuffer    float64      `yaml:"trailing_buffer"`
	ScaleInThreshold  float64      `yaml:"scale_in_threshold"`
	ScaleOutThreshold float64      `yaml:"scale_out_threshold"`
	ScaleStep         float64      `yaml:"scale_step"`
	MaxPosition       float64      `yaml:"max_position"`
	ProfitTiers       []ProfitTier `yaml:"profit_tiers"`
}

// DefaultProfitTiers locks 25% at the first level and 10% at each further
// level, matching the documented defaults.
func DefaultProfitTiers() []ProfitTier {
	return []ProfitTier{
		{Level: 0.02, Fraction: 0.25},
		{Level: 0.05, Fraction: 0.10},
		{Level: 0.10, Fraction: 0.10},
	}
}

type Manager struct {
	params Parameters
}

func NewManager(params Parameters) *Manager {
	if len(params.ProfitTiers) == 0 {
		params.ProfitTiers = DefaultProfitTiers()
	}
	return &Manager{params: params}
}

func (m *Manager) Params() Parameters {
	return m.params
}

// PositionSize sizes an entry from account risk: size = (balance *
// riskPerTrade) / (stopDistance * pipValue), floored to the broker's lot
// increment.
func (m *Manager) PositionSize(balance, stopDistance, pipValue float64) (float64, error) {
	if stopDistance <= 0 {
		return 0, fmt.Errorf("%w: stop distance %.5f must be positive", ErrSizing, stopDistance)
	}
	if pipValue <= 0 {
		return 0, fmt.Errorf("%w: pip value %.5f must be positive", ErrSizing, pipValue)
	}

	riskAmount := balance * m.params.RiskPerTrade
	size := riskAmount / (stopDistance * pipValue)
	if m.params.LotIncrement > 0 {
		size = math.Floor(size/m.params.LotIncrement) * m.params.LotIncrement
	}

	riskLog.Debug("Calculated position size", "size", size, "riskAmount", riskAmount, "stopDistance", stopDistance, "pipValue", pipValue)
	return size, nil
}

// StopLoss places the protective stop below a long entry and above a short
// entry by the configured buffer.
func (m *Manager) StopLoss(entryPrice float64, dir types.Direction) float64 {
	if dir == types.SHORT {
		return entryPrice * (1 + m.params.StopLossBuffer)
	}
	return entryPrice * (1 - m.params.StopLossBuffer)
}

// TakeProfit mirrors StopLoss on the favorable side.
func (m *Manager) TakeProfit(entryPrice float64, dir types.Direction) float64 {
	if dir == types.SHORT {
		return entryPrice * (1 - m.params.TakeProfitBuffer)
	}
	return entryPrice * (1 + m.params.TakeProfitBuffer)
}

// ValidateTrade checks entry admissibility. A nil return means admissible;
// otherwise the error wraps ErrTradeRejected with the reason.
func (m *Manager) ValidateTrade(spread float64, openTrades int) error {
	if spread < m.params.MinSpread || spread > m.params.MaxSpread {
		return fmt.Errorf("%w: spread %.5f outside [%.5f, %.5f]",
			ErrTradeRejected, spread, m.params.MinSpread, m.params.MaxSpread)
	}
	if openTrades >= m.params.MaxOpenTrades {
		return fmt.Errorf("%w: open trades %d at limit %d",
			ErrTradeRejected, openTrades, m.params.MaxOpenTrades)
	}
	return nil
}

// DrawdownExceeded reports whether (highWater - equity) / highWater has
// crossed the configured maximum. A true result suspends entries for the run
// but still allows exits.
func (m *Manager) DrawdownExceeded(highWater, equity float64) bool {
	if highWater <= 0 {
		return false
	}
	dd := (highWater - equity) / highWater
	if dd > m.params.MaxDrawdown {
		riskLog.Warn("Drawdown limit exceeded", "drawdown", dd, "max", m.params.MaxDrawdown, "highWater", highWater, "equity", equity)
		return true
	}
	return false
}
