// Package cost models transaction costs as deterministic price adjustments.
// It is not a market simulator: spread, slippage and commission are fixed
// assumptions applied to every fill.
package cost

import (
	"errors"
	"math"

	"github.com/tradesim/tradesim/internal/types"
)

// ErrInvalidCostInput marks a malformed price, spread or slippage value.
// The offending bar is rejected and the run continues.
var ErrInvalidCostInput = errors.New("invalid cost input")

// Config is the immutable cost assumption snapshot for one run.
type Config struct {
	Spread         float64 `yaml:"spread"`
	Slippage       float64 `yaml:"slippage"`
	CommissionRate float64 `yaml:"commission_rate"`
}

// Fill is the cost-adjusted execution of a single signal.
type Fill struct {
	Price      float64
	Commission float64
}

// Apply maps a directional action and raw price to an adjusted fill price
// and commission. BUY pays half the spread plus slippage, SELL receives
// half the spread less slippage. Commission is charged on post-slippage
// notional. Pure and safe for concurrent use.
func (c Config) Apply(action types.Action, rawPrice, size float64) (Fill, error) {
	if rawPrice <= 0 || c.Spread < 0 || c.Slippage < 0 {
		return Fill{}, ErrInvalidCostInput
	}

	var price float64
	switch action {
	case types.BUY:
		price = rawPrice + c.Spread/2 + c.Slippage
	case types.SELL:
		price = rawPrice - c.Spread/2 - c.Slippage
	default:
		return Fill{}, ErrInvalidCostInput
	}

	return Fill{
		Price:      price,
		Commission: c.CommissionRate * price * math.Abs(size),
	}, nil
}
