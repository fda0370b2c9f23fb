// Package strategy holds the closed set of signal generators and the
// incremental indicators they are built from. Strategies are pure with
// respect to engine state: they consume bars and the current position and
// emit one BUY/SELL/HOLD decision per bar.
package strategy

import (
	"errors"
	"fmt"

	"github.com/tradesim/tradesim/internal/account"
	"github.com/tradesim/tradesim/internal/types"
)

// ID names a strategy in the closed set. There is no open registry: New is
// an exhaustive switch, so an unknown ID is always a caller error.
type ID string

const (
	TrendFollowing ID = "trend_following"
	MeanReversion  ID = "mean_reversion"
	Breakout       ID = "breakout"
	Momentum       ID = "momentum"
	Scalping       ID = "scalping"
	Cointegration  ID = "cointegration"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy is the signal source the engine consumes, one decision per bar.
type Strategy interface {
	ID() ID
	Evaluate(bar types.Bar, pos account.Position) types.Signal
}

// New builds a strategy from the closed set with its default periods.
func New(id ID) (Strategy, error) {
	switch id {
	case TrendFollowing:
		return NewTrendFollowing(20, 50), nil
	case MeanReversion:
		return NewMeanReversion(20, 14), nil
	case Breakout:
		return NewBreakout(20, 2.0), nil
	case Momentum:
		return NewMomentum(14, 20), nil
	case Scalping:
		return NewScalping(5, 20, 14), nil
	case Cointegration:
		return NewCointegration("", 20), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, id)
	}
}

func hold(id ID) types.Signal {
	return types.Signal{Action: types.HOLD, Strategy: string(id)}
}

func signal(id ID, action types.Action) types.Signal {
	return types.Signal{Action: action, Strategy: string(id)}
}

// trendFollowing confirms direction with a fast/slow moving-average stack.
type trendFollowing struct {
	fast *SMA
	slow *SMA
}

func NewTrendFollowing(fast, slow int) Strategy {
	return &trendFollowing{fast: NewSMA(fast), slow: NewSMA(slow)}
}

func (s *trendFollowing) ID() ID { return TrendFollowing }

func (s *trendFollowing) Evaluate(bar types.Bar, _ account.Position) types.Signal {
	s.fast.Update(bar.Close)
	s.slow.Update(bar.Close)
	if !IndicatorsReady(s.fast, s.slow) {
		return hold(TrendFollowing)
	}

	switch {
	case bar.Close > s.fast.Value() && s.fast.Value() > s.slow.Value():
		return signal(TrendFollowing, types.BUY)
	case bar.Close < s.fast.Value() && s.fast.Value() < s.slow.Value():
		return signal(TrendFollowing, types.SELL)
	}
	return hold(TrendFollowing)
}

// meanReversion fades z-score extremes confirmed by RSI.
type meanReversion struct {
	z   *ZScore
	rsi *RSI
}

func NewMeanReversion(zWindow, rsiPeriod int) Strategy {
	return &meanReversion{z: NewZScore(zWindow), rsi: NewRSI(rsiPeriod)}
}

func (s *meanReversion) ID() ID { return MeanReversion }

func (s *meanReversion) Evaluate(bar types.Bar, _ account.Position) types.Signal {
	s.z.Update(bar.Close)
	s.rsi.Update(bar.Close)
	if !IndicatorsReady(s.z, s.rsi) {
		return hold(MeanReversion)
	}

	switch {
	case s.z.Value() > 2 && s.rsi.Value() > 70:
		return signal(MeanReversion, types.SELL)
	case s.z.Value() < -2 && s.rsi.Value() < 30:
		return signal(MeanReversion, types.BUY)
	}
	return hold(MeanReversion)
}

// breakout trades Bollinger band breaks confirmed by an EMA.
type breakout struct {
	bands *Bollinger
	ema   *EMA
}

func NewBreakout(period int, mult float64) Strategy {
	return &breakout{bands: NewBollinger(period, mult), ema: NewEMA(period)}
}

func (s *breakout) ID() ID { return Breakout }

func (s *breakout) Evaluate(bar types.Bar, _ account.Position) types.Signal {
	s.bands.Update(bar.Close)
	s.ema.Update(bar.Close)
	if !IndicatorsReady(s.bands, s.ema) {
		return hold(Breakout)
	}

	switch {
	case bar.Close > s.bands.Upper() && bar.Close > s.ema.Value():
		return signal(Breakout, types.BUY)
	case bar.Close < s.bands.Lower() && bar.Close < s.ema.Value():
		return signal(Breakout, types.SELL)
	}
	return hold(Breakout)
}

// momentum buys oversold and sells overbought, z-score confirmed.
type momentum struct {
	rsi *RSI
	z   *ZScore
}

func NewMomentum(rsiPeriod, zWindow int) Strategy {
	return &momentum{rsi: NewRSI(rsiPeriod), z: NewZScore(zWindow)}
}

func (s *momentum) ID() ID { return Momentum }

func (s *momentum) Evaluate(bar types.Bar, _ account.Position) types.Signal {
	s.rsi.Update(bar.Close)
	s.z.Update(bar.Close)
	if !IndicatorsReady(s.rsi, s.z) {
		return hold(Momentum)
	}

	switch {
	case s.rsi.Value() < 30 && s.z.Value() < -2:
		return signal(Momentum, types.BUY)
	case s.rsi.Value() > 70 && s.z.Value() > 2:
		return signal(Momentum, types.SELL)
	}
	return hold(Momentum)
}

// scalping rides fast/slow EMA crosses while RSI stays out of extremes.
type scalping struct {
	fast *EMA
	slow *EMA
	rsi  *RSI
}

func NewScalping(fast, slow, rsiPeriod int) Strategy {
	return &scalping{fast: NewEMA(fast), slow: NewEMA(slow), rsi: NewRSI(rsiPeriod)}
}

func (s *scalping) ID() ID { return Scalping }

func (s *scalping) Evaluate(bar types.Bar, _ account.Position) types.Signal {
	s.fast.Update(bar.Close)
	s.slow.Update(bar.Close)
	s.rsi.Update(bar.Close)
	if !IndicatorsReady(s.fast, s.slow, s.rsi) {
		return hold(Scalping)
	}

	inBand := s.rsi.Value() > 30 && s.rsi.Value() < 70
	switch {
	case inBand && s.fast.Value() > s.slow.Value():
		return signal(Scalping, types.BUY)
	case inBand && s.fast.Value() < s.slow.Value():
		return signal(Scalping, types.SELL)
	}
	return hold(Scalping)
}

// cointegration trades the spread between two instruments: the bars it
// receives are spread bars built by the orchestrator, and the z-score of the
// spread drives mean-reverting entries.
type cointegration struct {
	partner string
	z       *ZScore
}

func NewCointegration(partner string, zWindow int) Strategy {
	return &cointegration{partner: partner, z: NewZScore(zWindow)}
}

func (s *cointegration) ID() ID { return Cointegration }

func (s *cointegration) Evaluate(bar types.Bar, _ account.Position) types.Signal {
	s.z.Update(bar.Close)
	if !s.z.Ready() {
		return hold(Cointegration)
	}

	sig := hold(Cointegration)
	switch {
	case s.z.Value() > 2:
		sig = signal(Cointegration, types.SELL)
	case s.z.Value() < -2:
		sig = signal(Cointegration, types.BUY)
	}
	sig.Partner = s.partner
	return sig
}
