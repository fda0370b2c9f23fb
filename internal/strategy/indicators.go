package strategy

import (
	"math"

	"github.com/tradesim/tradesim/internal/logging"
)

var indLog = logging.New("indicators")

// Indicator is the readiness contract shared by all incremental indicators.
type Indicator interface {
	Ready() bool
}

// IndicatorsReady reports whether every indicator has warmed up.
func IndicatorsReady(indicators ...Indicator) bool {
	for _, ind := range indicators {
		if !ind.Ready() {
			return false
		}
	}
	return true
}

// EMA - Exponential Moving Average
type EMA struct {
	period int
	value  float64
	alpha  float64
	init   bool
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EMA) Update(price float64) {
	if !e.init {
		e.value = price
		e.init = true
		return
	}
	e.value = (price * e.alpha) + (e.value * (1 - e.alpha))
}

func (e *EMA) Value() float64 {
	return e.value
}

func (e *EMA) Ready() bool {
	return e.init
}

// SMA - Simple Moving Average over a fixed window
type SMA struct {
	period int
	values []float64
}

func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		values: make([]float64, 0, period),
	}
}

func (s *SMA) Update(price float64) {
	s.values = append(s.values, price)
	if len(s.values) > s.period {
		s.values = s.values[1:]
	}
}

func (s *SMA) Value() float64 {
	if len(s.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(len(s.values))
}

func (s *SMA) Ready() bool {
	return len(s.values) >= s.period
}

// StdDev returns the population standard deviation of the window.
func (s *SMA) StdDev() float64 {
	if len(s.values) == 0 {
		return 0
	}
	mean := s.Value()
	var sq float64
	for _, v := range s.values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(s.values)))
}

// RSI - Relative Strength Index with Wilder smoothing
type RSI struct {
	period    int
	avgGain   float64
	avgLoss   float64
	prevPrice float64
	warmup    int
	seeded    bool
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Update(price float64) {
	if !r.seeded {
		r.prevPrice = price
		r.seeded = true
		return
	}

	change := price - r.prevPrice
	r.prevPrice = price
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if r.warmup < r.period {
		// accumulate a simple average over the first full period
		r.avgGain += gain / float64(r.period)
		r.avgLoss += loss / float64(r.period)
		r.warmup++
		return
	}

	n := float64(r.period)
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	r.warmup++
}

func (r *RSI) Value() float64 {
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}

func (r *RSI) Ready() bool {
	return r.warmup >= r.period
}

// Bollinger - SMA envelope at a stddev multiple
type Bollinger struct {
	sma  *SMA
	mult float64
}

func NewBollinger(period int, mult float64) *Bollinger {
	return &Bollinger{sma: NewSMA(period), mult: mult}
}

func (b *Bollinger) Update(price float64) {
	b.sma.Update(price)
	if indLog.Enabled() && b.Ready() {
		indLog.Debug("Bollinger updated", "mid", b.sma.Value(), "upper", b.Upper(), "lower", b.Lower())
	}
}

func (b *Bollinger) Upper() float64 {
	return b.sma.Value() + b.mult*b.sma.StdDev()
}

func (b *Bollinger) Lower() float64 {
	return b.sma.Value() - b.mult*b.sma.StdDev()
}

func (b *Bollinger) Ready() bool {
	return b.sma.Ready()
}

// ZScore - rolling standard score of the latest value against its window
type ZScore struct {
	sma  *SMA
	last float64
}

func NewZScore(period int) *ZScore {
	return &ZScore{sma: NewSMA(period)}
}

func (z *ZScore) Update(price float64) {
	z.sma.Update(price)
	z.last = price
}

func (z *ZScore) Value() float64 {
	sd := z.sma.StdDev()
	if sd == 0 {
		return 0
	}
	return (z.last - z.sma.Value()) / sd
}

func (z *ZScore) Ready() bool {
	return z.sma.Ready()
}
