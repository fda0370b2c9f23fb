package types

import (
	"errors"
	"time"
)

const (
	BUY  Action = "BUY"
	SELL Action = "SELL"
	HOLD Action = "HOLD"

	LONG  Direction = "LONG"
	SHORT Direction = "SHORT"
	FLAT  Direction = "FLAT"
)

type Action string
type Direction string

// ErrMalformedBar marks a bar that violates the data contract. The engine
// skips the bar and continues the run.
var ErrMalformedBar = errors.New("malformed bar")

type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Validate checks the fields the engine depends on. Upstream loaders are
// expected to have validated already, so a failure here skips the bar rather
// than aborting the run.
func (b Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return ErrMalformedBar
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return ErrMalformedBar
	}
	if b.High < b.Low {
		return ErrMalformedBar
	}
	return nil
}

// Signal is one directional decision for one bar. It lives for a single
// execution cycle and is never persisted.
type Signal struct {
	Action   Action
	Strategy string // originating strategy id
	Partner  string // partner instrument for pairwise strategies, empty otherwise
}

// Opposite returns the closing action for a given exposure direction.
func (d Direction) Opposite() Action {
	if d == LONG {
		return SELL
	}
	return BUY
}
