// Package position is the per-day trading state machine for a spread.
//
// A Position is one of Flat, Long or Short. Long and Short carry the entry
// details of the single open trade; Flat carries nothing. Machine.Step maps
// (position, today's bar) to the next position and an Event, and never
// mutates its input.
package position

import (
	"math"
	"time"

	"github.com/rustyeddy/pairtrader/errs"
)

// Direction of the spread position.
type Direction int8

const (
	None        Direction = 0
	LongSpread  Direction = +1 // long A, short beta*B
	ShortSpread Direction = -1 // short A, long beta*B
)

func (d Direction) String() string {
	switch d {
	case LongSpread:
		return "long"
	case ShortSpread:
		return "short"
	default:
		return "flat"
	}
}

// Position is the sealed state variant.
type Position interface {
	Direction() Direction
	isPosition()
}

// Leg holds the entry details of an open spread position. NotionalA and
// NotionalB are signed dollar exposures; NotionalB = -beta*NotionalA.
type Leg struct {
	EntryDate   time.Time
	EntryZ      float64
	EntryPriceA float64
	EntryPriceB float64
	NotionalA   float64
	NotionalB   float64
	HoldingDays int
}

// Gross is |NotionalA| + |NotionalB| at entry prices.
func (l Leg) Gross() float64 {
	return math.Abs(l.NotionalA) + math.Abs(l.NotionalB)
}

// Units returns the share quantities implied by the entry notionals.
func (l Leg) Units() (float64, float64) {
	return l.NotionalA / l.EntryPriceA, l.NotionalB / l.EntryPriceB
}

type Flat struct{}

type Long struct{ Leg }

type Short struct{ Leg }

func (Flat) Direction() Direction  { return None }
func (Long) Direction() Direction  { return LongSpread }
func (Short) Direction() Direction { return ShortSpread }

func (Flat) isPosition()  {}
func (Long) isPosition()  {}
func (Short) isPosition() {}

// OpenLeg returns the leg of an open position.
func OpenLeg(p Position) (Leg, bool) {
	switch v := p.(type) {
	case Long:
		return v.Leg, true
	case Short:
		return v.Leg, true
	default:
		return Leg{}, false
	}
}

func withLeg(d Direction, l Leg) Position {
	if d == LongSpread {
		return Long{l}
	}
	return Short{l}
}

// ExitRule selects how the target exit is read.
type ExitRule string

const (
	// ExitCross closes once z has come back through the exit level:
	// a long exits at z >= -(exit+eps), a short at z <= exit+eps.
	ExitCross ExitRule = "cross"
	// ExitBand closes only while |z| <= exit+eps.
	ExitBand ExitRule = "band"
)

// Rules are the entry/exit thresholds in z units.
type Rules struct {
	EntryThreshold    float64  `json:"entry_threshold" yaml:"entry_threshold"`
	ExitThreshold     float64  `json:"exit_threshold" yaml:"exit_threshold"`
	StopLossThreshold float64  `json:"stop_loss_threshold" yaml:"stop_loss_threshold"`
	MaxHoldingDays    int      `json:"max_holding_days" yaml:"max_holding_days"`
	ExitRule          ExitRule `json:"exit_rule" yaml:"exit_rule"`
	ExitEpsilon       float64  `json:"exit_epsilon" yaml:"exit_epsilon"`
}

// DefaultRules match the research defaults: enter at 2, exit at 0.5, stop
// at 4, hold at most 20 days.
func DefaultRules() Rules {
	return Rules{
		EntryThreshold:    2.0,
		ExitThreshold:     0.5,
		StopLossThreshold: 4.0,
		MaxHoldingDays:    20,
		ExitRule:          ExitCross,
	}
}

// Validate rejects contradictory thresholds.
func (r Rules) Validate() error {
	switch {
	case !(r.EntryThreshold > 0):
		return errs.InvalidConfig("entry_threshold", "must be > 0, got %g", r.EntryThreshold)
	case !(r.ExitThreshold >= 0):
		return errs.InvalidConfig("exit_threshold", "must be >= 0, got %g", r.ExitThreshold)
	case r.ExitThreshold >= r.EntryThreshold:
		return errs.InvalidConfig("exit_threshold", "must be < entry_threshold (%g), got %g", r.EntryThreshold, r.ExitThreshold)
	case !(r.StopLossThreshold > r.EntryThreshold):
		return errs.InvalidConfig("stop_loss_threshold", "must be > entry_threshold (%g), got %g", r.EntryThreshold, r.StopLossThreshold)
	case r.MaxHoldingDays <= 0:
		return errs.InvalidConfig("max_holding_days", "must be > 0, got %d", r.MaxHoldingDays)
	case !(r.ExitEpsilon >= 0):
		return errs.InvalidConfig("exit_epsilon", "must be >= 0, got %g", r.ExitEpsilon)
	case r.ExitRule != "" && r.ExitRule != ExitCross && r.ExitRule != ExitBand:
		return errs.InvalidConfig("exit_rule", "must be %q or %q, got %q", ExitCross, ExitBand, r.ExitRule)
	}
	return nil
}
