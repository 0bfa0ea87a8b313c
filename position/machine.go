package position

import (
	"math"
	"time"

	"github.com/rustyeddy/pairtrader/errs"
)

// Action is what the machine decided for the day.
type Action int8

const (
	Hold Action = iota
	EnterLong
	EnterShort
	Exit
)

func (a Action) String() string {
	switch a {
	case EnterLong:
		return "enter_long"
	case EnterShort:
		return "enter_short"
	case Exit:
		return "exit"
	default:
		return "hold"
	}
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	Target   ExitReason = "target"
	StopLoss ExitReason = "stop_loss"
	MaxHold  ExitReason = "max_hold"
	// EndOfData is a forced close at the end of the simulated horizon. It is
	// never produced by Step.
	EndOfData ExitReason = "end_of_data"
)

// Bar is one day of input to the machine. Z is NaN when undefined.
// Notional is the gross dollar size of the A leg for a new entry.
type Bar struct {
	Date     time.Time
	Z        float64
	PriceA   float64
	PriceB   float64
	Notional float64
}

// Event describes a transition. For Exit, Closed is the leg as it stood at
// the close (HoldingDays included) and Direction is its side. For entries,
// Opened is the new leg.
type Event struct {
	Action    Action
	Reason    ExitReason
	Direction Direction
	Closed    Leg
	Opened    Leg
}

// Machine applies Rules with a frozen hedge ratio.
type Machine struct {
	rules Rules
	beta  float64
}

// NewMachine validates the rules and the hedge ratio.
func NewMachine(rules Rules, beta float64) (*Machine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return nil, errs.InvalidConfig("beta", "must be finite, got %g", beta)
	}
	if rules.ExitRule == "" {
		rules.ExitRule = ExitCross
	}
	return &Machine{rules: rules, beta: beta}, nil
}

func (m *Machine) Rules() Rules  { return m.rules }
func (m *Machine) Beta() float64 { return m.beta }

// Step evaluates one day. Rules are checked in fixed priority:
//
//  1. open and holding days >= max       -> exit MaxHold
//  2. open and |z| > stop                -> exit StopLoss
//  3. open and target reached            -> exit Target
//  4. flat and z < -entry                -> enter long
//  5. flat and z > +entry                -> enter short
//  6. otherwise hold
//
// Holding days count sessions since entry and advance before the checks,
// so a position never outlives MaxHoldingDays. An exit returns Flat; a new
// entry can only happen on a later Step.
func (m *Machine) Step(pos Position, bar Bar) (Position, Event) {
	zOK := !math.IsNaN(bar.Z)

	if leg, open := OpenLeg(pos); open {
		dir := pos.Direction()
		leg.HoldingDays++

		switch {
		case leg.HoldingDays >= m.rules.MaxHoldingDays:
			return Flat{}, Event{Action: Exit, Reason: MaxHold, Direction: dir, Closed: leg}
		case zOK && math.Abs(bar.Z) > m.rules.StopLossThreshold:
			return Flat{}, Event{Action: Exit, Reason: StopLoss, Direction: dir, Closed: leg}
		case zOK && m.targetHit(dir, bar.Z):
			return Flat{}, Event{Action: Exit, Reason: Target, Direction: dir, Closed: leg}
		}
		return withLeg(dir, leg), Event{Action: Hold, Direction: dir}
	}

	if !zOK {
		return Flat{}, Event{Action: Hold}
	}
	switch {
	case bar.Z < -m.rules.EntryThreshold:
		leg := m.open(LongSpread, bar)
		return Long{leg}, Event{Action: EnterLong, Direction: LongSpread, Opened: leg}
	case bar.Z > m.rules.EntryThreshold:
		leg := m.open(ShortSpread, bar)
		return Short{leg}, Event{Action: EnterShort, Direction: ShortSpread, Opened: leg}
	}
	return Flat{}, Event{Action: Hold}
}

// Close force-closes an open position with the given reason. Flat input is
// returned unchanged with a Hold event.
func (m *Machine) Close(pos Position, reason ExitReason) (Position, Event) {
	leg, open := OpenLeg(pos)
	if !open {
		return Flat{}, Event{Action: Hold}
	}
	return Flat{}, Event{Action: Exit, Reason: reason, Direction: pos.Direction(), Closed: leg}
}

func (m *Machine) targetHit(dir Direction, z float64) bool {
	level := m.rules.ExitThreshold + m.rules.ExitEpsilon
	if m.rules.ExitRule == ExitBand {
		return math.Abs(z) <= level
	}
	if dir == LongSpread {
		return z >= -level
	}
	return z <= level
}

// open sizes a dollar-neutral entry: the A leg carries the bar notional in
// the trade direction and the B leg offsets it by beta.
func (m *Machine) open(dir Direction, bar Bar) Leg {
	na := float64(dir) * bar.Notional
	return Leg{
		EntryDate:   bar.Date,
		EntryZ:      bar.Z,
		EntryPriceA: bar.PriceA,
		EntryPriceB: bar.PriceB,
		NotionalA:   na,
		NotionalB:   -m.beta * na,
	}
}
