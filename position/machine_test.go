package position

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrader/errs"
)

var t0 = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

func bar(z float64) Bar {
	return Bar{Date: t0, Z: z, PriceA: 50, PriceB: 25, Notional: 1000}
}

func newMachine(t *testing.T, r Rules) *Machine {
	t.Helper()
	m, err := NewMachine(r, 1.5)
	require.NoError(t, err)
	return m
}

func testRules() Rules {
	return Rules{EntryThreshold: 2, ExitThreshold: 0.5, StopLossThreshold: 4, MaxHoldingDays: 10, ExitRule: ExitCross}
}

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rules)
		field  string
	}{
		{"valid", func(*Rules) {}, ""},
		{"zero entry", func(r *Rules) { r.EntryThreshold = 0 }, "entry_threshold"},
		{"negative exit", func(r *Rules) { r.ExitThreshold = -0.1 }, "exit_threshold"},
		{"exit equals entry", func(r *Rules) { r.ExitThreshold = 2 }, "exit_threshold"},
		{"stop below entry", func(r *Rules) { r.StopLossThreshold = 1.5 }, "stop_loss_threshold"},
		{"stop equals entry", func(r *Rules) { r.StopLossThreshold = 2 }, "stop_loss_threshold"},
		{"zero max hold", func(r *Rules) { r.MaxHoldingDays = 0 }, "max_holding_days"},
		{"negative epsilon", func(r *Rules) { r.ExitEpsilon = -1 }, "exit_epsilon"},
		{"unknown exit rule", func(r *Rules) { r.ExitRule = "sometimes" }, "exit_rule"},
		{"nan entry", func(r *Rules) { r.EntryThreshold = math.NaN() }, "entry_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRules()
			tt.mutate(&r)
			err := r.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *errs.InvalidConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	_, err := NewMachine(testRules(), math.Inf(1))
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}

func TestEntries(t *testing.T) {
	m := newMachine(t, testRules())

	tests := []struct {
		name   string
		z      float64
		action Action
		dir    Direction
	}{
		{"below -entry", -2.1, EnterLong, LongSpread},
		{"above entry", 2.1, EnterShort, ShortSpread},
		{"at -entry is not below", -2, Hold, None},
		{"inside band", 1.0, Hold, None},
		{"undefined", math.NaN(), Hold, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ev := m.Step(Flat{}, bar(tt.z))
			assert.Equal(t, tt.action, ev.Action)
			assert.Equal(t, tt.dir, next.Direction())
		})
	}
}

func TestEntryNotionals(t *testing.T) {
	m := newMachine(t, testRules())

	next, ev := m.Step(Flat{}, bar(-3))
	long, ok := next.(Long)
	require.True(t, ok)
	assert.Equal(t, ev.Opened, long.Leg)
	assert.Equal(t, 1000.0, long.NotionalA)
	assert.Equal(t, -1500.0, long.NotionalB)
	assert.Equal(t, 2500.0, long.Gross())
	assert.Equal(t, 0, long.HoldingDays)
	ua, ub := long.Units()
	assert.Equal(t, 20.0, ua)
	assert.Equal(t, -60.0, ub)

	next, _ = m.Step(Flat{}, bar(3))
	short, ok := next.(Short)
	require.True(t, ok)
	assert.Equal(t, -1000.0, short.NotionalA)
	assert.Equal(t, 1500.0, short.NotionalB)
	assert.Equal(t, 3.0, short.EntryZ)
}

func TestExitPriority(t *testing.T) {
	m := newMachine(t, testRules())
	leg := Leg{EntryDate: t0, EntryZ: -2.5, EntryPriceA: 50, EntryPriceB: 25, NotionalA: 1000, NotionalB: -1500}

	tests := []struct {
		name    string
		pos     Position
		held    int
		z       float64
		action  Action
		reason  ExitReason
		holding int
	}{
		{"max hold beats stop", Long{leg}, 9, -5, Exit, MaxHold, 10},
		{"max hold with undefined z", Long{leg}, 9, math.NaN(), Exit, MaxHold, 10},
		{"stop beats target", Short{leg}, 1, -4.5, Exit, StopLoss, 2},
		{"stop long", Long{leg}, 0, -4.01, Exit, StopLoss, 1},
		{"target long crossing", Long{leg}, 0, -0.4, Exit, Target, 1},
		{"target long overshoot", Long{leg}, 0, 1.2, Exit, Target, 1},
		{"target short", Short{leg}, 3, 0.3, Exit, Target, 4},
		{"long still stretched", Long{leg}, 0, -1.5, Hold, "", 1},
		{"short still stretched", Short{leg}, 0, 1.5, Hold, "", 1},
		{"undefined z holds", Long{leg}, 2, math.NaN(), Hold, "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := tt.pos
			switch p := pos.(type) {
			case Long:
				p.HoldingDays = tt.held
				pos = p
			case Short:
				p.HoldingDays = tt.held
				pos = p
			}

			next, ev := m.Step(pos, bar(tt.z))
			assert.Equal(t, tt.action, ev.Action)
			assert.Equal(t, tt.reason, ev.Reason)
			if tt.action == Exit {
				assert.Equal(t, Flat{}, next)
				assert.Equal(t, tt.holding, ev.Closed.HoldingDays)
				assert.Equal(t, tt.pos.Direction(), ev.Direction)
				return
			}
			l, open := OpenLeg(next)
			require.True(t, open)
			assert.Equal(t, tt.holding, l.HoldingDays)
			assert.Equal(t, tt.pos.Direction(), next.Direction())
		})
	}

	// The input position is not mutated.
	l, _ := OpenLeg(Long{leg})
	assert.Equal(t, 0, l.HoldingDays)
}

func TestExitBandAndEpsilon(t *testing.T) {
	r := testRules()
	r.ExitRule = ExitBand
	r.ExitThreshold = 0
	m := newMachine(t, r)
	long := Long{Leg{EntryZ: -3, EntryPriceA: 1, EntryPriceB: 1}}

	_, ev := m.Step(long, bar(0.2))
	assert.Equal(t, Hold, ev.Action, "band exit needs |z| <= level")
	_, ev = m.Step(long, bar(0))
	assert.Equal(t, Target, ev.Reason)

	r.ExitEpsilon = 0.25
	m = newMachine(t, r)
	_, ev = m.Step(long, bar(0.2))
	assert.Equal(t, Target, ev.Reason)
	_, ev = m.Step(long, bar(-0.3))
	assert.Equal(t, Hold, ev.Action)
}

func TestExitThenNoSameDayEntry(t *testing.T) {
	m := newMachine(t, testRules())
	short := Short{Leg{EntryZ: 2.5, EntryPriceA: 1, EntryPriceB: 1}}

	// z far below -entry: the short hits its target but must not flip long.
	next, ev := m.Step(short, bar(-3))
	assert.Equal(t, Exit, ev.Action)
	assert.Equal(t, Target, ev.Reason)
	assert.Equal(t, None, next.Direction())

	next, ev = m.Step(next, bar(-3))
	assert.Equal(t, EnterLong, ev.Action)
	assert.Equal(t, LongSpread, next.Direction())
}

func TestClose(t *testing.T) {
	m := newMachine(t, testRules())
	long := Long{Leg{HoldingDays: 4}}

	next, ev := m.Close(long, EndOfData)
	assert.Equal(t, Flat{}, next)
	assert.Equal(t, Exit, ev.Action)
	assert.Equal(t, EndOfData, ev.Reason)
	assert.Equal(t, 4, ev.Closed.HoldingDays)

	_, ev = m.Close(Flat{}, EndOfData)
	assert.Equal(t, Hold, ev.Action)
}

func TestRandomWalkInvariants(t *testing.T) {
	m := newMachine(t, testRules())
	r := rand.New(rand.NewSource(42))

	var pos Position = Flat{}
	z := 0.0
	opens, closes := 0, 0
	for i := 0; i < 20000; i++ {
		z = 0.9*z + 0.8*r.NormFloat64()
		b := bar(z)
		if i%37 == 0 {
			b.Z = math.NaN()
		}
		wasOpen := pos.Direction() != None
		next, ev := m.Step(pos, b)

		switch ev.Action {
		case EnterLong, EnterShort:
			assert.False(t, wasOpen, "entry while open at %d", i)
			opens++
		case Exit:
			assert.True(t, wasOpen)
			assert.LessOrEqual(t, ev.Closed.HoldingDays, m.Rules().MaxHoldingDays)
			assert.Equal(t, None, next.Direction())
			closes++
		}
		if l, open := OpenLeg(next); open {
			assert.Less(t, l.HoldingDays, m.Rules().MaxHoldingDays)
		}
		pos = next
	}
	assert.Greater(t, opens, 10)
	assert.InDelta(t, opens, closes, 1)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "long", LongSpread.String())
	assert.Equal(t, "short", ShortSpread.String())
	assert.Equal(t, "flat", None.String())
	assert.Equal(t, "enter_long", EnterLong.String())
	assert.Equal(t, "exit", Exit.String())
	assert.Equal(t, "hold", Hold.String())
}
