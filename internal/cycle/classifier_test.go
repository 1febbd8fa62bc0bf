package cycle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cycle-trader/internal/indicator"
	"cycle-trader/internal/model"
)

func testBar(i int) model.KLine {
	p := decimal.NewFromInt(100)
	return model.KLine{
		Symbol: "BTCUSDT",
		Open:   p, High: p, Low: p, Close: p,
		Timestamp: time.Unix(int64(i)*3600, 0),
	}
}

// run feeds a trend-value sequence through a fresh classifier; deltas are
// measured against a zero baseline for the first value, matching the
// indicator pipeline.
func run(t Thresholds, trends []float64) []State {
	c := NewClassifier(t)
	states := make([]State, 0, len(trends))
	prev := 0.0
	for i, tv := range trends {
		snap := indicator.Snapshot{TrendValue: tv, TrendDelta: tv - prev, Ready: true}
		prev = tv
		states = append(states, c.Step(snap, testBar(i)))
	}
	return states
}

func phases(states []State) []Phase {
	out := make([]Phase, len(states))
	for i, s := range states {
		out[i] = s.Phase
	}
	return out
}

func TestClassifier_FullBullCycle(t *testing.T) {
	states := run(DefaultThresholds(), []float64{500, 650, 750, 1050, 900, -50})

	assert.Equal(t, []Phase{
		PhaseConsolidation,
		PhaseBullWarning,
		PhaseBullWarning,
		PhaseBullStrong,
		PhaseBullStrong,
		PhaseConsolidation,
	}, phases(states))

	assert.False(t, states[1].Confirmed)
	assert.True(t, states[3].Confirmed)
	assert.True(t, states[4].Confirmed)
	assert.False(t, states[5].Confirmed)
}

func TestClassifier_UnconfirmedWarningExpires(t *testing.T) {
	states := run(DefaultThresholds(), []float64{650, 700, -10})

	assert.Equal(t, []Phase{
		PhaseBullWarning,
		PhaseBullWarning,
		PhaseConsolidation,
	}, phases(states))

	for _, s := range states {
		assert.NotEqual(t, PhaseBullStrong, s.Phase, "must never confirm")
	}
}

func TestClassifier_BearMirror(t *testing.T) {
	states := run(DefaultThresholds(), []float64{-500, -650, -750, -1050, -900, 50})

	assert.Equal(t, []Phase{
		PhaseConsolidation,
		PhaseBearWarning,
		PhaseBearWarning,
		PhaseBearStrong,
		PhaseBearStrong,
		PhaseConsolidation,
	}, phases(states))
}

func TestClassifier_ExactThresholdDoesNotEnter(t *testing.T) {
	// trend == Warning uses ">", so the boundary value must not trigger.
	states := run(DefaultThresholds(), []float64{600, 600, 600})
	for _, s := range states {
		assert.Equal(t, PhaseConsolidation, s.Phase)
	}

	// trend == Strong from a warning phase also stays put.
	states = run(DefaultThresholds(), []float64{650, 1000, 1000})
	assert.Equal(t, []Phase{PhaseBullWarning, PhaseBullWarning, PhaseBullWarning}, phases(states))
}

func TestClassifier_RisingDeltaRequiredForWarning(t *testing.T) {
	// 700 is above Warning but arrives on a falling trend.
	states := run(DefaultThresholds(), []float64{900, -100, 700})
	// 900 enters bull_warning, -100 exits, 700 rising re-enters.
	assert.Equal(t, []Phase{PhaseBullWarning, PhaseConsolidation, PhaseBullWarning}, phases(states))

	c := NewClassifier(DefaultThresholds())
	c.Step(indicator.Snapshot{TrendValue: 0, TrendDelta: 0, Ready: true}, testBar(0))
	s := c.Step(indicator.Snapshot{TrendValue: 700, TrendDelta: -50, Ready: true}, testBar(1))
	assert.Equal(t, PhaseConsolidation, s.Phase, "falling trend above Warning must not enter")
}

func TestClassifier_NotReadyMapsToConsolidation(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	s := c.Step(indicator.Snapshot{}, testBar(0))
	assert.Equal(t, PhaseConsolidation, s.Phase)
	assert.False(t, s.Confirmed)

	// A ready bar afterwards behaves as the first real observation.
	s = c.Step(indicator.Snapshot{TrendValue: 650, TrendDelta: 650, Ready: true}, testBar(1))
	assert.Equal(t, PhaseBullWarning, s.Phase)
}

func TestClassifier_StreakBookkeeping(t *testing.T) {
	states := run(DefaultThresholds(), []float64{650, 700, 1100, 1400, 1200})

	// Warning streak: bars 0-1, extremum 700.
	assert.Equal(t, 0, states[1].Streak.StartBar)
	assert.Equal(t, 2, states[1].Streak.Length)
	assert.Equal(t, 700.0, states[1].Streak.Extremum)

	// Strong streak resets at bar 2 and tracks its own extremum.
	assert.Equal(t, 2, states[4].Streak.StartBar)
	assert.Equal(t, 3, states[4].Streak.Length)
	assert.Equal(t, 1400.0, states[4].Streak.Extremum)
	assert.Equal(t, PhaseBullStrong, states[4].Streak.Phase)
}

func TestClassifier_StateReturnsLatestLabel(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	var last State
	for i, tv := range []float64{650, 1100, 1200} {
		last = c.Step(indicator.Snapshot{TrendValue: tv, TrendDelta: tv, Ready: true}, testBar(i))
	}
	assert.Equal(t, last, c.State())
}

func TestClassifier_NoLookahead(t *testing.T) {
	full := run(DefaultThresholds(), []float64{500, 650, 750, 1050, 900, -50})
	truncated := run(DefaultThresholds(), []float64{500, 650, 750})

	for i := range truncated {
		assert.Equal(t, full[i].Phase, truncated[i].Phase,
			"label at bar %d must not depend on later bars", i)
	}
}
