package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cycle-trader/internal/cycle"
	"cycle-trader/internal/indicator"
	"cycle-trader/internal/model"
)

func closeBar(c float64, i int) model.KLine {
	p := decimal.NewFromFloat(c)
	return model.KLine{
		Symbol: "BTCUSDT",
		Open:   p, High: p, Low: p, Close: p,
		Timestamp: time.Unix(int64(i)*3600, 0),
	}
}

func TestCycleStrategy_EntryFollowsPhase(t *testing.T) {
	s := NewCycleStrategy(decimal.NewFromFloat(0.08), decimal.NewFromFloat(0.04))
	ready := indicator.Snapshot{Ready: true}

	assert.True(t, s.ShouldEnter(cycle.State{Phase: cycle.PhaseBullWarning}, ready))
	assert.True(t, s.ShouldEnter(cycle.State{Phase: cycle.PhaseBullStrong}, ready))
	assert.False(t, s.ShouldEnter(cycle.State{Phase: cycle.PhaseConsolidation}, ready))
	assert.False(t, s.ShouldEnter(cycle.State{Phase: cycle.PhaseBearWarning}, ready))
	assert.False(t, s.ShouldEnter(cycle.State{Phase: cycle.PhaseBullStrong}, indicator.Snapshot{}),
		"insufficient history suppresses entries")
}

func TestCycleStrategy_ExitTargetByPhase(t *testing.T) {
	s := NewCycleStrategy(decimal.NewFromFloat(0.08), decimal.NewFromFloat(0.04))
	pos := &model.Position{EntryPrice: decimal.NewFromInt(100)}

	target := s.ExitTarget(pos, cycle.State{Phase: cycle.PhaseBullStrong})
	assert.True(t, target.Equal(decimal.NewFromInt(108)), "bullish: take-profit target, got %s", target)

	target = s.ExitTarget(pos, cycle.State{Phase: cycle.PhaseConsolidation})
	assert.True(t, target.Equal(decimal.NewFromInt(96)), "degraded: stop target, got %s", target)

	target = s.ExitTarget(pos, cycle.State{Phase: cycle.PhaseBearStrong})
	assert.True(t, target.Equal(decimal.NewFromInt(96)))
}

func TestMACrossStrategy_GoldenCrossEntry(t *testing.T) {
	s := NewMACrossStrategy(2, 4, decimal.NewFromFloat(0.08), decimal.NewFromFloat(0.04))
	ready := indicator.Snapshot{Ready: true}
	state := cycle.State{Phase: cycle.PhaseConsolidation}

	// Downtrend into a sharp reversal: short MA crosses above long MA.
	prices := []float64{110, 108, 106, 104, 102, 112, 120}
	crossBars := 0
	for i, p := range prices {
		s.OnBar(closeBar(p, i), ready, state)
		if s.ShouldEnter(state, ready) {
			crossBars++
		}
	}
	assert.Equal(t, 1, crossBars, "golden cross fires on exactly one bar")
}

func TestMACrossStrategy_DeathCrossDropsTarget(t *testing.T) {
	s := NewMACrossStrategy(2, 4, decimal.NewFromFloat(0.08), decimal.NewFromFloat(0.04))
	ready := indicator.Snapshot{Ready: true}
	state := cycle.State{}
	pos := &model.Position{EntryPrice: decimal.NewFromInt(100)}

	for i, p := range []float64{100, 102, 104, 106, 108} {
		s.OnBar(closeBar(p, i), ready, state)
	}
	assert.True(t, s.ExitTarget(pos, state).Equal(decimal.NewFromInt(108)))

	for i, p := range []float64{106, 96, 86} {
		s.OnBar(closeBar(p, i+5), ready, state)
	}
	assert.True(t, s.ExitTarget(pos, state).Equal(decimal.NewFromInt(96)),
		"after a death cross the target collapses to the stop level")
}

func TestNewStrategy_Factory(t *testing.T) {
	s, err := NewStrategy("cycle", map[string]interface{}{
		"take_profit_rate": 0.1,
		"stop_loss_rate":   0.05,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Cycle_Phase", s.Name())

	s, err = NewStrategy("ma_cross", map[string]interface{}{
		"short_period": 5.0,
		"long_period":  20.0,
	})
	assert.NoError(t, err)
	assert.Equal(t, "MA_Cross", s.Name())

	_, err = NewStrategy("ma_cross", map[string]interface{}{})
	assert.Error(t, err, "ma_cross requires periods")

	_, err = NewStrategy("unknown", nil)
	assert.Error(t, err)
}
