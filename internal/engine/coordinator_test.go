package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cycle-trader/internal/cycle"
)

func TestCoordinator_DynamicOrderSizeContention(t *testing.T) {
	pool := NewCapitalPool(d(10000))
	coord := NewPositionCoordinator(2, nil)

	// Both instruments size their order from the same snapshot: zero
	// positions open, full capital available.
	sizeA := coord.OrderSize(pool.Available())
	sizeB := coord.OrderSize(pool.Available())
	assert.True(t, sizeA.Equal(d(5000)))
	assert.True(t, sizeB.Equal(d(5000)))

	// Instrument A freezes and fills its order.
	assert.NoError(t, pool.Freeze(sizeA))
	assert.NoError(t, pool.ConsumeFrozen(sizeA))
	assert.True(t, coord.Acquire())

	// B recomputes: remaining capital over the one remaining slot.
	sizeB = coord.OrderSize(pool.Available())
	assert.True(t, sizeB.Equal(d(5000)), "remaining 5000 / (2-1) slots")

	assert.True(t, coord.Acquire())
	assert.False(t, coord.CanOpen())
	assert.True(t, coord.OrderSize(pool.Available()).IsZero(), "no slots left clamps to zero")
}

func TestCoordinator_SlotAccounting(t *testing.T) {
	coord := NewPositionCoordinator(2, nil)

	assert.True(t, coord.Acquire())
	assert.True(t, coord.Acquire())
	assert.False(t, coord.Acquire(), "cap reached")
	assert.Equal(t, 2, coord.OpenCount())

	coord.Release()
	assert.True(t, coord.CanOpen())
	assert.Equal(t, 1, coord.OpenCount())
}

func TestCoordinator_PhaseGating(t *testing.T) {
	coord := NewPositionCoordinator(2, nil)

	blocked := cycle.State{Phase: cycle.PhaseBearWarning}
	allowed := cycle.State{Phase: cycle.PhaseBullWarning}

	assert.False(t, coord.EntryAllowed(blocked), "bear_warning must not place buys")
	assert.True(t, coord.EntryAllowed(allowed))

	// The gate is pluggable; a custom predicate replaces the default.
	strict := NewPositionCoordinator(2, func(state cycle.State) bool {
		return state.Phase == cycle.PhaseBullStrong
	})
	assert.False(t, strict.EntryAllowed(allowed))
	assert.True(t, strict.EntryAllowed(cycle.State{Phase: cycle.PhaseBullStrong}))
}

func TestCoordinator_OrderSizeWithNegativeAvailable(t *testing.T) {
	coord := NewPositionCoordinator(4, nil)
	assert.True(t, coord.OrderSize(decimal.Zero).IsZero())
	assert.True(t, coord.OrderSize(d(-1)).IsZero())
}
