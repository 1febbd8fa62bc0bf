package engine

import (
	"github.com/shopspring/decimal"

	"cycle-trader/internal/cycle"
)

// GatePredicate decides whether an instrument in the given cycle state may
// open new positions. It is a strategy-level policy layered on top of the
// coordinator, kept pluggable so the phase names are not baked in here.
type GatePredicate func(state cycle.State) bool

// DefaultGate blocks entries while an instrument sits in bear_warning.
func DefaultGate(state cycle.State) bool {
	return state.Phase != cycle.PhaseBearWarning
}

// PositionCoordinator enforces the global cap on open positions across all
// instruments and sizes orders from the remaining capital and remaining
// slots. Slots freed by idle instruments are redirected to active ones: the
// fewer instruments competing, the larger each allocation.
type PositionCoordinator struct {
	maxPositions int
	open         int
	gate         GatePredicate
}

func NewPositionCoordinator(maxPositions int, gate GatePredicate) *PositionCoordinator {
	if gate == nil {
		gate = DefaultGate
	}
	return &PositionCoordinator{maxPositions: maxPositions, gate: gate}
}

func (c *PositionCoordinator) MaxPositions() int { return c.maxPositions }
func (c *PositionCoordinator) OpenCount() int    { return c.open }

func (c *PositionCoordinator) CanOpen() bool {
	return c.open < c.maxPositions
}

// EntryAllowed combines the position cap with the phase gate.
func (c *PositionCoordinator) EntryAllowed(state cycle.State) bool {
	return c.CanOpen() && c.gate(state)
}

// OrderSize computes the dynamic per-slot allocation:
// available / (max - open), zero when no slots remain.
func (c *PositionCoordinator) OrderSize(available decimal.Decimal) decimal.Decimal {
	slots := c.maxPositions - c.open
	if slots <= 0 || !available.IsPositive() {
		return decimal.Zero
	}
	return available.Div(decimal.NewFromInt(int64(slots)))
}

// Acquire claims a position slot on a buy fill.
func (c *PositionCoordinator) Acquire() bool {
	if !c.CanOpen() {
		return false
	}
	c.open++
	return true
}

// Release frees a slot when a position closes.
func (c *PositionCoordinator) Release() {
	if c.open > 0 {
		c.open--
	}
}
