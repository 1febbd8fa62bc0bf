package strategy

import (
	"github.com/shopspring/decimal"

	"cycle-trader/internal/cycle"
	"cycle-trader/internal/indicator"
	"cycle-trader/internal/model"
)

// Strategy is the fixed hook set every variant implements. Variants are
// selected by configuration through NewStrategy; one instance serves one
// instrument and may keep per-instrument state in OnBar.
//
// ExitTarget doubles as the sell repricing policy: the driver calls it every
// bar for every open position and replaces the resting sell target with the
// result. The policy is a pure recomputation from the current cycle state.
type Strategy interface {
	Name() string
	OnBar(bar model.KLine, snap indicator.Snapshot, state cycle.State)
	ShouldEnter(state cycle.State, snap indicator.Snapshot) bool
	ExitTarget(pos *model.Position, state cycle.State) decimal.Decimal
}
