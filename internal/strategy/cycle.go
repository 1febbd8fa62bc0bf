package strategy

import (
	"github.com/shopspring/decimal"

	"cycle-trader/internal/cycle"
	"cycle-trader/internal/indicator"
	"cycle-trader/internal/model"
)

// CycleStrategy 周期策略: enter while the cycle is bullish, hold a take-profit
// target while it stays bullish, and drop the target to the stop level as
// soon as the phase degrades so the exit fills on the next overlapping bar.
type CycleStrategy struct {
	takeProfit decimal.Decimal
	stopLoss   decimal.Decimal
}

func NewCycleStrategy(takeProfit, stopLoss decimal.Decimal) *CycleStrategy {
	return &CycleStrategy{takeProfit: takeProfit, stopLoss: stopLoss}
}

func (s *CycleStrategy) Name() string {
	return "Cycle_Phase"
}

func (s *CycleStrategy) OnBar(model.KLine, indicator.Snapshot, cycle.State) {}

func (s *CycleStrategy) ShouldEnter(state cycle.State, snap indicator.Snapshot) bool {
	if !snap.Ready {
		return false
	}
	return state.Phase.Bullish()
}

func (s *CycleStrategy) ExitTarget(pos *model.Position, state cycle.State) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if state.Phase.Bullish() {
		return pos.EntryPrice.Mul(one.Add(s.takeProfit))
	}
	return pos.EntryPrice.Mul(one.Sub(s.stopLoss))
}
