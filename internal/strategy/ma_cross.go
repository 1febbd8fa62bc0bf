package strategy

import (
	"github.com/shopspring/decimal"

	"cycle-trader/internal/cycle"
	"cycle-trader/internal/indicator"
	"cycle-trader/internal/model"
)

// MACrossStrategy 双均线策略: golden-cross entries over its own close window,
// independent of the cycle classifier. Exits use a flat take-profit target
// that collapses to the stop level after a death cross.
type MACrossStrategy struct {
	shortPeriod int
	longPeriod  int
	takeProfit  decimal.Decimal
	stopLoss    decimal.Decimal
	closes      []decimal.Decimal
	crossedUp   bool
	bearish     bool
}

func NewMACrossStrategy(shortPeriod, longPeriod int, takeProfit, stopLoss decimal.Decimal) *MACrossStrategy {
	return &MACrossStrategy{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		takeProfit:  takeProfit,
		stopLoss:    stopLoss,
		closes:      make([]decimal.Decimal, 0, longPeriod+2),
	}
}

func (s *MACrossStrategy) Name() string {
	return "MA_Cross"
}

func (s *MACrossStrategy) OnBar(bar model.KLine, _ indicator.Snapshot, _ cycle.State) {
	s.closes = append(s.closes, bar.Close)
	if len(s.closes) > s.longPeriod+1 {
		s.closes = s.closes[1:]
	}
	s.crossedUp = false
	if len(s.closes) < s.longPeriod+1 {
		return
	}

	shortMA := s.ma(s.shortPeriod, 0)
	longMA := s.ma(s.longPeriod, 0)
	prevShortMA := s.ma(s.shortPeriod, 1)
	prevLongMA := s.ma(s.longPeriod, 1)

	// Golden Cross
	if prevShortMA.LessThanOrEqual(prevLongMA) && shortMA.GreaterThan(longMA) {
		s.crossedUp = true
		s.bearish = false
	}
	// Death Cross
	if prevShortMA.GreaterThanOrEqual(prevLongMA) && shortMA.LessThan(longMA) {
		s.bearish = true
	}
}

func (s *MACrossStrategy) ShouldEnter(_ cycle.State, snap indicator.Snapshot) bool {
	return snap.Ready && s.crossedUp
}

func (s *MACrossStrategy) ExitTarget(pos *model.Position, _ cycle.State) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if s.bearish {
		return pos.EntryPrice.Mul(one.Sub(s.stopLoss))
	}
	return pos.EntryPrice.Mul(one.Add(s.takeProfit))
}

func (s *MACrossStrategy) ma(period int, offset int) decimal.Decimal {
	sum := decimal.Zero
	end := len(s.closes) - offset
	start := end - period
	for i := start; i < end; i++ {
		sum = sum.Add(s.closes[i])
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}
