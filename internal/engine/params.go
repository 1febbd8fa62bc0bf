package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cycle-trader/internal/cycle"
)

// Params is the immutable parameter record for one backtest run. It is
// copied at run start; later mutation of the source has no effect.
type Params struct {
	Thresholds     cycle.Thresholds
	MaxPositions   int
	InitialCapital decimal.Decimal
	TakeProfitRate decimal.Decimal
	StopLossRate   decimal.Decimal
	FeeRate        decimal.Decimal
	ShortPeriod    int
	LongPeriod     int
	StrategyType   string
	StrategyConfig map[string]interface{}
}

func DefaultParams() Params {
	return Params{
		Thresholds:     cycle.DefaultThresholds(),
		MaxPositions:   4,
		InitialCapital: decimal.NewFromInt(10000),
		TakeProfitRate: decimal.NewFromFloat(0.08),
		StopLossRate:   decimal.NewFromFloat(0.04),
		FeeRate:        decimal.NewFromFloat(0.001),
		ShortPeriod:    5,
		LongPeriod:     20,
		StrategyType:   "cycle",
	}
}

func (p Params) Validate() error {
	if p.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be positive, got %d", p.MaxPositions)
	}
	if !p.InitialCapital.IsPositive() {
		return fmt.Errorf("initial capital must be positive, got %s", p.InitialCapital)
	}
	if p.FeeRate.IsNegative() {
		return fmt.Errorf("fee rate must not be negative, got %s", p.FeeRate)
	}
	if p.LongPeriod < 2 || p.ShortPeriod < 1 {
		return fmt.Errorf("lookback periods too small: short=%d long=%d", p.ShortPeriod, p.LongPeriod)
	}
	if p.ShortPeriod >= p.LongPeriod {
		return fmt.Errorf("short period %d must be below long period %d", p.ShortPeriod, p.LongPeriod)
	}
	return nil
}
