package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// KLine (Candle) 代表一根K线
type KLine struct {
	Symbol    string          `json:"symbol" db:"symbol"`
	Exchange  string          `json:"exchange" db:"exchange"`
	Period    string          `json:"period" db:"period"` // "1m", "5m"
	Open      decimal.Decimal `json:"o" db:"open"`
	High      decimal.Decimal `json:"h" db:"high"`
	Low       decimal.Decimal `json:"l" db:"low"`
	Close     decimal.Decimal `json:"c" db:"close"`
	Volume    decimal.Decimal `json:"v" db:"volume"`
	Timestamp time.Time       `json:"t" db:"time"`
}

// Malformed reports whether the bar cannot be simulated against: an inverted
// range or a non-positive price makes every fill check meaningless.
func (k KLine) Malformed() bool {
	if k.Low.GreaterThan(k.High) {
		return true
	}
	if !k.Open.IsPositive() || !k.High.IsPositive() || !k.Low.IsPositive() || !k.Close.IsPositive() {
		return true
	}
	return false
}
