package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PendingOrder 挂单 (resting limit order)
// Frozen is the capital reserved against the order; it stays frozen in the
// pool until the order fills or is cancelled. Orders are never reused: a
// resolved order is dropped from the book.
type PendingOrder struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Frozen     decimal.Decimal `json:"frozen"`
	CreatedBar int             `json:"created_bar"`
	PositionID string          `json:"position_id,omitempty"` // sell orders only
}

// Position 持仓, created when a buy order fills and destroyed when its sell
// order fills. CostBasis is the full amount spent to open it, fee included.
type Position struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryBar   int             `json:"entry_bar"`
	EntryTime  time.Time       `json:"entry_time"`
	Quantity   decimal.Decimal `json:"quantity"`
	CostBasis  decimal.Decimal `json:"cost_basis"`
	EntryFee   decimal.Decimal `json:"entry_fee"`
}

// TradeRecord 一次完整的买入-卖出往返, immutable once appended.
type TradeRecord struct {
	Symbol     string          `json:"symbol"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	EntryTime  time.Time       `json:"entry_time"`
	ExitTime   time.Time       `json:"exit_time"`
	Quantity   decimal.Decimal `json:"quantity"`
	PnL        decimal.Decimal `json:"pnl"`
	Fees       decimal.Decimal `json:"fees"`
	ExitReason string          `json:"exit_reason"` // "take_profit", "stop_loss", "end_of_data", "aborted"
}
