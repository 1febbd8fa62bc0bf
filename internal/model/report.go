package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint 权益曲线上的一个点 (one per synchronized timestep).
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// InstrumentSummary 单个标的的回测统计. The final-phase fields describe the
// streak the instrument ended the run in: its label, how many bars it lasted
// and the best trend value reached inside it.
type InstrumentSummary struct {
	Symbol        string          `json:"symbol"`
	TotalTrades   int             `json:"total_trades"`
	WinRate       float64         `json:"win_rate"`
	NetPnL        decimal.Decimal `json:"net_pnl"`
	Aborted       bool            `json:"aborted"`
	FinalPhase    string          `json:"final_phase"`
	PhaseBars     int             `json:"phase_bars"`
	PhaseExtremum float64         `json:"phase_extremum"`
}

// InstrumentFailure records a per-instrument abort; the run itself still
// completes and reports it here instead of raising to the caller.
type InstrumentFailure struct {
	Symbol   string `json:"symbol"`
	BarIndex int    `json:"bar_index"`
	Reason   string `json:"reason"`
}

// BacktestReport 回测结果报告
type BacktestReport struct {
	StrategyName   string                       `json:"strategy_name"`
	TotalTrades    int                          `json:"total_trades"`
	WinRate        float64                      `json:"win_rate"`
	TotalReturn    decimal.Decimal              `json:"total_return"`
	TotalProfit    decimal.Decimal              `json:"total_profit"` // 净利润
	MaxDrawdown    float64                      `json:"max_drawdown"` // 最大回撤
	SharpRatio     float64                      `json:"sharp_ratio"`
	InitialCapital decimal.Decimal              `json:"initial_capital"`
	FinalCapital   decimal.Decimal              `json:"final_capital"`
	TradesLog      []TradeRecord                `json:"trades_log"` // 交易明细
	EquityCurve    []EquityPoint                `json:"equity_curve"`
	Instruments    map[string]InstrumentSummary `json:"instruments"`
	Failures       []InstrumentFailure          `json:"failures,omitempty"`
}
