package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cycle-trader/internal/cycle"
	"cycle-trader/internal/indicator"
	"cycle-trader/internal/infrastructure"
	"cycle-trader/internal/model"
	"cycle-trader/internal/strategy"
)

// instrumentRun bundles the per-instrument moving parts: bar cursor, signal
// pipeline, classifier, order book, strategy instance and open positions.
type instrumentRun struct {
	symbol     string
	bars       []model.KLine
	cursor     int
	pipeline   *indicator.Pipeline
	classifier *cycle.Classifier
	book       *OrderBook
	strat      strategy.Strategy
	positions  []*model.Position
	snap       indicator.Snapshot
	state      cycle.State
	lastClose  decimal.Decimal
	aborted    bool
	trades     int
	wins       int
	netPnL     decimal.Decimal
}

// Driver replays all instruments in lockstep over the merged timestamp axis.
//
// Determinism contract: within one timestep instruments are visited in
// ascending symbol order, and for each instrument sell fills are evaluated
// before buy fills, so capital freed by an exit is available to a same-bar
// entry on a later instrument. The engine is fully synchronous; a run
// processes its whole bar range and always returns a report.
type Driver struct {
	params   Params
	pool     *CapitalPool
	coord    *PositionCoordinator
	runs     []*instrumentRun
	timeline []time.Time
	logger   *zap.Logger

	trades    []model.TradeRecord
	equity    []model.EquityPoint
	failures  []model.InstrumentFailure
	stratName string
}

func NewDriver(params Params, series map[string][]model.KLine, logger *zap.Logger) (*Driver, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if len(series) == 0 {
		return nil, errors.New("no bar series supplied")
	}

	symbols := make([]string, 0, len(series))
	for symbol := range series {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	d := &Driver{
		params: params,
		pool:   NewCapitalPool(params.InitialCapital),
		coord:  NewPositionCoordinator(params.MaxPositions, DefaultGate),
		logger: logger,
	}

	seen := make(map[time.Time]struct{})
	for _, symbol := range symbols {
		strat, err := strategy.NewStrategy(params.StrategyType, d.strategyConfig())
		if err != nil {
			return nil, fmt.Errorf("strategy for %s: %w", symbol, err)
		}
		d.stratName = strat.Name()

		run := &instrumentRun{
			symbol:     symbol,
			bars:       series[symbol],
			pipeline:   indicator.NewPipeline(params.ShortPeriod, params.LongPeriod),
			classifier: cycle.NewClassifier(params.Thresholds),
			book:       NewOrderBook(symbol, d.pool, params.FeeRate, logger),
			strat:      strat,
		}
		if len(run.bars) < run.pipeline.MinBars() {
			logger.Warn("series shorter than signal warmup, instrument cannot trade",
				zap.String("symbol", symbol), zap.Int("bars", len(run.bars)), zap.Int("warmup", run.pipeline.MinBars()))
		}
		d.runs = append(d.runs, run)
		for _, bar := range series[symbol] {
			seen[bar.Timestamp] = struct{}{}
		}
	}

	d.timeline = make([]time.Time, 0, len(seen))
	for ts := range seen {
		d.timeline = append(d.timeline, ts)
	}
	sort.Slice(d.timeline, func(i, j int) bool { return d.timeline[i].Before(d.timeline[j]) })

	return d, nil
}

// strategyConfig merges the run-level TP/SL rates into the raw strategy
// config so variants see one flat map.
func (d *Driver) strategyConfig() map[string]interface{} {
	cfg := make(map[string]interface{}, len(d.params.StrategyConfig)+2)
	for k, v := range d.params.StrategyConfig {
		cfg[k] = v
	}
	if _, ok := cfg["take_profit_rate"]; !ok {
		cfg["take_profit_rate"], _ = d.params.TakeProfitRate.Float64()
	}
	if _, ok := cfg["stop_loss_rate"]; !ok {
		cfg["stop_loss_rate"], _ = d.params.StopLossRate.Float64()
	}
	return cfg
}

// Run replays the full timeline. It never returns an error: per-instrument
// failures are recorded in the report and the rest of the run continues.
func (d *Driver) Run() model.BacktestReport {
	for _, ts := range d.timeline {
		for _, run := range d.runs {
			if run.aborted {
				continue
			}
			if run.cursor >= len(run.bars) {
				continue
			}
			if run.bars[run.cursor].Timestamp.Before(ts) {
				// A bar behind the timeline means the series repeated or
				// reordered a timestamp; it could never be reached again.
				d.abort(run, &InvalidBarError{Symbol: run.symbol, BarIndex: run.cursor, Reason: "duplicate or out-of-order timestamp"}, ts)
				continue
			}
			if !run.bars[run.cursor].Timestamp.Equal(ts) {
				// No bar for this instrument at this timestep: skip it
				// entirely, no phase advance and no forced fills.
				continue
			}
			bar := run.bars[run.cursor]
			barIndex := run.cursor
			run.cursor++

			if bar.Malformed() {
				d.abort(run, &InvalidBarError{Symbol: run.symbol, BarIndex: barIndex, Reason: "low > high or non-positive price"}, ts)
				continue
			}
			d.step(run, bar, barIndex)
		}

		d.equity = append(d.equity, model.EquityPoint{Timestamp: ts, Value: d.totalValue()})
		if err := d.pool.Check(); err != nil {
			d.logger.Error("capital invariant check failed", zap.Error(err))
		}
	}

	var end time.Time
	if len(d.timeline) > 0 {
		end = d.timeline[len(d.timeline)-1]
	}
	for _, run := range d.runs {
		if !run.aborted && run.cursor < len(run.bars) {
			// Bars left after the timeline is exhausted can only be
			// out-of-order stragglers.
			d.abort(run, &InvalidBarError{Symbol: run.symbol, BarIndex: run.cursor, Reason: "duplicate or out-of-order timestamp"}, end)
		}
	}

	d.liquidate()
	return d.report()
}

// step runs the documented per-timestep order for one instrument:
// sell fills, buy fills, signal update, sell repricing, stale-buy cancel and
// new placement, stats.
func (d *Driver) step(run *instrumentRun, bar model.KLine, barIndex int) {
	// 1. Sell fills free capital and a position slot first.
	for _, order := range run.book.SellOrders() {
		if !CheckFill(order, bar) {
			continue
		}
		pos := run.takePosition(order.PositionID)
		if pos == nil {
			continue
		}
		d.record(run, run.book.FillSell(order, pos, bar.Timestamp))
		d.coord.Release()
	}

	// 2. Buy fills consume their reserved capital. A fill that would exceed
	// the global cap is cancelled instead, releasing its reservation.
	for _, order := range run.book.PendingBuys() {
		if !CheckFill(order, bar) {
			continue
		}
		if !d.coord.Acquire() {
			run.book.CancelBuy(order)
			infrastructure.OrdersRejected.WithLabelValues("position_cap").Inc()
			continue
		}
		pos, err := run.book.FillBuy(order, bar, barIndex)
		if err != nil {
			d.coord.Release()
			d.logger.Error("buy fill failed", zap.String("symbol", run.symbol), zap.Error(err))
			continue
		}
		run.positions = append(run.positions, pos)
	}

	// 3. Only after fills may the bar update the signals; resting orders were
	// priced from information available before this bar.
	run.snap = run.pipeline.Update(bar)
	run.state = run.classifier.Step(run.snap, bar)
	run.strat.OnBar(bar, run.snap, run.state)

	// 4. Recompute every open position's sell target from the current state.
	for _, pos := range run.positions {
		run.book.PlaceSell(pos, run.strat.ExitTarget(pos, run.state), barIndex)
	}

	// 5. Stale buys from the prior bar are cancelled, then at most one fresh
	// buy is placed at the current close if gating, slots and capital allow.
	run.book.CancelPendingBuys()
	if run.strat.ShouldEnter(run.state, run.snap) && d.coord.EntryAllowed(run.state) {
		amount := d.coord.OrderSize(d.pool.Available())
		if amount.IsPositive() {
			if _, err := run.book.CreateBuyOrder(bar.Close, amount, barIndex); err != nil {
				if errors.Is(err, ErrInsufficientCapital) {
					infrastructure.OrdersRejected.WithLabelValues("insufficient_capital").Inc()
					d.logger.Debug("order skipped", zap.String("symbol", run.symbol), zap.Error(err))
				} else {
					d.logger.Error("order placement failed", zap.String("symbol", run.symbol), zap.Error(err))
				}
			}
		}
	}

	run.lastClose = bar.Close
}

// abort ends one instrument's simulation: resting buys release their
// capital, open positions are force-closed at the last known good price, and
// the failure is itemized in the report. Other instruments are unaffected.
func (d *Driver) abort(run *instrumentRun, cause *InvalidBarError, ts time.Time) {
	run.aborted = true
	run.book.CancelPendingBuys()

	for _, pos := range run.positions {
		price := run.lastClose
		if !price.IsPositive() {
			price = pos.EntryPrice
		}
		d.record(run, run.book.ClosePositionAt(pos, price, ts, "aborted"))
		d.coord.Release()
	}
	run.positions = nil

	d.failures = append(d.failures, model.InstrumentFailure{
		Symbol:   cause.Symbol,
		BarIndex: cause.BarIndex,
		Reason:   cause.Reason,
	})
	d.logger.Warn("instrument aborted", zap.String("symbol", cause.Symbol), zap.Int("bar", cause.BarIndex), zap.String("reason", cause.Reason))
}

// liquidate closes whatever is still open at each instrument's final close
// so the report compares like with like.
func (d *Driver) liquidate() {
	var ts time.Time
	if len(d.timeline) > 0 {
		ts = d.timeline[len(d.timeline)-1]
	}
	for _, run := range d.runs {
		run.book.CancelPendingBuys()
		for _, pos := range run.positions {
			price := run.lastClose
			if !price.IsPositive() {
				price = pos.EntryPrice
			}
			d.record(run, run.book.ClosePositionAt(pos, price, ts, "end_of_data"))
			d.coord.Release()
		}
		run.positions = nil
	}
}

func (d *Driver) record(run *instrumentRun, trade model.TradeRecord) {
	d.trades = append(d.trades, trade)
	run.trades++
	if trade.PnL.IsPositive() {
		run.wins++
	}
	run.netPnL = run.netPnL.Add(trade.PnL)
	infrastructure.TradesSimulated.WithLabelValues(trade.Symbol).Inc()
}

// totalValue is pool capital plus every open position marked at its
// instrument's latest close.
func (d *Driver) totalValue() decimal.Decimal {
	total := d.pool.Available().Add(d.pool.Frozen())
	for _, run := range d.runs {
		for _, pos := range run.positions {
			mark := run.lastClose
			if !mark.IsPositive() {
				mark = pos.EntryPrice
			}
			total = total.Add(pos.Quantity.Mul(mark))
		}
	}
	return total
}

func (run *instrumentRun) takePosition(id string) *model.Position {
	for i, pos := range run.positions {
		if pos.ID == id {
			run.positions = append(run.positions[:i], run.positions[i+1:]...)
			return pos
		}
	}
	return nil
}

func (d *Driver) report() model.BacktestReport {
	initial := d.params.InitialCapital
	final := d.pool.Total()

	wins := 0
	totalProfit := decimal.Zero
	for _, trade := range d.trades {
		if trade.PnL.IsPositive() {
			wins++
		}
		totalProfit = totalProfit.Add(trade.PnL)
	}
	winRate := 0.0
	if len(d.trades) > 0 {
		winRate = float64(wins) / float64(len(d.trades))
	}

	instruments := make(map[string]model.InstrumentSummary, len(d.runs))
	for _, run := range d.runs {
		rate := 0.0
		if run.trades > 0 {
			rate = float64(run.wins) / float64(run.trades)
		}
		st := run.classifier.State()
		instruments[run.symbol] = model.InstrumentSummary{
			Symbol:        run.symbol,
			TotalTrades:   run.trades,
			WinRate:       rate,
			NetPnL:        run.netPnL,
			Aborted:       run.aborted,
			FinalPhase:    string(st.Phase),
			PhaseBars:     st.Streak.Length,
			PhaseExtremum: st.Streak.Extremum,
		}
	}

	maxDD, _ := d.maxDrawdown().Float64()

	return model.BacktestReport{
		StrategyName:   d.stratName,
		TotalTrades:    len(d.trades),
		WinRate:        winRate,
		TotalReturn:    final.Sub(initial).Div(initial),
		TotalProfit:    totalProfit,
		MaxDrawdown:    maxDD,
		SharpRatio:     d.sharpeRatio(),
		InitialCapital: initial,
		FinalCapital:   final,
		TradesLog:      d.trades,
		EquityCurve:    d.equity,
		Instruments:    instruments,
		Failures:       d.failures,
	}
}

func (d *Driver) maxDrawdown() decimal.Decimal {
	if len(d.equity) == 0 {
		return decimal.Zero
	}
	maxEquity := d.equity[0].Value
	maxDD := decimal.Zero
	for _, point := range d.equity {
		if point.Value.GreaterThan(maxEquity) {
			maxEquity = point.Value
		}
		dd := maxEquity.Sub(point.Value).Div(maxEquity)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

func (d *Driver) sharpeRatio() float64 {
	if len(d.equity) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(d.equity)-1)
	for i := 1; i < len(d.equity); i++ {
		prev := d.equity[i-1].Value
		if prev.IsZero() {
			continue
		}
		r, _ := d.equity[i].Value.Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	avg := sum / float64(len(returns))

	var sumSqDiff float64
	for _, r := range returns {
		diff := r - avg
		sumSqDiff += diff * diff
	}
	stdDev := math.Sqrt(sumSqDiff / float64(len(returns)))
	if stdDev == 0 {
		return 0
	}
	return avg / stdDev
}
