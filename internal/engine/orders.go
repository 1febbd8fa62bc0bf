package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cycle-trader/internal/model"
)

// OrderBook is the per-instrument limit-order manager. It owns the resting
// buy and sell orders for one symbol and is the only component that moves
// capital in and out of the shared pool.
type OrderBook struct {
	symbol  string
	pool    *CapitalPool
	feeRate decimal.Decimal
	buys    []*model.PendingOrder
	sells   []*model.PendingOrder // at most one per open position, in entry order
	logger  *zap.Logger
}

func NewOrderBook(symbol string, pool *CapitalPool, feeRate decimal.Decimal, logger *zap.Logger) *OrderBook {
	return &OrderBook{
		symbol:  symbol,
		pool:    pool,
		feeRate: feeRate,
		logger:  logger,
	}
}

// CheckFill reports whether a resting order fills against a bar: the limit
// price must sit inside the bar's range, boundaries included.
func CheckFill(order *model.PendingOrder, bar model.KLine) bool {
	return bar.Low.LessThanOrEqual(order.Price) && order.Price.LessThanOrEqual(bar.High)
}

// CreateBuyOrder reserves amount from the pool and rests a buy at price.
// Quantity is sized so that amount covers both the fill and its fee; with a
// zero fee rate it reduces to amount/price. On ErrInsufficientCapital nothing
// changes.
func (b *OrderBook) CreateBuyOrder(price, amount decimal.Decimal, barIndex int) (*model.PendingOrder, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("buy price must be positive, got %s", price)
	}
	if err := b.pool.Freeze(amount); err != nil {
		return nil, err
	}

	qty := amount.Div(price.Mul(decimal.NewFromInt(1).Add(b.feeRate)))
	order := &model.PendingOrder{
		ID:         uuid.NewString(),
		Symbol:     b.symbol,
		Side:       model.SideBuy,
		Price:      price,
		Quantity:   qty,
		Frozen:     amount,
		CreatedBar: barIndex,
	}
	b.buys = append(b.buys, order)

	b.logger.Debug("buy order placed",
		zap.String("symbol", b.symbol),
		zap.String("price", price.String()),
		zap.String("amount", amount.String()),
	)
	return order, nil
}

// CancelPendingBuys unfreezes capital for every resting buy and returns the
// released amount. Calling it again in the same bar is a no-op.
func (b *OrderBook) CancelPendingBuys() decimal.Decimal {
	released := decimal.Zero
	for _, order := range b.buys {
		if err := b.pool.Unfreeze(order.Frozen); err != nil {
			b.logger.Error("unfreeze failed on cancel", zap.String("order", order.ID), zap.Error(err))
			continue
		}
		released = released.Add(order.Frozen)
	}
	b.buys = b.buys[:0]
	return released
}

// PendingBuys returns the resting buys in creation order.
func (b *OrderBook) PendingBuys() []*model.PendingOrder {
	out := make([]*model.PendingOrder, len(b.buys))
	copy(out, b.buys)
	return out
}

// FillBuy converts a resting buy into a position, consuming its reserved
// capital. The entry fee is paid out of the frozen amount, so cost basis and
// frozen amount are identical and conservation stays exact.
func (b *OrderBook) FillBuy(order *model.PendingOrder, bar model.KLine, barIndex int) (*model.Position, error) {
	if err := b.pool.ConsumeFrozen(order.Frozen); err != nil {
		return nil, err
	}
	b.removeBuy(order.ID)

	fee := order.Quantity.Mul(order.Price).Mul(b.feeRate)
	pos := &model.Position{
		ID:         uuid.NewString(),
		Symbol:     b.symbol,
		EntryPrice: order.Price,
		EntryBar:   barIndex,
		EntryTime:  bar.Timestamp,
		Quantity:   order.Quantity,
		CostBasis:  order.Frozen,
		EntryFee:   fee,
	}

	b.logger.Debug("buy filled",
		zap.String("symbol", b.symbol),
		zap.String("price", order.Price.String()),
		zap.String("qty", order.Quantity.String()),
	)
	return pos, nil
}

// CancelBuy drops a single resting buy and releases its capital. Used when a
// fill would exceed the global position cap.
func (b *OrderBook) CancelBuy(order *model.PendingOrder) {
	if err := b.pool.Unfreeze(order.Frozen); err != nil {
		b.logger.Error("unfreeze failed", zap.String("order", order.ID), zap.Error(err))
		return
	}
	b.removeBuy(order.ID)
}

// PlaceSell rests one sell order for a position at the given target,
// replacing any previous target for the same position. Targets are recomputed
// every bar by the strategy's repricing policy; no capital moves, the
// position itself backs the order.
func (b *OrderBook) PlaceSell(pos *model.Position, target decimal.Decimal, barIndex int) {
	for _, order := range b.sells {
		if order.PositionID == pos.ID {
			order.Price = target
			return
		}
	}
	b.sells = append(b.sells, &model.PendingOrder{
		ID:         uuid.NewString(),
		Symbol:     b.symbol,
		Side:       model.SideSell,
		Price:      target,
		Quantity:   pos.Quantity,
		CreatedBar: barIndex,
		PositionID: pos.ID,
	})
}

// SellOrders returns resting sells in position-entry order.
func (b *OrderBook) SellOrders() []*model.PendingOrder {
	out := make([]*model.PendingOrder, len(b.sells))
	copy(out, b.sells)
	return out
}

// FillSell closes the order's position at the order price, deposits the net
// proceeds and emits the trade record. PnL is proceeds minus cost basis, so a
// round trip at an unchanged price loses exactly the two fees.
func (b *OrderBook) FillSell(order *model.PendingOrder, pos *model.Position, ts time.Time) model.TradeRecord {
	return b.closeAt(pos, order.Price, ts, b.exitReason(pos, order.Price))
}

// ClosePositionAt force-closes a position outside the resting-order path
// (end-of-data liquidation, instrument abort).
func (b *OrderBook) ClosePositionAt(pos *model.Position, price decimal.Decimal, ts time.Time, reason string) model.TradeRecord {
	return b.closeAt(pos, price, ts, reason)
}

func (b *OrderBook) closeAt(pos *model.Position, price decimal.Decimal, ts time.Time, reason string) model.TradeRecord {
	b.dropSellFor(pos.ID)

	gross := pos.Quantity.Mul(price)
	fee := gross.Mul(b.feeRate)
	proceeds := gross.Sub(fee)
	b.pool.Deposit(proceeds)

	trade := model.TradeRecord{
		Symbol:     b.symbol,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		EntryTime:  pos.EntryTime,
		ExitTime:   ts,
		Quantity:   pos.Quantity,
		PnL:        proceeds.Sub(pos.CostBasis),
		Fees:       pos.EntryFee.Add(fee),
		ExitReason: reason,
	}

	b.logger.Debug("position closed",
		zap.String("symbol", b.symbol),
		zap.String("exit", price.String()),
		zap.String("pnl", trade.PnL.String()),
		zap.String("reason", reason),
	)
	return trade
}

func (b *OrderBook) exitReason(pos *model.Position, exit decimal.Decimal) string {
	if exit.GreaterThanOrEqual(pos.EntryPrice) {
		return "take_profit"
	}
	return "stop_loss"
}

func (b *OrderBook) removeBuy(id string) {
	for i, order := range b.buys {
		if order.ID == id {
			b.buys = append(b.buys[:i], b.buys[i+1:]...)
			return
		}
	}
}

func (b *OrderBook) dropSellFor(positionID string) {
	for i, order := range b.sells {
		if order.PositionID == positionID {
			b.sells = append(b.sells[:i], b.sells[i+1:]...)
			return
		}
	}
}
