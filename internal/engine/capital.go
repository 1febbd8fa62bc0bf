package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CapitalPool is the single shared capital ledger for a run. Capital is
// global, not partitioned per instrument. Every mutation preserves
// available + frozen == total; Check exists so callers can assert it.
//
// The pool is not safe for concurrent use: the reference driver is
// single-threaded, and any parallel port must route mutations through one
// mutual-exclusion boundary.
type CapitalPool struct {
	total     decimal.Decimal
	available decimal.Decimal
	frozen    decimal.Decimal
}

func NewCapitalPool(total decimal.Decimal) *CapitalPool {
	return &CapitalPool{
		total:     total,
		available: total,
		frozen:    decimal.Zero,
	}
}

func (p *CapitalPool) Total() decimal.Decimal     { return p.total }
func (p *CapitalPool) Available() decimal.Decimal { return p.available }
func (p *CapitalPool) Frozen() decimal.Decimal    { return p.frozen }

// Freeze reserves amount against a pending order. On ErrInsufficientCapital
// the pool is untouched.
func (p *CapitalPool) Freeze(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("freeze amount must be positive, got %s", amount)
	}
	if amount.GreaterThan(p.available) {
		return fmt.Errorf("%w: need %s, available %s", ErrInsufficientCapital, amount, p.available)
	}
	p.available = p.available.Sub(amount)
	p.frozen = p.frozen.Add(amount)
	return nil
}

// Unfreeze returns reserved capital to the available balance (order cancel).
func (p *CapitalPool) Unfreeze(amount decimal.Decimal) error {
	if amount.GreaterThan(p.frozen) {
		return fmt.Errorf("unfreeze %s exceeds frozen %s", amount, p.frozen)
	}
	p.frozen = p.frozen.Sub(amount)
	p.available = p.available.Add(amount)
	return nil
}

// ConsumeFrozen spends reserved capital on a buy fill: the money leaves the
// pool and becomes position cost basis, so total shrinks by the same amount.
func (p *CapitalPool) ConsumeFrozen(amount decimal.Decimal) error {
	if amount.GreaterThan(p.frozen) {
		return fmt.Errorf("consume %s exceeds frozen %s", amount, p.frozen)
	}
	p.frozen = p.frozen.Sub(amount)
	p.total = p.total.Sub(amount)
	return nil
}

// Deposit returns sell proceeds to the pool.
func (p *CapitalPool) Deposit(amount decimal.Decimal) {
	p.available = p.available.Add(amount)
	p.total = p.total.Add(amount)
}

// Check verifies the conservation invariant.
func (p *CapitalPool) Check() error {
	if !p.available.Add(p.frozen).Equal(p.total) {
		return fmt.Errorf("capital invariant violated: available %s + frozen %s != total %s",
			p.available, p.frozen, p.total)
	}
	if p.available.IsNegative() || p.frozen.IsNegative() {
		return fmt.Errorf("negative balance: available %s, frozen %s", p.available, p.frozen)
	}
	return nil
}
