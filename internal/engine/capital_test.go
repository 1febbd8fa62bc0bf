package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestCapitalPool_FreezeUnfreeze(t *testing.T) {
	pool := NewCapitalPool(d(10000))

	assert.NoError(t, pool.Freeze(d(4000)))
	assert.True(t, pool.Available().Equal(d(6000)))
	assert.True(t, pool.Frozen().Equal(d(4000)))
	assert.NoError(t, pool.Check())

	assert.NoError(t, pool.Unfreeze(d(4000)))
	assert.True(t, pool.Available().Equal(d(10000)))
	assert.True(t, pool.Frozen().IsZero())
	assert.NoError(t, pool.Check())
}

func TestCapitalPool_InsufficientCapitalLeavesPoolUntouched(t *testing.T) {
	pool := NewCapitalPool(d(1000))

	err := pool.Freeze(d(1001))
	assert.ErrorIs(t, err, ErrInsufficientCapital)
	assert.True(t, pool.Available().Equal(d(1000)))
	assert.True(t, pool.Frozen().IsZero())
	assert.NoError(t, pool.Check())
}

func TestCapitalPool_ConsumeAndDeposit(t *testing.T) {
	pool := NewCapitalPool(d(10000))

	assert.NoError(t, pool.Freeze(d(5000)))
	assert.NoError(t, pool.ConsumeFrozen(d(5000)))
	assert.True(t, pool.Total().Equal(d(5000)), "consumed capital leaves the pool")
	assert.NoError(t, pool.Check())

	pool.Deposit(d(5500))
	assert.True(t, pool.Total().Equal(d(10500)))
	assert.True(t, pool.Available().Equal(d(10500)))
	assert.NoError(t, pool.Check())
}

func TestCapitalPool_OverUnfreezeRejected(t *testing.T) {
	pool := NewCapitalPool(d(1000))
	assert.NoError(t, pool.Freeze(d(300)))

	assert.Error(t, pool.Unfreeze(d(301)))
	assert.Error(t, pool.ConsumeFrozen(d(301)))
	assert.NoError(t, pool.Check())
}

func TestCapitalPool_InvariantHeldAcrossMutationSequence(t *testing.T) {
	pool := NewCapitalPool(d(10000))

	steps := []func() error{
		func() error { return pool.Freeze(d(2500)) },
		func() error { return pool.Freeze(d(2500)) },
		func() error { return pool.ConsumeFrozen(d(2500)) },
		func() error { return pool.Unfreeze(d(2500)) },
		func() error { pool.Deposit(d(2600)); return nil },
	}
	for i, step := range steps {
		assert.NoError(t, step(), "step %d", i)
		assert.NoError(t, pool.Check(), "invariant after step %d", i)
	}
}
