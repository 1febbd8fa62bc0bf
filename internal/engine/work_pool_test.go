package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"cycle-trader/internal/model"
)

func TestJobPool_RunsSubmittedBacktest(t *testing.T) {
	results := make(chan model.BacktestReport, 1)
	pool := NewJobPool(1, 4, func(job Job, report model.BacktestReport) {
		results <- report
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	ok := pool.Submit(Job{
		ID:     "job-1",
		Params: testParams(),
		Series: map[string][]model.KLine{
			"BTCUSDT": series("BTCUSDT", []float64{100, 101, 102, 103, 104, 105, 106, 107}),
		},
	})
	assert.True(t, ok)

	select {
	case report := <-results:
		assert.NotEmpty(t, report.TradesLog)
		assert.True(t, report.FinalCapital.Equal(report.InitialCapital.Add(report.TotalProfit)))
	case <-time.After(5 * time.Second):
		t.Fatal("backtest job did not complete")
	}
}

func TestJobPool_RejectsWhenQueueFull(t *testing.T) {
	// Pool never started: queue of one fills immediately.
	pool := NewJobPool(1, 1, nil, zap.NewNop())

	assert.True(t, pool.Submit(Job{ID: "a"}))
	assert.False(t, pool.Submit(Job{ID: "b"}))
}
