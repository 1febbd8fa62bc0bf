package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cycle-trader/internal/infrastructure"
	"cycle-trader/internal/model"
)

// Job is one queued backtest request. Each job runs on a single worker:
// the engine itself stays strictly synchronous, parallelism exists only
// across independent jobs.
type Job struct {
	ID     string
	Params Params
	Series map[string][]model.KLine
}

// ResultFunc receives each finished report; it runs on the worker goroutine.
type ResultFunc func(job Job, report model.BacktestReport)

type JobPool struct {
	jobQueue    chan Job
	workerCount int
	onResult    ResultFunc
	logger      *zap.Logger
}

func NewJobPool(workerCount int, bufferSize int, onResult ResultFunc, logger *zap.Logger) *JobPool {
	return &JobPool{
		jobQueue:    make(chan Job, bufferSize),
		workerCount: workerCount,
		onResult:    onResult,
		logger:      logger,
	}
}

func (p *JobPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(ctx, i)
	}
	p.logger.Info("started backtest job pool", zap.Int("workers", p.workerCount))
}

// Submit enqueues a job. It reports false when the queue is full.
func (p *JobPool) Submit(job Job) bool {
	select {
	case p.jobQueue <- job:
		infrastructure.JobQueueDepth.Inc()
		return true
	default:
		p.logger.Warn("job queue full, rejecting backtest", zap.String("job_id", job.ID))
		return false
	}
}

func (p *JobPool) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			infrastructure.JobQueueDepth.Dec()
			p.process(id, job)
		}
	}
}

func (p *JobPool) process(workerID int, job Job) {
	started := time.Now()

	driver, err := NewDriver(job.Params, job.Series, p.logger)
	if err != nil {
		p.logger.Error("failed to build driver",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return
	}

	report := driver.Run()
	infrastructure.BacktestRuns.WithLabelValues(report.StrategyName).Inc()
	infrastructure.BacktestDuration.Observe(time.Since(started).Seconds())

	p.logger.Info("backtest finished",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID),
		zap.Int("trades", report.TotalTrades),
		zap.String("final_capital", report.FinalCapital.String()),
	)

	if p.onResult != nil {
		p.onResult(job, report)
	}
}
