package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"cycle-trader/internal/model"
)

// ReportStore persists finished backtest reports as JSON documents keyed by
// job ID.
type ReportStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewReportStore(pool *pgxpool.Pool, logger *zap.Logger) *ReportStore {
	return &ReportStore{pool: pool, logger: logger}
}

func (s *ReportStore) Save(ctx context.Context, jobID string, report model.BacktestReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO backtest_reports (job_id, strategy, report, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (job_id) DO UPDATE SET report = EXCLUDED.report`,
		jobID, report.StrategyName, data)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Debug("report saved", zap.String("job_id", jobID))
	return nil
}

func (s *ReportStore) Get(ctx context.Context, jobID string) (model.BacktestReport, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		"SELECT report FROM backtest_reports WHERE job_id = $1", jobID).Scan(&data)
	if err != nil {
		return model.BacktestReport{}, fmt.Errorf("report %s not found: %w", jobID, err)
	}

	var report model.BacktestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return model.BacktestReport{}, fmt.Errorf("failed to decode report %s: %w", jobID, err)
	}
	return report, nil
}
