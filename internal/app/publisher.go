package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cycle-trader/internal/engine"
	"cycle-trader/internal/model"
)

// publishResult runs on a job-pool worker after each backtest finishes: it
// persists the report and pushes the trade log and summary onto the
// BACKTEST stream for websocket consumers.
func (a *App) publishResult(job engine.Job, report model.BacktestReport) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Reports.Save(ctx, job.ID, report); err != nil {
		a.Logger.Error("failed to persist report", zap.String("job_id", job.ID), zap.Error(err))
	}

	for _, trade := range report.TradesLog {
		subject := fmt.Sprintf("backtest.trades.%s", trade.Symbol)
		data, err := json.Marshal(trade)
		if err != nil {
			a.Logger.Error("failed to marshal trade", zap.Error(err))
			continue
		}
		if _, err := a.JS.Publish(subject, data); err != nil {
			a.Logger.Error("failed to publish trade", zap.String("subject", subject), zap.Error(err))
		}
	}

	summary := struct {
		JobID  string               `json:"job_id"`
		Report model.BacktestReport `json:"report"`
	}{JobID: job.ID, Report: report}

	data, err := json.Marshal(summary)
	if err != nil {
		a.Logger.Error("failed to marshal report", zap.Error(err))
		return
	}
	subject := fmt.Sprintf("backtest.reports.%s", job.ID)
	if _, err := a.JS.Publish(subject, data); err != nil {
		a.Logger.Error("failed to publish report", zap.String("subject", subject), zap.Error(err))
	}
}
