package processor

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"cycle-trader/internal/model"
)

// Resampler aggregates fine-grained bars into the coarser period a backtest
// runs on, e.g. stored 1m bars into 1h working bars. Input order does not
// matter; output is ascending by timestamp with OHLC taken from the first,
// extreme and last source bars of each window.
type Resampler struct {
	window time.Duration
	period string
	logger *zap.Logger
}

func NewResampler(window time.Duration, logger *zap.Logger) (*Resampler, error) {
	if window <= 0 {
		return nil, fmt.Errorf("resample window must be positive, got %s", window)
	}
	return &Resampler{
		window: window,
		period: periodLabel(window),
		logger: logger,
	}, nil
}

func (r *Resampler) Resample(bars []model.KLine) []model.KLine {
	if len(bars) == 0 {
		return nil
	}

	sorted := make([]model.KLine, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	out := make([]model.KLine, 0, len(sorted))
	var cur *model.KLine

	for _, bar := range sorted {
		window := bar.Timestamp.Truncate(r.window)
		if cur == nil || !cur.Timestamp.Equal(window) {
			if cur != nil {
				out = append(out, *cur)
			}
			agg := bar
			agg.Timestamp = window
			agg.Period = r.period
			cur = &agg
			continue
		}
		if bar.High.GreaterThan(cur.High) {
			cur.High = bar.High
		}
		if bar.Low.LessThan(cur.Low) {
			cur.Low = bar.Low
		}
		cur.Close = bar.Close
		cur.Volume = cur.Volume.Add(bar.Volume)
	}
	out = append(out, *cur)

	r.logger.Debug("resampled bars",
		zap.Int("in", len(bars)),
		zap.Int("out", len(out)),
		zap.String("period", r.period),
	)
	return out
}

func periodLabel(window time.Duration) string {
	switch {
	case window%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", window/(24*time.Hour))
	case window%time.Hour == 0:
		return fmt.Sprintf("%dh", window/time.Hour)
	default:
		return fmt.Sprintf("%dm", window/time.Minute)
	}
}
