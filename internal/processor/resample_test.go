package processor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"cycle-trader/internal/model"
)

func minuteBar(t0 time.Time, minute int, open, high, low, close, volume float64) model.KLine {
	return model.KLine{
		Symbol:    "BTCUSDT",
		Exchange:  "binance",
		Period:    "1m",
		Open:      decimal.NewFromFloat(open),
		High:      decimal.NewFromFloat(high),
		Low:       decimal.NewFromFloat(low),
		Close:     decimal.NewFromFloat(close),
		Volume:    decimal.NewFromFloat(volume),
		Timestamp: t0.Add(time.Duration(minute) * time.Minute),
	}
}

func TestResampler_AggregatesWindow(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r, err := NewResampler(time.Hour, zap.NewNop())
	assert.NoError(t, err)

	bars := []model.KLine{
		minuteBar(t0, 0, 50000, 50000, 50000, 50000, 1),
		minuteBar(t0, 20, 50000, 50100, 49950, 50100, 0.5),
		minuteBar(t0, 59, 50100, 50100, 49900, 49900, 2),
	}

	out := r.Resample(bars)
	assert.Len(t, out, 1)

	candle := out[0]
	assert.Equal(t, "1h", candle.Period)
	assert.Equal(t, t0, candle.Timestamp)
	assert.True(t, candle.Open.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, candle.High.Equal(decimal.NewFromFloat(50100)))
	assert.True(t, candle.Low.Equal(decimal.NewFromFloat(49900)))
	assert.True(t, candle.Close.Equal(decimal.NewFromFloat(49900)))
	assert.True(t, candle.Volume.Equal(decimal.NewFromFloat(3.5)))
}

func TestResampler_SplitsAcrossWindows(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r, err := NewResampler(time.Hour, zap.NewNop())
	assert.NoError(t, err)

	bars := []model.KLine{
		minuteBar(t0, 5, 100, 101, 99, 100, 1),
		minuteBar(t0, 65, 102, 103, 101, 103, 1),
		minuteBar(t0, 125, 104, 105, 103, 104, 1),
	}

	out := r.Resample(bars)
	assert.Len(t, out, 3)
	assert.Equal(t, t0, out[0].Timestamp)
	assert.Equal(t, t0.Add(time.Hour), out[1].Timestamp)
	assert.Equal(t, t0.Add(2*time.Hour), out[2].Timestamp)
}

func TestResampler_UnsortedInput(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r, err := NewResampler(time.Hour, zap.NewNop())
	assert.NoError(t, err)

	bars := []model.KLine{
		minuteBar(t0, 59, 50100, 50100, 49900, 49900, 2),
		minuteBar(t0, 0, 50000, 50000, 50000, 50000, 1),
	}

	out := r.Resample(bars)
	assert.Len(t, out, 1)
	assert.True(t, out[0].Open.Equal(decimal.NewFromFloat(50000)), "open comes from the earliest bar")
	assert.True(t, out[0].Close.Equal(decimal.NewFromFloat(49900)), "close comes from the latest bar")
}

func TestResampler_EmptyAndInvalid(t *testing.T) {
	r, err := NewResampler(time.Hour, zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, r.Resample(nil))

	_, err = NewResampler(0, zap.NewNop())
	assert.Error(t, err)
}
