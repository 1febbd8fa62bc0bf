package engine

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"cycle-trader/internal/model"
)

type DataLoader struct {
	pool *pgxpool.Pool
}

func NewDataLoader(pool *pgxpool.Pool) *DataLoader {
	return &DataLoader{pool: pool}
}

func (l *DataLoader) LoadCandles(ctx context.Context, symbol string, start, end time.Time, period string) ([]model.KLine, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT time, symbol, exchange, period, open, high, low, close, volume
		FROM market_klines
		WHERE symbol = $1 AND period = $2 AND time >= $3 AND time <= $4
		ORDER BY time ASC`,
		symbol, period, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []model.KLine
	for rows.Next() {
		var k model.KLine
		if err := rows.Scan(&k.Timestamp, &k.Symbol, &k.Exchange, &k.Period, &k.Open, &k.High, &k.Low, &k.Close, &k.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, k)
	}
	return candles, nil
}

// LoadSeries loads the bar sequence for every requested symbol. The driver
// replays the map in ascending symbol order regardless of request order.
func (l *DataLoader) LoadSeries(ctx context.Context, symbols []string, start, end time.Time, period string) (map[string][]model.KLine, error) {
	series := make(map[string][]model.KLine, len(symbols))
	for _, symbol := range symbols {
		candles, err := l.LoadCandles(ctx, symbol, start, end, period)
		if err != nil {
			return nil, err
		}
		series[symbol] = candles
	}
	return series, nil
}
