package indicator

import (
	"math"

	"cycle-trader/internal/model"
)

// Snapshot is the per-bar signal bundle handed to the cycle classifier.
// Ready is false until the trailing window has filled; consumers must treat
// a not-ready snapshot as "no signal" and suppress order placement.
type Snapshot struct {
	TrendValue float64
	TrendDelta float64
	Volatility float64
	Ready      bool
}

// Pipeline computes a smoothed trend spread and a volatility estimate from a
// bounded trailing window of closes. It is a pure accumulator: one Update per
// bar, no rescans of full history.
//
// TrendValue is the short/long moving-average spread normalized by the long
// average and scaled by 1e4, so classifier thresholds are independent of the
// instrument's price scale (600 ≈ a 6% spread).
type Pipeline struct {
	shortPeriod int
	longPeriod  int
	closes      []float64
	prevTrend   float64
}

func NewPipeline(shortPeriod, longPeriod int) *Pipeline {
	if shortPeriod >= longPeriod {
		shortPeriod = longPeriod / 2
	}
	if shortPeriod < 1 {
		shortPeriod = 1
	}
	return &Pipeline{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		closes:      make([]float64, 0, longPeriod+1),
	}
}

// MinBars is the number of bars required before Update reports Ready.
func (p *Pipeline) MinBars() int {
	return p.longPeriod
}

func (p *Pipeline) Update(bar model.KLine) Snapshot {
	c, _ := bar.Close.Float64()
	p.closes = append(p.closes, c)
	if len(p.closes) > p.longPeriod+1 {
		p.closes = p.closes[1:]
	}

	if len(p.closes) < p.longPeriod {
		return Snapshot{}
	}

	shortMA := p.mean(p.shortPeriod)
	longMA := p.mean(p.longPeriod)

	trend := 0.0
	if longMA != 0 {
		trend = (shortMA - longMA) / longMA * 1e4
	}
	delta := trend - p.prevTrend
	p.prevTrend = trend

	return Snapshot{
		TrendValue: trend,
		TrendDelta: delta,
		Volatility: p.volatility(),
		Ready:      true,
	}
}

func (p *Pipeline) mean(period int) float64 {
	data := p.closes[len(p.closes)-period:]
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(period)
}

// volatility is the standard deviation of per-bar returns over the window,
// scaled like TrendValue.
func (p *Pipeline) volatility() float64 {
	if len(p.closes) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(p.closes)-1)
	for i := 1; i < len(p.closes); i++ {
		if p.closes[i-1] == 0 {
			continue
		}
		returns = append(returns, p.closes[i]/p.closes[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq/float64(len(returns))) * 1e4
}
