package cycle

import (
	"time"

	"github.com/shopspring/decimal"

	"cycle-trader/internal/indicator"
	"cycle-trader/internal/model"
)

// Thresholds are the bull-side trigger levels; the bear side mirrors them
// with inverted comparisons. Warning must be crossed with a rising trend to
// enter a warning phase, Strong confirms it, and falling to Exit or below
// ends the cycle.
type Thresholds struct {
	Warning float64 `json:"warning"`
	Strong  float64 `json:"strong"`
	Exit    float64 `json:"exit"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 600, Strong: 1000, Exit: 0}
}

// Streak tracks how long the current phase has persisted and the best trend
// value reached inside it (highest for bull phases, lowest for bear phases).
// It resets whenever the phase changes.
type Streak struct {
	Phase      Phase           `json:"phase"`
	StartBar   int             `json:"start_bar"`
	StartTime  time.Time       `json:"start_time"`
	StartPrice decimal.Decimal `json:"start_price"`
	Extremum   float64         `json:"extremum"`
	Length     int             `json:"length"`
}

// State is the classifier output for one bar.
type State struct {
	Phase     Phase  `json:"phase"`
	Confirmed bool   `json:"confirmed"`
	Streak    Streak `json:"streak"`
}

// Classifier is a per-instrument hysteresis state machine. Each bar's label
// depends only on that bar's signal and the previous bar's state; it never
// revises earlier labels and never errors. A not-ready snapshot maps to
// consolidation, unconfirmed.
type Classifier struct {
	thresholds Thresholds
	state      State
	barIndex   int
}

func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{
		thresholds: t,
		state: State{
			Phase:  PhaseConsolidation,
			Streak: Streak{Phase: PhaseConsolidation},
		},
		barIndex: -1,
	}
}

// State returns the label produced by the most recent Step.
func (c *Classifier) State() State {
	return c.state
}

func (c *Classifier) Step(snap indicator.Snapshot, bar model.KLine) State {
	c.barIndex++

	if !snap.Ready {
		// Insufficient history: hold in consolidation without advancing the
		// machine; any prior streak is abandoned.
		c.reset(PhaseConsolidation, bar)
		return c.state
	}

	next := c.transition(c.state.Phase, snap.TrendValue, snap.TrendDelta)
	if next != c.state.Phase || c.state.Streak.Length == 0 {
		c.reset(next, bar)
		c.state.Streak.Extremum = snap.TrendValue
	} else {
		c.state.Streak.Length++
		c.updateExtremum(snap.TrendValue)
	}
	c.state.Confirmed = next == PhaseBullStrong || next == PhaseBearStrong
	return c.state
}

// transition implements the hysteresis table. Comparison operators are part
// of the contract: a trend sitting exactly on Warning or Strong does not
// trigger, a trend exactly on Exit does.
func (c *Classifier) transition(cur Phase, trend, delta float64) Phase {
	t := c.thresholds
	switch cur {
	case PhaseConsolidation:
		if trend > t.Warning && delta > 0 {
			return PhaseBullWarning
		}
		if trend < -t.Warning && delta < 0 {
			return PhaseBearWarning
		}
	case PhaseBullWarning:
		if trend > t.Strong {
			return PhaseBullStrong
		}
		if trend <= t.Exit {
			return PhaseConsolidation
		}
	case PhaseBullStrong:
		if trend <= t.Exit {
			return PhaseConsolidation
		}
	case PhaseBearWarning:
		if trend < -t.Strong {
			return PhaseBearStrong
		}
		if trend >= -t.Exit {
			return PhaseConsolidation
		}
	case PhaseBearStrong:
		if trend >= -t.Exit {
			return PhaseConsolidation
		}
	}
	return cur
}

func (c *Classifier) reset(phase Phase, bar model.KLine) {
	c.state.Phase = phase
	c.state.Confirmed = false
	c.state.Streak = Streak{
		Phase:      phase,
		StartBar:   c.barIndex,
		StartTime:  bar.Timestamp,
		StartPrice: bar.Close,
		Length:     1,
	}
}

func (c *Classifier) updateExtremum(trend float64) {
	s := &c.state.Streak
	switch {
	case c.state.Phase.Bearish():
		if trend < s.Extremum {
			s.Extremum = trend
		}
	default:
		if trend > s.Extremum {
			s.Extremum = trend
		}
	}
}
