package cycle

// Phase is the macro-cycle label assigned to each bar.
type Phase string

const (
	PhaseConsolidation Phase = "consolidation"
	PhaseBullWarning   Phase = "bull_warning"
	PhaseBullStrong    Phase = "bull_strong"
	PhaseBearWarning   Phase = "bear_warning"
	PhaseBearStrong    Phase = "bear_strong"
)

func (p Phase) Bullish() bool {
	return p == PhaseBullWarning || p == PhaseBullStrong
}

func (p Phase) Bearish() bool {
	return p == PhaseBearWarning || p == PhaseBearStrong
}
