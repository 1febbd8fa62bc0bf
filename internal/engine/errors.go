package engine

import (
	"errors"
	"fmt"
)

// ErrInsufficientCapital is returned when an order cannot be funded from the
// pool. It is an expected, frequent outcome: callers skip placement for that
// bar and carry on.
var ErrInsufficientCapital = errors.New("insufficient capital")

// InvalidBarError aborts the affected instrument's simulation; other
// instruments continue and the failure is itemized in the report.
type InvalidBarError struct {
	Symbol   string
	BarIndex int
	Reason   string
}

func (e *InvalidBarError) Error() string {
	return fmt.Sprintf("invalid bar for %s at index %d: %s", e.Symbol, e.BarIndex, e.Reason)
}
