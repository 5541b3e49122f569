package training

import (
	"math"
)

// EarlyStopping tracks the best validation loss seen so far and signals a
// halt after `patience` consecutive epochs without strict improvement. A
// tie with the current best counts as non-improvement, for both the halt
// decision and best tracking, so the two can never disagree.
type EarlyStopping struct {
	best     float64
	counter  int
	patience int
	stopped  bool
}

// NewEarlyStopping creates a monitor with best initialized to +Inf.
func NewEarlyStopping(patience int) *EarlyStopping {
	return &EarlyStopping{
		best:     math.Inf(1),
		patience: patience,
	}
}

// NewEarlyStoppingAt creates a monitor resuming from a previously recorded
// best loss, for restarted runs.
func NewEarlyStoppingAt(patience int, best float64) *EarlyStopping {
	return &EarlyStopping{
		best:     best,
		patience: patience,
	}
}

// Best returns the lowest loss observed so far.
func (es *EarlyStopping) Best() float64 {
	return es.best
}

// Counter returns the number of epochs since the last improvement.
func (es *EarlyStopping) Counter() int {
	return es.counter
}

// Stopped reports whether the monitor has reached its terminal state.
func (es *EarlyStopping) Stopped() bool {
	return es.stopped
}

// Step feeds one epoch's validation loss into the monitor. It returns
// improved=true when the loss is strictly lower than every previous one,
// and stop=true when patience has run out. Both are derived from the same
// bookkeeping in a single transition.
func (es *EarlyStopping) Step(loss float64) (improved, stop bool) {
	if loss < es.best {
		es.best = loss
		es.counter = 0
		return true, false
	}
	es.counter++
	if es.counter >= es.patience {
		es.stopped = true
		return false, true
	}
	return false, false
}
