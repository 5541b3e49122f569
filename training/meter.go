package training

import (
	"errors"
)

// ErrNoObservations is returned by AverageMeter.Average when no values have
// been accumulated, e.g. an empty validation pass. Callers treat this as a
// run-level failure rather than reporting a fabricated loss.
var ErrNoObservations = errors.New("average meter has no observations")

// AverageMeter accumulates a weighted running mean. It decouples per-batch
// losses from the per-epoch scalar: training updates with weight 1,
// validation weights each update by the number of target elements in the
// batch so uneven batch sizes do not skew the epoch mean.
type AverageMeter struct {
	sum   float64
	count float64
}

// NewAverageMeter creates an empty meter.
func NewAverageMeter() *AverageMeter {
	return &AverageMeter{}
}

// Reset returns the meter to its zero state.
func (m *AverageMeter) Reset() {
	m.sum = 0
	m.count = 0
}

// Update accumulates a value with weight 1.
func (m *AverageMeter) Update(value float64) {
	m.UpdateWeighted(value, 1)
}

// UpdateWeighted accumulates a value with the given weight.
func (m *AverageMeter) UpdateWeighted(value, weight float64) {
	m.sum += value * weight
	m.count += weight
}

// Count returns the total accumulated weight.
func (m *AverageMeter) Count() float64 {
	return m.count
}

// Average returns the weighted mean of all accumulated values.
func (m *AverageMeter) Average() (float64, error) {
	if m.count == 0 {
		return 0, ErrNoObservations
	}
	return m.sum / m.count, nil
}
