// Package scaler estimates per-channel normalization statistics over a
// training corpus without holding the corpus in memory. The estimator
// consumes post-transform feature vectors one at a time and maintains
// running count, mean and sum of squared deviations (Welford's update).
package scaler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// scaleFloorRatio bounds every scale entry from below relative to the
// largest entry. Silence-only channels would otherwise produce a near-zero
// divisor during input normalization.
const scaleFloorRatio = 1e-4

// Statistics holds the global per-channel mean and scale injected into the
// model at construction. Immutable once computed.
type Statistics struct {
	Mean  []float64
	Scale []float64
}

// NumChannels returns the feature dimensionality of the statistics.
func (s Statistics) NumChannels() int {
	return len(s.Mean)
}

// StandardScaler incrementally accumulates mean and variance per feature
// channel. The zero value is not usable; create one with NewStandardScaler.
type StandardScaler struct {
	count float64
	mean  []float64
	m2    []float64 // sum of squared deviations from the running mean
}

// NewStandardScaler creates an empty scaler. The channel count is fixed by
// the first observation.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Count returns the number of observations accumulated so far.
func (s *StandardScaler) Count() float64 {
	return s.count
}

// PartialFit folds a single observation vector into the running statistics.
func (s *StandardScaler) PartialFit(x []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("empty observation")
	}
	if s.mean == nil {
		s.mean = make([]float64, len(x))
		s.m2 = make([]float64, len(x))
	}
	if len(x) != len(s.mean) {
		return fmt.Errorf("channel count mismatch: expected %d, got %d", len(s.mean), len(x))
	}

	s.count++
	for i, v := range x {
		delta := v - s.mean[i]
		s.mean[i] += delta / s.count
		s.m2[i] += delta * (v - s.mean[i])
	}
	return nil
}

// PartialFitBatch folds a batch of observation vectors, one frame per row.
func (s *StandardScaler) PartialFitBatch(frames [][]float64) error {
	for i, frame := range frames {
		if err := s.PartialFit(frame); err != nil {
			return fmt.Errorf("frame %d: %v", i, err)
		}
	}
	return nil
}

// Statistics derives the final mean/scale pair. Scale is the population
// standard deviation with every entry clamped to at least
// scaleFloorRatio times the largest entry.
func (s *StandardScaler) Statistics() (Statistics, error) {
	if s.count == 0 {
		return Statistics{}, fmt.Errorf("no observations accumulated")
	}

	mean := make([]float64, len(s.mean))
	copy(mean, s.mean)

	scale := make([]float64, len(s.m2))
	for i, m2 := range s.m2 {
		scale[i] = math.Sqrt(m2 / s.count)
	}

	maxScale := floats.Max(scale)
	if maxScale <= 0 {
		// Constant input on every channel: fall back to unit scale so that
		// normalization is the identity shift.
		for i := range scale {
			scale[i] = 1
		}
		return Statistics{Mean: mean, Scale: scale}, nil
	}

	floor := scaleFloorRatio * maxScale
	for i := range scale {
		if scale[i] < floor {
			scale[i] = floor
		}
	}
	return Statistics{Mean: mean, Scale: scale}, nil
}
