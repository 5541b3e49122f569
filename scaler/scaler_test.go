package scaler

import (
	"math"
	"math/rand"
	"testing"
)

// twoPassStats computes mean and population standard deviation the naive way
// for comparison against the incremental estimator.
func twoPassStats(frames [][]float64) (mean, std []float64) {
	n := float64(len(frames))
	channels := len(frames[0])
	mean = make([]float64, channels)
	std = make([]float64, channels)

	for _, f := range frames {
		for i, v := range f {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= n
	}
	for _, f := range frames {
		for i, v := range f {
			d := v - mean[i]
			std[i] += d * d
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / n)
	}
	return mean, std
}

func TestIncrementalMatchesTwoPass(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	frames := make([][]float64, 500)
	for i := range frames {
		frame := make([]float64, 16)
		for j := range frame {
			frame[j] = rng.NormFloat64()*3.0 + 7.0
		}
		frames[i] = frame
	}

	s := NewStandardScaler()
	if err := s.PartialFitBatch(frames); err != nil {
		t.Fatalf("PartialFitBatch failed: %v", err)
	}

	stats, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}

	wantMean, wantStd := twoPassStats(frames)
	for i := range wantMean {
		if math.Abs(stats.Mean[i]-wantMean[i]) > 1e-9 {
			t.Errorf("channel %d: mean %.12f, want %.12f", i, stats.Mean[i], wantMean[i])
		}
		if math.Abs(stats.Scale[i]-wantStd[i]) > 1e-9 {
			t.Errorf("channel %d: scale %.12f, want %.12f", i, stats.Scale[i], wantStd[i])
		}
	}
}

func TestScaleFloorOnSilentChannel(t *testing.T) {
	// Channel 0 carries signal, channel 1 is all-zero (silence).
	s := NewStandardScaler()
	for i := 0; i < 100; i++ {
		if err := s.PartialFit([]float64{float64(i % 10), 0.0}); err != nil {
			t.Fatalf("PartialFit failed: %v", err)
		}
	}

	stats, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}

	maxScale := stats.Scale[0]
	if stats.Scale[1] < 1e-4*maxScale {
		t.Errorf("silent channel scale %g below floor %g", stats.Scale[1], 1e-4*maxScale)
	}
	if stats.Scale[1] != 1e-4*maxScale {
		t.Errorf("silent channel should be clamped exactly to the floor, got %g want %g",
			stats.Scale[1], 1e-4*maxScale)
	}
}

func TestScaleFloorHoldsForAllChannels(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	s := NewStandardScaler()
	for i := 0; i < 200; i++ {
		frame := make([]float64, 8)
		for j := 0; j < 4; j++ {
			frame[j] = rng.Float64() * math.Pow(10, float64(j)) // wildly uneven spread
		}
		// channels 4..7 stay constant
		if err := s.PartialFit(frame); err != nil {
			t.Fatalf("PartialFit failed: %v", err)
		}
	}

	stats, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}

	var maxScale float64
	for _, v := range stats.Scale {
		if v > maxScale {
			maxScale = v
		}
	}
	for i, v := range stats.Scale {
		if v < 1e-4*maxScale {
			t.Errorf("channel %d: scale %g below floor %g", i, v, 1e-4*maxScale)
		}
	}
}

func TestConstantInputFallsBackToUnitScale(t *testing.T) {
	s := NewStandardScaler()
	for i := 0; i < 10; i++ {
		if err := s.PartialFit([]float64{3.0, 3.0}); err != nil {
			t.Fatalf("PartialFit failed: %v", err)
		}
	}

	stats, err := s.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	for i, v := range stats.Scale {
		if v != 1 {
			t.Errorf("channel %d: expected unit scale for constant input, got %g", i, v)
		}
	}
	if stats.Mean[0] != 3.0 {
		t.Errorf("expected mean 3.0, got %g", stats.Mean[0])
	}
}

func TestStatisticsErrors(t *testing.T) {
	s := NewStandardScaler()
	if _, err := s.Statistics(); err == nil {
		t.Error("expected error with no observations")
	}
	if err := s.PartialFit(nil); err == nil {
		t.Error("expected error for empty observation")
	}
	if err := s.PartialFit([]float64{1, 2}); err != nil {
		t.Fatalf("PartialFit failed: %v", err)
	}
	if err := s.PartialFit([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for channel count mismatch")
	}
}
