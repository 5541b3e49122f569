package training

import (
	"fmt"
	"math"
	"testing"

	"github.com/sevagh/go-unmix/scaler"
)

// identityTransform passes frames through untouched.
type identityTransform struct{}

func (identityTransform) Apply(frame []float64) ([]float64, error) {
	return frame, nil
}

// squareTransform squares every element, standing in for a magnitude
// front end.
type squareTransform struct{}

func (squareTransform) Apply(frame []float64) ([]float64, error) {
	out := make([]float64, len(frame))
	for i, v := range frame {
		out[i] = v * v
	}
	return out, nil
}

type failingDataset struct{}

func (failingDataset) Len() int { return 1 }
func (failingDataset) Get(idx int) ([]float64, []float64, error) {
	return nil, nil, fmt.Errorf("broken sample")
}

func TestComputeStatisticsMatchesDirectFit(t *testing.T) {
	inputs := [][]float64{
		{1.0, 10.0},
		{2.0, 20.0},
		{3.0, 30.0},
		{4.0, 40.0},
	}
	targets := make([][]float64, len(inputs))
	for i := range targets {
		targets[i] = []float64{0}
	}
	ds, err := NewSimpleDataset(inputs, targets)
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}

	got, err := ComputeStatistics(ds, identityTransform{}, true)
	if err != nil {
		t.Fatalf("compute statistics failed: %v", err)
	}

	direct := scaler.NewStandardScaler()
	for _, frame := range inputs {
		if err := direct.PartialFit(frame); err != nil {
			t.Fatalf("direct fit failed: %v", err)
		}
	}
	want, err := direct.Statistics()
	if err != nil {
		t.Fatalf("direct statistics failed: %v", err)
	}

	for c := range want.Mean {
		if math.Abs(got.Mean[c]-want.Mean[c]) > 1e-12 {
			t.Errorf("mean[%d] = %v, want %v", c, got.Mean[c], want.Mean[c])
		}
		if math.Abs(got.Scale[c]-want.Scale[c]) > 1e-12 {
			t.Errorf("scale[%d] = %v, want %v", c, got.Scale[c], want.Scale[c])
		}
	}
}

func TestComputeStatisticsAppliesTransform(t *testing.T) {
	inputs := [][]float64{{1.0}, {2.0}, {3.0}}
	targets := [][]float64{{0}, {0}, {0}}
	ds, err := NewSimpleDataset(inputs, targets)
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}

	stats, err := ComputeStatistics(ds, squareTransform{}, true)
	if err != nil {
		t.Fatalf("compute statistics failed: %v", err)
	}
	// Mean over {1, 4, 9}.
	if math.Abs(stats.Mean[0]-14.0/3.0) > 1e-12 {
		t.Errorf("mean = %v, want %v", stats.Mean[0], 14.0/3.0)
	}
}

func TestComputeStatisticsOverSubsetView(t *testing.T) {
	full := makeDataset(t, 10)
	view, err := NewSubset(full, []int{0, 2, 4})
	if err != nil {
		t.Fatalf("failed to create subset: %v", err)
	}

	stats, err := ComputeStatistics(view, identityTransform{}, true)
	if err != nil {
		t.Fatalf("compute statistics failed: %v", err)
	}
	// First channel over samples {0, 2, 4}.
	if math.Abs(stats.Mean[0]-2.0) > 1e-12 {
		t.Errorf("subset mean = %v, want 2", stats.Mean[0])
	}
}

func TestComputeStatisticsPropagatesDatasetErrors(t *testing.T) {
	if _, err := ComputeStatistics(failingDataset{}, identityTransform{}, true); err == nil {
		t.Error("expected error from failing dataset")
	}
}
