package training

import (
	"fmt"

	"github.com/sevagh/go-unmix/scaler"
)

// ComputeStatistics runs the one-off pass over a reduced, non-augmented
// view of the training data and derives the global normalization
// statistics injected into the model at construction. Each sample's input
// is projected through the front-end transform before feeding the
// estimator; the dataset itself is never mutated.
func ComputeStatistics(ds Dataset, tf Transform, quiet bool) (scaler.Statistics, error) {
	s := scaler.NewStandardScaler()

	var pb *ProgressBar
	if !quiet {
		pb = NewProgressBar("Computing statistics", ds.Len())
	}

	for i := 0; i < ds.Len(); i++ {
		input, _, err := ds.Get(i)
		if err != nil {
			return scaler.Statistics{}, fmt.Errorf("failed to load sample %d: %v", i, err)
		}
		frame, err := tf.Apply(input)
		if err != nil {
			return scaler.Statistics{}, fmt.Errorf("failed to transform sample %d: %v", i, err)
		}
		if err := s.PartialFit(frame); err != nil {
			return scaler.Statistics{}, fmt.Errorf("failed to accumulate sample %d: %v", i, err)
		}
		if pb != nil {
			pb.Update(i+1, nil)
		}
	}
	if pb != nil {
		pb.Finish()
	}

	stats, err := s.Statistics()
	if err != nil {
		return scaler.Statistics{}, fmt.Errorf("failed to derive statistics: %v", err)
	}
	if !quiet {
		fmt.Println("Computed global average spectrogram")
	}
	return stats, nil
}
