package training

import (
	"github.com/sevagh/go-unmix/tensor"
)

// Module is the trainable separation model seen by the orchestrator. A
// batch is a slice of feature frames. The orchestrator never looks inside
// Forward or Transform; it only routes batches, losses and gradients.
type Module interface {
	// Forward maps a batch of mixture frames to estimated source frames.
	Forward(input [][]float64) ([][]float64, error)

	// Transform projects raw target frames into the same representation
	// the prediction lives in.
	Transform(target [][]float64) ([][]float64, error)

	// Backward accumulates parameter gradients from the loss gradient of
	// the most recent Forward call.
	Backward(gradOutput [][]float64) error

	// Parameters returns the trainable parameter tensors.
	Parameters() []*tensor.Tensor

	// Train sets the module to training mode.
	Train()

	// Eval sets the module to evaluation mode.
	Eval()

	// IsTraining reports the current mode.
	IsTraining() bool
}

// Transform projects a single raw frame into the model's input
// representation. The statistics pass applies it to every sample of the
// non-augmented training view before feeding the estimator.
type Transform interface {
	Apply(frame []float64) ([]float64, error)
}
