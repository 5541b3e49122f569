package training

import (
	"fmt"
)

// Loss defines the criterion used for both training and validation passes.
// Forward returns the scalar loss for a batch; Backward returns the
// gradient of that loss with respect to the prediction.
type Loss interface {
	Forward(predicted, target [][]float64) (float64, error)
	Backward(predicted, target [][]float64) ([][]float64, error)
}

// MSELoss implements mean squared error over every element of the batch.
type MSELoss struct{}

// NewMSELoss creates a new mean squared error criterion.
func NewMSELoss() *MSELoss {
	return &MSELoss{}
}

func checkShapes(predicted, target [][]float64) (int, error) {
	if len(predicted) != len(target) {
		return 0, fmt.Errorf("batch size mismatch: predicted %d, target %d", len(predicted), len(target))
	}
	n := 0
	for i := range predicted {
		if len(predicted[i]) != len(target[i]) {
			return 0, fmt.Errorf("frame %d size mismatch: predicted %d, target %d",
				i, len(predicted[i]), len(target[i]))
		}
		n += len(predicted[i])
	}
	if n == 0 {
		return 0, fmt.Errorf("empty batch")
	}
	return n, nil
}

// Forward computes L = (1/N) * sum((pred - target)^2).
func (mse *MSELoss) Forward(predicted, target [][]float64) (float64, error) {
	n, err := checkShapes(predicted, target)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range predicted {
		for j := range predicted[i] {
			d := predicted[i][j] - target[i][j]
			sum += d * d
		}
	}
	return sum / float64(n), nil
}

// Backward computes dL/dpred = 2 * (pred - target) / N.
func (mse *MSELoss) Backward(predicted, target [][]float64) ([][]float64, error) {
	n, err := checkShapes(predicted, target)
	if err != nil {
		return nil, err
	}
	scale := 2.0 / float64(n)
	grad := make([][]float64, len(predicted))
	for i := range predicted {
		row := make([]float64, len(predicted[i]))
		for j := range predicted[i] {
			row[j] = scale * (predicted[i][j] - target[i][j])
		}
		grad[i] = row
	}
	return grad, nil
}
