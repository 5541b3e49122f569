package optimizer

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/sevagh/go-unmix/tensor"
)

// Adam implements the Adam optimizer with L2 weight decay, matching the
// update rule used to train the reference separation model.
type Adam struct {
	parameters  []*tensor.Tensor
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	stepCount   int64
	m           map[*tensor.Tensor][]float64 // first moment estimates
	v           map[*tensor.Tensor][]float64 // second moment estimates
	mutex       sync.RWMutex
}

// NewAdam creates a new Adam optimizer with the standard beta/eps defaults.
func NewAdam(parameters []*tensor.Tensor, lr, weightDecay float64) *Adam {
	adam := &Adam{
		parameters:  parameters,
		lr:          lr,
		beta1:       0.9,
		beta2:       0.999,
		eps:         1e-8,
		weightDecay: weightDecay,
		m:           make(map[*tensor.Tensor][]float64),
		v:           make(map[*tensor.Tensor][]float64),
	}
	for _, param := range parameters {
		if param.RequiresGrad() {
			adam.m[param] = make([]float64, param.NumElems())
			adam.v[param] = make([]float64, param.NumElems())
		}
	}
	return adam
}

// Step performs a single optimization step.
func (adam *Adam) Step() error {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()

	adam.stepCount++
	bias1 := 1.0 - math.Pow(adam.beta1, float64(adam.stepCount))
	bias2 := 1.0 - math.Pow(adam.beta2, float64(adam.stepCount))

	for _, param := range adam.parameters {
		if !param.RequiresGrad() {
			continue
		}
		grad := param.Grad()

		if adam.weightDecay > 0 {
			// grad = grad + weight_decay * param
			floats.AddScaled(grad, adam.weightDecay, param.Data)
		}

		m := adam.m[param]
		v := adam.v[param]
		if m == nil || v == nil {
			m = make([]float64, param.NumElems())
			v = make([]float64, param.NumElems())
			adam.m[param] = m
			adam.v[param] = v
		}

		for i, g := range grad {
			m[i] = adam.beta1*m[i] + (1.0-adam.beta1)*g
			v[i] = adam.beta2*v[i] + (1.0-adam.beta2)*g*g

			mHat := m[i] / bias1
			vHat := v[i] / bias2
			param.Data[i] -= adam.lr * mHat / (math.Sqrt(vHat) + adam.eps)
		}
	}
	return nil
}

// ZeroGrad resets gradients to zero for all parameters.
func (adam *Adam) ZeroGrad() {
	tensor.ZeroGrad(adam.parameters)
}

// GetLR returns the current learning rate.
func (adam *Adam) GetLR() float64 {
	adam.mutex.RLock()
	defer adam.mutex.RUnlock()
	return adam.lr
}

// SetLR sets the learning rate.
func (adam *Adam) SetLR(lr float64) {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	adam.lr = lr
}

// GetState extracts a deep copy of the optimizer state.
func (adam *Adam) GetState() *State {
	adam.mutex.RLock()
	defer adam.mutex.RUnlock()

	state := &State{
		Type:      "Adam",
		StepCount: adam.stepCount,
	}
	for _, param := range adam.parameters {
		if m, ok := adam.m[param]; ok {
			state.Slots = append(state.Slots, snapshotSlot(param, "m", m))
		}
		if v, ok := adam.v[param]; ok {
			state.Slots = append(state.Slots, snapshotSlot(param, "v", v))
		}
	}
	return state
}

// LoadState restores optimizer state from a snapshot.
func (adam *Adam) LoadState(state *State) error {
	if err := validateStateType("Adam", state); err != nil {
		return err
	}

	adam.mutex.Lock()
	defer adam.mutex.Unlock()

	adam.stepCount = state.StepCount
	index := indexSlots(state)
	for _, param := range adam.parameters {
		if !param.RequiresGrad() {
			continue
		}
		if err := restoreSlot(index, param, "m", adam.m[param]); err != nil {
			return err
		}
		if err := restoreSlot(index, param, "v", adam.v[param]); err != nil {
			return err
		}
	}
	return nil
}
