package optimizer

import (
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/sevagh/go-unmix/tensor"
)

// SGD implements stochastic gradient descent with optional momentum and
// L2 weight decay folded into the gradient before the momentum update.
type SGD struct {
	parameters   []*tensor.Tensor
	learningRate float64
	momentum     float64
	weightDecay  float64
	velocities   map[*tensor.Tensor][]float64
	stepCount    int64
	mutex        sync.RWMutex
}

// NewSGD creates a new SGD optimizer over the given parameters.
func NewSGD(parameters []*tensor.Tensor, lr, momentum, weightDecay float64) *SGD {
	sgd := &SGD{
		parameters:   parameters,
		learningRate: lr,
		momentum:     momentum,
		weightDecay:  weightDecay,
		velocities:   make(map[*tensor.Tensor][]float64),
	}
	if momentum > 0 {
		for _, param := range parameters {
			if param.RequiresGrad() {
				sgd.velocities[param] = make([]float64, param.NumElems())
			}
		}
	}
	return sgd
}

// Step performs a single optimization step.
func (sgd *SGD) Step() error {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()

	sgd.stepCount++
	for _, param := range sgd.parameters {
		if !param.RequiresGrad() {
			continue
		}
		grad := param.Grad()

		if sgd.weightDecay > 0 {
			// grad = grad + weight_decay * param
			floats.AddScaled(grad, sgd.weightDecay, param.Data)
		}

		update := grad
		if sgd.momentum > 0 {
			velocity := sgd.velocities[param]
			if velocity == nil {
				velocity = make([]float64, param.NumElems())
				sgd.velocities[param] = velocity
			}
			// velocity = momentum * velocity + grad
			floats.Scale(sgd.momentum, velocity)
			floats.Add(velocity, grad)
			update = velocity
		}

		// param = param - lr * update
		floats.AddScaled(param.Data, -sgd.learningRate, update)
	}
	return nil
}

// ZeroGrad resets gradients to zero for all parameters.
func (sgd *SGD) ZeroGrad() {
	tensor.ZeroGrad(sgd.parameters)
}

// GetLR returns the current learning rate.
func (sgd *SGD) GetLR() float64 {
	sgd.mutex.RLock()
	defer sgd.mutex.RUnlock()
	return sgd.learningRate
}

// SetLR sets the learning rate.
func (sgd *SGD) SetLR(lr float64) {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()
	sgd.learningRate = lr
}

// GetState extracts a deep copy of the optimizer state.
func (sgd *SGD) GetState() *State {
	sgd.mutex.RLock()
	defer sgd.mutex.RUnlock()

	state := &State{
		Type:      "SGD",
		StepCount: sgd.stepCount,
	}
	for _, param := range sgd.parameters {
		if velocity, ok := sgd.velocities[param]; ok {
			state.Slots = append(state.Slots, snapshotSlot(param, "momentum", velocity))
		}
	}
	return state
}

// LoadState restores optimizer state from a snapshot.
func (sgd *SGD) LoadState(state *State) error {
	if err := validateStateType("SGD", state); err != nil {
		return err
	}

	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()

	sgd.stepCount = state.StepCount
	if sgd.momentum <= 0 {
		return nil
	}

	index := indexSlots(state)
	for _, param := range sgd.parameters {
		if !param.RequiresGrad() {
			continue
		}
		velocity := sgd.velocities[param]
		if velocity == nil {
			velocity = make([]float64, param.NumElems())
			sgd.velocities[param] = velocity
		}
		if err := restoreSlot(index, param, "momentum", velocity); err != nil {
			return err
		}
	}
	return nil
}
