// Package optimizer implements gradient-descent parameter updates with
// state snapshot/restore so that a training run can be checkpointed and
// resumed mid-optimization.
package optimizer

import (
	"fmt"

	"github.com/sevagh/go-unmix/tensor"
)

// Optimizer defines the common interface for all optimizers.
// Snapshot/restore exists for checkpoint functionality: the returned State
// is a deep copy that the caller may serialize after the optimizer has
// moved on.
type Optimizer interface {
	// Step applies accumulated gradients to every trainable parameter.
	Step() error

	// ZeroGrad resets gradients to zero for all parameters.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64

	// SetLR sets the learning rate.
	SetLR(lr float64)

	// GetState extracts optimizer state for checkpointing.
	GetState() *State

	// LoadState restores optimizer state from a checkpoint.
	LoadState(state *State) error
}

// State represents the complete serializable state of an optimizer.
type State struct {
	Type      string        // "Adam", "SGD", etc.
	StepCount int64         // optimization steps taken so far
	Slots     []StateTensor // per-parameter auxiliary buffers
}

// StateTensor is one auxiliary optimizer buffer (momentum, first/second
// moment estimate) keyed by parameter name and slot kind.
type StateTensor struct {
	Name     string // parameter name the buffer belongs to
	SlotType string // "momentum", "m", "v", etc.
	Data     []float64
}

// validateStateType ensures a restored state matches the optimizer kind.
func validateStateType(optimizerType string, state *State) error {
	if state == nil {
		return fmt.Errorf("nil optimizer state")
	}
	if state.Type != optimizerType {
		return fmt.Errorf("state type mismatch: expected %s, got %s", optimizerType, state.Type)
	}
	return nil
}

// slotKey builds the lookup key for a parameter's auxiliary buffer.
func slotKey(paramName, slotType string) string {
	return paramName + "/" + slotType
}

// indexSlots builds a lookup table over the slots of a snapshot.
func indexSlots(state *State) map[string]StateTensor {
	index := make(map[string]StateTensor, len(state.Slots))
	for _, slot := range state.Slots {
		index[slotKey(slot.Name, slot.SlotType)] = slot
	}
	return index
}

// restoreSlot copies snapshot data into a live buffer, validating size.
func restoreSlot(index map[string]StateTensor, param *tensor.Tensor, slotType string, dst []float64) error {
	slot, ok := index[slotKey(param.Name, slotType)]
	if !ok {
		return fmt.Errorf("missing %s slot for parameter %s", slotType, param.Name)
	}
	if len(slot.Data) != len(dst) {
		return fmt.Errorf("%s slot size mismatch for %s: expected %d, got %d",
			slotType, param.Name, len(dst), len(slot.Data))
	}
	copy(dst, slot.Data)
	return nil
}

// snapshotSlot deep-copies a live buffer into a serializable slot.
func snapshotSlot(param *tensor.Tensor, slotType string, src []float64) StateTensor {
	data := make([]float64, len(src))
	copy(data, src)
	return StateTensor{
		Name:     param.Name,
		SlotType: slotType,
		Data:     data,
	}
}
