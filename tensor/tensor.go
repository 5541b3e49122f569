package tensor

import (
	"fmt"
)

// Tensor is a CPU-resident float64 tensor with an optional gradient buffer.
// Parameters that take part in optimization carry requiresGrad=true; their
// gradient buffers are allocated lazily on first access.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float64

	grad         []float64
	requiresGrad bool
}

// NewTensor creates a tensor with the given name, shape and backing data.
// The data slice is used directly, not copied.
func NewTensor(name string, shape []int, data []float64) (*Tensor, error) {
	n := numElems(shape)
	if n != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{
		Name:  name,
		Shape: shape,
		Data:  data,
	}, nil
}

// Zeros creates a zero-filled tensor with the given name and shape.
func Zeros(name string, shape []int) *Tensor {
	return &Tensor{
		Name:  name,
		Shape: shape,
		Data:  make([]float64, numElems(shape)),
	}
}

func numElems(shape []int) int {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	return n
}

// NumElems returns the total number of elements in the tensor.
func (t *Tensor) NumElems() int {
	return numElems(t.Shape)
}

// SetRequiresGrad marks the tensor as a trainable parameter.
func (t *Tensor) SetRequiresGrad(requires bool) {
	t.requiresGrad = requires
}

// RequiresGrad reports whether the tensor participates in optimization.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// Grad returns the gradient buffer, allocating it on first access.
func (t *Tensor) Grad() []float64 {
	if t.grad == nil {
		t.grad = make([]float64, len(t.Data))
	}
	return t.grad
}

// ZeroGrad resets the gradient buffer to zero.
func (t *Tensor) ZeroGrad() {
	if t.grad == nil {
		return
	}
	for i := range t.grad {
		t.grad[i] = 0
	}
}

// SetData copies new values into the tensor, preserving shape.
func (t *Tensor) SetData(data []float64) error {
	if len(data) != len(t.Data) {
		return fmt.Errorf("data size mismatch for %s: expected %d, got %d", t.Name, len(t.Data), len(data))
	}
	copy(t.Data, data)
	return nil
}

// Clone returns a deep copy of the tensor. Gradients are not copied.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	shape := make([]int, len(t.Shape))
	copy(shape, t.Shape)
	return &Tensor{
		Name:         t.Name,
		Shape:        shape,
		Data:         data,
		requiresGrad: t.requiresGrad,
	}
}

// ZeroGrad resets gradients for all tensors in the slice.
func ZeroGrad(tensors []*Tensor) {
	for _, t := range tensors {
		t.ZeroGrad()
	}
}
