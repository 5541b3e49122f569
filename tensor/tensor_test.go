package tensor

import (
	"testing"
)

func TestNewTensorShapeMismatch(t *testing.T) {
	_, err := NewTensor("w", []int{2, 3}, make([]float64, 5))
	if err == nil {
		t.Fatal("expected error for shape/data mismatch")
	}
}

func TestZerosAndNumElems(t *testing.T) {
	w := Zeros("w", []int{4, 8})
	if w.NumElems() != 32 {
		t.Errorf("expected 32 elements, got %d", w.NumElems())
	}
	if len(w.Data) != 32 {
		t.Errorf("expected backing slice of 32, got %d", len(w.Data))
	}
	for i, v := range w.Data {
		if v != 0 {
			t.Errorf("expected zero at index %d, got %f", i, v)
		}
	}
}

func TestGradLifecycle(t *testing.T) {
	w := Zeros("w", []int{3})
	w.SetRequiresGrad(true)

	grad := w.Grad()
	grad[0] = 1.5
	grad[2] = -2.0

	// Grad must return the same buffer on subsequent calls.
	if w.Grad()[0] != 1.5 {
		t.Errorf("expected grad to persist, got %f", w.Grad()[0])
	}

	w.ZeroGrad()
	for i, v := range w.Grad() {
		if v != 0 {
			t.Errorf("expected zero grad at index %d after ZeroGrad, got %f", i, v)
		}
	}
}

func TestSetData(t *testing.T) {
	w := Zeros("w", []int{2})
	if err := w.SetData([]float64{1, 2}); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	if w.Data[0] != 1 || w.Data[1] != 2 {
		t.Errorf("unexpected data after SetData: %v", w.Data)
	}
	if err := w.SetData([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for size mismatch")
	}
}

func TestClone(t *testing.T) {
	w, err := NewTensor("w", []int{2}, []float64{1, 2})
	if err != nil {
		t.Fatalf("NewTensor failed: %v", err)
	}
	c := w.Clone()
	c.Data[0] = 9

	if w.Data[0] != 1 {
		t.Errorf("clone must not alias original data, got %f", w.Data[0])
	}
	if c.Name != "w" || c.Shape[0] != 2 {
		t.Errorf("clone lost metadata: name=%s shape=%v", c.Name, c.Shape)
	}
}
