package training

import (
	"math/rand"
	"reflect"
	"testing"
)

func makeDataset(t *testing.T, n int) *SimpleDataset {
	t.Helper()
	inputs := make([][]float64, n)
	targets := make([][]float64, n)
	for i := range inputs {
		inputs[i] = []float64{float64(i), float64(i) + 0.5}
		targets[i] = []float64{float64(i) * 2}
	}
	ds, err := NewSimpleDataset(inputs, targets)
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}
	return ds
}

func drainEpoch(t *testing.T, dl *DataLoader) []*Batch {
	t.Helper()
	var batches []*Batch
	for {
		batch, err := dl.Next()
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		if batch == nil {
			return batches
		}
		batches = append(batches, batch)
	}
}

func TestDataLoaderBatching(t *testing.T) {
	tests := []struct {
		name        string
		samples     int
		batchSize   int
		wantBatches int
		lastSize    int
	}{
		{"even split", 6, 2, 3, 2},
		{"ragged tail", 7, 3, 3, 1},
		{"single batch", 3, 10, 1, 3},
		{"batch size one", 4, 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl := NewDataLoader(makeDataset(t, tt.samples), tt.batchSize, false, nil)
			if got := dl.NumBatches(); got != tt.wantBatches {
				t.Errorf("NumBatches() = %d, want %d", got, tt.wantBatches)
			}
			batches := drainEpoch(t, dl)
			if len(batches) != tt.wantBatches {
				t.Fatalf("got %d batches, want %d", len(batches), tt.wantBatches)
			}
			last := batches[len(batches)-1]
			if len(last.Inputs) != tt.lastSize {
				t.Errorf("last batch size = %d, want %d", len(last.Inputs), tt.lastSize)
			}
		})
	}
}

func TestDataLoaderFixedOrderWithoutShuffle(t *testing.T) {
	dl := NewDataLoader(makeDataset(t, 5), 1, false, nil)

	for epoch := 0; epoch < 3; epoch++ {
		dl.Reset()
		batches := drainEpoch(t, dl)
		for i, batch := range batches {
			if batch.Inputs[0][0] != float64(i) {
				t.Fatalf("epoch %d batch %d: got sample %v, want %d", epoch, i, batch.Inputs[0][0], i)
			}
		}
	}
}

func TestDataLoaderShuffleIsSeedDeterministic(t *testing.T) {
	order := func(seed int64) []float64 {
		dl := NewDataLoader(makeDataset(t, 16), 1, true, rand.New(rand.NewSource(seed)))
		dl.Reset()
		var got []float64
		for _, batch := range drainEpoch(t, dl) {
			got = append(got, batch.Inputs[0][0])
		}
		return got
	}

	first := order(42)
	second := order(42)
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed should produce the same shuffle order")
	}

	other := order(7)
	if reflect.DeepEqual(first, other) {
		t.Error("different seeds should produce different shuffle orders")
	}
}

func TestDataLoaderShuffleCoversAllSamples(t *testing.T) {
	dl := NewDataLoader(makeDataset(t, 10), 3, true, rand.New(rand.NewSource(1)))
	dl.Reset()

	seen := make(map[float64]bool)
	for _, batch := range drainEpoch(t, dl) {
		for _, input := range batch.Inputs {
			seen[input[0]] = true
		}
	}
	if len(seen) != 10 {
		t.Errorf("shuffled epoch covered %d distinct samples, want 10", len(seen))
	}
}

func TestBatchNumElements(t *testing.T) {
	batch := &Batch{
		Inputs:  [][]float64{{1, 2, 3}, {4, 5, 6}},
		Targets: [][]float64{{1, 2}, {3, 4}},
	}
	if got := batch.NumElements(); got != 4 {
		t.Errorf("NumElements() = %d, want 4", got)
	}
}

func TestSubset(t *testing.T) {
	ds := makeDataset(t, 10)
	sub, err := NewSubset(ds, []int{2, 5, 9})
	if err != nil {
		t.Fatalf("failed to create subset: %v", err)
	}
	if sub.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", sub.Len())
	}
	input, _, err := sub.Get(1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if input[0] != 5.0 {
		t.Errorf("subset sample 1 = %v, want 5", input[0])
	}

	if _, err := NewSubset(ds, []int{10}); err == nil {
		t.Error("expected error for out-of-range subset index")
	}
	if _, _, err := sub.Get(3); err == nil {
		t.Error("expected error for out-of-range subset position")
	}
}

func TestRandomSpectrogramDatasetDeterminism(t *testing.T) {
	a := NewRandomSpectrogramDataset(8, 16, 99)
	b := NewRandomSpectrogramDataset(8, 16, 99)

	mixA, targetA, err := a.Get(3)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	mixB, targetB, err := b.Get(3)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reflect.DeepEqual(mixA, mixB) || !reflect.DeepEqual(targetA, targetB) {
		t.Error("same seed and index should generate identical samples")
	}

	// The target is an additive component, so the mixture dominates it.
	for j := range mixA {
		if mixA[j] <= targetA[j] {
			t.Fatalf("bin %d: mixture %v not greater than target %v", j, mixA[j], targetA[j])
		}
	}
}
