package training

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Dataset defines a finite, restartable sequence of (input, target)
// frame pairs.
type Dataset interface {
	// Len returns the total number of samples.
	Len() int

	// Get returns a single sample.
	Get(idx int) (input, target []float64, err error)
}

// DataLoader provides batching and per-epoch shuffling over a Dataset.
// Shuffling uses an explicit seeded source so runs are reproducible from
// configuration alone.
type DataLoader struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	indices   []int
	position  int
	mutex     sync.Mutex
}

// NewDataLoader creates a new DataLoader. When shuffle is true the sample
// order is re-drawn from rng at every Reset.
func NewDataLoader(dataset Dataset, batchSize int, shuffle bool, rng *rand.Rand) *DataLoader {
	indices := make([]int, dataset.Len())
	for i := range indices {
		indices[i] = i
	}
	return &DataLoader{
		dataset:   dataset,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rng,
		indices:   indices,
	}
}

// Batch holds one batch of input frames and their aligned target frames.
type Batch struct {
	Inputs  [][]float64
	Targets [][]float64
}

// NumElements returns the total number of target elements in the batch,
// used to weight validation losses.
func (b *Batch) NumElements() int {
	n := 0
	for _, t := range b.Targets {
		n += len(t)
	}
	return n
}

// NumBatches returns the number of batches in an epoch.
func (dl *DataLoader) NumBatches() int {
	return (dl.dataset.Len() + dl.batchSize - 1) / dl.batchSize
}

// Reset rewinds the loader for a new epoch, reshuffling if configured.
func (dl *DataLoader) Reset() {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	dl.position = 0
	if dl.shuffle {
		dl.rng.Shuffle(len(dl.indices), func(i, j int) {
			dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
		})
	}
}

// Next returns the next batch, or nil once the epoch is exhausted.
func (dl *DataLoader) Next() (*Batch, error) {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	if dl.position >= len(dl.indices) {
		return nil, nil // end of epoch
	}

	batchEnd := dl.position + dl.batchSize
	if batchEnd > len(dl.indices) {
		batchEnd = len(dl.indices)
	}
	batchIndices := dl.indices[dl.position:batchEnd]
	dl.position = batchEnd

	batch := &Batch{
		Inputs:  make([][]float64, 0, len(batchIndices)),
		Targets: make([][]float64, 0, len(batchIndices)),
	}
	for _, idx := range batchIndices {
		input, target, err := dl.dataset.Get(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to load sample %d: %v", idx, err)
		}
		batch.Inputs = append(batch.Inputs, input)
		batch.Targets = append(batch.Targets, target)
	}
	return batch, nil
}

// HasNext reports whether more batches remain in the current epoch.
func (dl *DataLoader) HasNext() bool {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()
	return dl.position < len(dl.indices)
}

// SimpleDataset is an in-memory Dataset over parallel input/target slices.
type SimpleDataset struct {
	inputs  [][]float64
	targets [][]float64
}

// NewSimpleDataset creates an in-memory dataset.
func NewSimpleDataset(inputs, targets [][]float64) (*SimpleDataset, error) {
	if len(inputs) != len(targets) {
		return nil, fmt.Errorf("inputs and targets must have the same length: got %d and %d",
			len(inputs), len(targets))
	}
	return &SimpleDataset{inputs: inputs, targets: targets}, nil
}

// Len returns the number of samples in the dataset.
func (ds *SimpleDataset) Len() int {
	return len(ds.inputs)
}

// Get returns the sample at the given index.
func (ds *SimpleDataset) Get(idx int) ([]float64, []float64, error) {
	if idx < 0 || idx >= len(ds.inputs) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.inputs))
	}
	return ds.inputs[idx], ds.targets[idx], nil
}

// Subset exposes a fixed selection of another dataset's samples. The
// statistics pass uses it as the reduced, non-augmented view of the
// training data: one sample per logical unit, no repetition.
type Subset struct {
	dataset Dataset
	indices []int
}

// NewSubset creates a view over the given sample indices.
func NewSubset(dataset Dataset, indices []int) (*Subset, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= dataset.Len() {
			return nil, fmt.Errorf("subset index %d out of range [0, %d)", idx, dataset.Len())
		}
	}
	return &Subset{dataset: dataset, indices: indices}, nil
}

// Len returns the number of samples in the subset.
func (s *Subset) Len() int {
	return len(s.indices)
}

// Get returns the sample at the given subset position.
func (s *Subset) Get(idx int) ([]float64, []float64, error) {
	if idx < 0 || idx >= len(s.indices) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(s.indices))
	}
	return s.dataset.Get(s.indices[idx])
}

// RandomSpectrogramDataset synthesizes deterministic magnitude-spectrogram
// frames where the target is an additive component of the mixture. It
// stands in for a real front end in demos and tests; samples are generated
// from the seed and index only, so any two loaders over the same seed see
// identical data.
type RandomSpectrogramDataset struct {
	size int
	bins int
	seed int64
}

// NewRandomSpectrogramDataset creates a synthetic dataset of `size` frames
// with `bins` frequency channels.
func NewRandomSpectrogramDataset(size, bins int, seed int64) *RandomSpectrogramDataset {
	return &RandomSpectrogramDataset{size: size, bins: bins, seed: seed}
}

// Len returns the number of samples in the dataset.
func (ds *RandomSpectrogramDataset) Len() int {
	return ds.size
}

// Get generates the sample at the given index.
func (ds *RandomSpectrogramDataset) Get(idx int) ([]float64, []float64, error) {
	if idx < 0 || idx >= ds.size {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, ds.size)
	}

	rng := rand.New(rand.NewSource(ds.seed + int64(idx)))
	mix := make([]float64, ds.bins)
	target := make([]float64, ds.bins)

	// Target energy concentrates in a band whose center drifts with the
	// sample index; the accompaniment fills the rest of the spectrum.
	center := float64(idx%ds.bins) + rng.Float64()
	for j := 0; j < ds.bins; j++ {
		d := (float64(j) - center) / float64(ds.bins)
		t := math.Exp(-d*d*40.0) * (0.5 + rng.Float64())
		accomp := 0.1 + 0.3*rng.Float64()
		target[j] = t
		mix[j] = t + accomp
	}
	return mix, target, nil
}
