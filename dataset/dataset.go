// Package dataset provides on-disk spectrogram-frame datasets. Each sample
// is one JSON file holding an aligned mixture/target frame pair; files are
// ordered by name so a dataset enumerates identically on every run.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type framePair struct {
	Mix    []float64 `json:"mix"`
	Target []float64 `json:"target"`
}

// DirDataset serves frame pairs from the .json files of one directory.
// Files are read lazily on Get, so arbitrarily large datasets never load
// into memory at once.
type DirDataset struct {
	paths []string
}

// Open enumerates the .json files under dir, sorted by file name.
func Open(dir string) (*DirDataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %v", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .json samples under %s", dir)
	}
	sort.Strings(paths)
	return &DirDataset{paths: paths}, nil
}

// Len returns the number of samples in the dataset.
func (d *DirDataset) Len() int {
	return len(d.paths)
}

// Get reads and validates the sample at the given index.
func (d *DirDataset) Get(idx int) ([]float64, []float64, error) {
	if idx < 0 || idx >= len(d.paths) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(d.paths))
	}
	path := d.paths[idx]

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sample %s: %v", path, err)
	}
	var pair framePair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, nil, fmt.Errorf("failed to decode sample %s: %v", path, err)
	}
	if len(pair.Mix) == 0 {
		return nil, nil, fmt.Errorf("sample %s has an empty mixture frame", path)
	}
	if len(pair.Mix) != len(pair.Target) {
		return nil, nil, fmt.Errorf("sample %s has %d mixture bins but %d target bins",
			path, len(pair.Mix), len(pair.Target))
	}
	return pair.Mix, pair.Target, nil
}

// WriteSample writes one frame pair as a dataset file, for tooling that
// materializes datasets in this layout.
func WriteSample(path string, mix, target []float64) error {
	if len(mix) == 0 || len(mix) != len(target) {
		return fmt.Errorf("mixture and target must be non-empty and the same length: got %d and %d",
			len(mix), len(target))
	}
	data, err := json.Marshal(framePair{Mix: mix, Target: target})
	if err != nil {
		return fmt.Errorf("failed to encode sample: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sample: %v", err)
	}
	return nil
}
