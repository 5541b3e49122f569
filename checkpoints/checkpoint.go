// Package checkpoints persists training state durably. Each target keeps
// two physical checkpoint artifacts — "latest", overwritten every epoch,
// and "best", overwritten only when validation loss strictly improves —
// plus a JSON metadata file consumed by run-analysis tooling. All writes go
// through write-to-temp-then-rename so an interrupted write can never leave
// a half-written artifact that a resume would accept.
package checkpoints

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sevagh/go-unmix/optimizer"
	"github.com/sevagh/go-unmix/tensor"
)

// Record is a complete training snapshot: the epoch it was taken at, the
// best validation loss seen so far, every model parameter tensor, and the
// optimizer's auxiliary state.
type Record struct {
	Epoch          int
	BestLoss       float64
	Weights        []WeightTensor
	OptimizerState *optimizer.State
}

// WeightTensor is one serialized model parameter.
type WeightTensor struct {
	Name  string
	Shape []int
	Data  []float64
}

// ExtractWeights deep-copies model parameters into serializable form.
func ExtractWeights(params []*tensor.Tensor) []WeightTensor {
	weights := make([]WeightTensor, 0, len(params))
	for _, param := range params {
		data := make([]float64, len(param.Data))
		copy(data, param.Data)
		shape := make([]int, len(param.Shape))
		copy(shape, param.Shape)
		weights = append(weights, WeightTensor{
			Name:  param.Name,
			Shape: shape,
			Data:  data,
		})
	}
	return weights
}

// LoadWeightsInto copies serialized weights back into model parameters,
// matching by name and validating shapes.
func LoadWeightsInto(weights []WeightTensor, params []*tensor.Tensor) error {
	byName := make(map[string]WeightTensor, len(weights))
	for _, w := range weights {
		byName[w.Name] = w
	}
	for _, param := range params {
		w, ok := byName[param.Name]
		if !ok {
			return fmt.Errorf("checkpoint has no weight for parameter %s", param.Name)
		}
		if len(w.Shape) != len(param.Shape) {
			return fmt.Errorf("shape rank mismatch for %s: checkpoint %v, parameter %v",
				param.Name, w.Shape, param.Shape)
		}
		for i, dim := range w.Shape {
			if dim != param.Shape[i] {
				return fmt.Errorf("shape mismatch for %s: checkpoint %v, parameter %v",
					param.Name, w.Shape, param.Shape)
			}
		}
		if err := param.SetData(w.Data); err != nil {
			return fmt.Errorf("failed to load weight %s: %v", param.Name, err)
		}
	}
	return nil
}

// Manager owns the checkpoint and metadata artifacts for one target. It
// serializes the snapshots handed to it and retains no references across
// calls.
type Manager struct {
	dir    string
	target string
}

// NewManager creates a checkpoint manager rooted at dir for the given
// target name, creating the directory if needed.
func NewManager(dir, target string) (*Manager, error) {
	if target == "" {
		return nil, fmt.Errorf("empty checkpoint target")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %v", err)
	}
	return &Manager{dir: dir, target: target}, nil
}

// LatestPath returns the path of the per-epoch checkpoint artifact.
func (m *Manager) LatestPath() string {
	return filepath.Join(m.dir, m.target+".latest.pb")
}

// BestPath returns the path of the best-so-far checkpoint artifact.
func (m *Manager) BestPath() string {
	return filepath.Join(m.dir, m.target+".best.pb")
}

// MetadataPath returns the path of the JSON run-metadata file.
func (m *Manager) MetadataPath() string {
	return filepath.Join(m.dir, m.target+".json")
}

// Persist writes the record to the "latest" artifact, and additionally to
// the "best" artifact when isBest is true. The best copy is a second
// physical file so it stays recoverable even if a later "latest" write is
// interrupted.
func (m *Manager) Persist(record *Record, isBest bool) error {
	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}
	if err := writeFileAtomic(m.LatestPath(), data); err != nil {
		return fmt.Errorf("failed to write latest checkpoint: %v", err)
	}
	if isBest {
		if err := writeFileAtomic(m.BestPath(), data); err != nil {
			return fmt.Errorf("failed to write best checkpoint: %v", err)
		}
	}
	return nil
}

// LoadLatest reads back the most recent checkpoint for resuming a run.
func (m *Manager) LoadLatest() (*Record, error) {
	return m.load(m.LatestPath())
}

// LoadBest reads back the best-so-far checkpoint.
func (m *Manager) LoadBest() (*Record, error) {
	return m.load(m.BestPath())
}

func (m *Manager) load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %v", err)
	}
	record, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %v", path, err)
	}
	return record, nil
}

// writeFileAtomic writes data to a temporary file in the destination's
// directory and renames it into place, so readers only ever observe either
// the old complete file or the new complete file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %v", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %v", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file into place: %v", err)
	}
	return nil
}
