package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
)

// RunMetadata is the JSON record rewritten after every epoch. Field names
// and nesting are consumed by external run-analysis tooling and must not
// change. Fields are declared in alphabetical order so the marshaled keys
// come out sorted.
type RunMetadata struct {
	Args             any       `json:"args"`
	BestEpoch        int       `json:"best_epoch"`
	BestLoss         float64   `json:"best_loss"`
	EpochsTrained    int       `json:"epochs_trained"`
	Rate             int       `json:"rate"`
	TrainLossHistory []float64 `json:"train_loss_history"`
	TrainTimeHistory []float64 `json:"train_time_history"`
	ValidLossHistory []float64 `json:"valid_loss_history"`
}

// WriteMetadata atomically rewrites the run metadata file.
func (m *Manager) WriteMetadata(meta *RunMetadata) error {
	if meta == nil {
		return fmt.Errorf("nil run metadata")
	}
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode run metadata: %v", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(m.MetadataPath(), data); err != nil {
		return fmt.Errorf("failed to write run metadata: %v", err)
	}
	return nil
}

// ReadMetadata reads back the run metadata file.
func (m *Manager) ReadMetadata() (*RunMetadata, error) {
	data, err := os.ReadFile(m.MetadataPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read run metadata: %v", err)
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode run metadata: %v", err)
	}
	return &meta, nil
}
