package training

import (
	"fmt"
)

// RunConfiguration is an immutable snapshot of every hyperparameter of a
// run, created once at startup and serialized verbatim into the run
// metadata. JSON keys match the persisted metadata contract.
type RunConfiguration struct {
	Target       string  `json:"target"`         // source to isolate, e.g. "vocals"
	Output       string  `json:"output"`         // output directory for artifacts
	Epochs       int     `json:"epochs"`         // upper bound on training epochs
	Patience     int     `json:"patience"`       // early stopping patience
	BatchSize    int     `json:"batch_size"`     // training batch size
	LR           float64 `json:"lr"`             // initial learning rate
	LRDecayGamma float64 `json:"lr_decay_gamma"` // plateau decay factor
	WeightDecay  float64 `json:"weight_decay"`   // L2 penalty
	Seed         int64   `json:"seed"`           // RNG seed for every stochastic component
	NFFT         int     `json:"nfft"`           // front-end FFT size
	HiddenSize   int     `json:"hidden_size"`    // bottleneck width of the model
	Bandwidth    float64 `json:"bandwidth"`      // maximum modeled bandwidth in Hz
	SampleRate   int     `json:"rate"`           // audio sample rate in Hz
	Quiet        bool    `json:"quiet"`          // suppress per-batch progress output
}

// Validate fails fast on configuration errors, before any epoch runs.
func (c *RunConfiguration) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target must not be empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.Patience <= 0 {
		return fmt.Errorf("patience must be positive, got %d", c.Patience)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.LR <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LR)
	}
	if c.LRDecayGamma <= 0 || c.LRDecayGamma >= 1 {
		return fmt.Errorf("lr decay gamma must be in (0, 1), got %g", c.LRDecayGamma)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight decay must not be negative, got %g", c.WeightDecay)
	}
	if c.NFFT <= 0 {
		return fmt.Errorf("nfft must be positive, got %d", c.NFFT)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("hidden size must be positive, got %d", c.HiddenSize)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	return nil
}

// NumBins returns the number of frequency bins per frame produced by the
// front end.
func (c *RunConfiguration) NumBins() int {
	return c.NFFT/2 + 1
}

// MaxBin returns the highest frequency bin (exclusive) the model observes,
// derived from the configured bandwidth. Returns NumBins when the
// bandwidth covers the full spectrum or is unset.
func (c *RunConfiguration) MaxBin() int {
	numBins := c.NumBins()
	if c.Bandwidth <= 0 {
		return numBins
	}
	nyquist := float64(c.SampleRate) / 2.0
	if c.Bandwidth >= nyquist {
		return numBins
	}
	// Bin i sits at frequency i * nyquist / (numBins - 1); keep every bin
	// at or below the bandwidth.
	maxBin := 0
	for i := 0; i < numBins; i++ {
		freq := float64(i) * nyquist / float64(numBins-1)
		if freq <= c.Bandwidth {
			maxBin = i + 1
		}
	}
	return maxBin
}
