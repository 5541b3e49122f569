package training

import (
	"testing"
)

func validConfig() RunConfiguration {
	return RunConfiguration{
		Target:       "vocals",
		Output:       "out",
		Epochs:       100,
		Patience:     10,
		BatchSize:    16,
		LR:           0.001,
		LRDecayGamma: 0.3,
		WeightDecay:  0.00001,
		Seed:         42,
		NFFT:         4096,
		HiddenSize:   512,
		Bandwidth:    16000,
		SampleRate:   44100,
	}
}

func TestRunConfigurationValidate(t *testing.T) {
	config := validConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("valid configuration rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RunConfiguration)
	}{
		{"empty target", func(c *RunConfiguration) { c.Target = "" }},
		{"empty output", func(c *RunConfiguration) { c.Output = "" }},
		{"zero epochs", func(c *RunConfiguration) { c.Epochs = 0 }},
		{"negative patience", func(c *RunConfiguration) { c.Patience = -1 }},
		{"zero batch size", func(c *RunConfiguration) { c.BatchSize = 0 }},
		{"zero learning rate", func(c *RunConfiguration) { c.LR = 0 }},
		{"gamma of one", func(c *RunConfiguration) { c.LRDecayGamma = 1.0 }},
		{"negative weight decay", func(c *RunConfiguration) { c.WeightDecay = -0.1 }},
		{"zero nfft", func(c *RunConfiguration) { c.NFFT = 0 }},
		{"zero hidden size", func(c *RunConfiguration) { c.HiddenSize = 0 }},
		{"zero sample rate", func(c *RunConfiguration) { c.SampleRate = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRunConfigurationNumBins(t *testing.T) {
	config := validConfig()
	if got := config.NumBins(); got != 2049 {
		t.Errorf("NumBins() = %d, want 2049", got)
	}
}

func TestRunConfigurationMaxBin(t *testing.T) {
	tests := []struct {
		name      string
		bandwidth float64
		want      int
	}{
		{"unset bandwidth keeps all bins", 0, 2049},
		{"nyquist bandwidth keeps all bins", 22050, 2049},
		{"above nyquist keeps all bins", 30000, 2049},
		{"16 kHz crop", 16000, 1487},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			config.Bandwidth = tt.bandwidth
			if got := config.MaxBin(); got != tt.want {
				t.Errorf("MaxBin() = %d, want %d", got, tt.want)
			}
		})
	}
}
