// Package model implements the spectrogram separation network: a cropped,
// globally normalized front end followed by a two-layer bottleneck that
// estimates the magnitude spectrogram of a single target source.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/sevagh/go-unmix/scaler"
	"github.com/sevagh/go-unmix/tensor"
)

// Config describes the network dimensions and the front-end behavior.
type Config struct {
	NumBins    int     // frequency bins per raw frame
	MaxBin     int     // highest bin (exclusive) the model observes
	HiddenSize int     // bottleneck width
	Power      float64 // spectrogram power applied by the front end
	Seed       int64   // seed for weight initialization
}

func (c *Config) validate() error {
	if c.NumBins <= 0 {
		return fmt.Errorf("num bins must be positive, got %d", c.NumBins)
	}
	if c.MaxBin <= 0 || c.MaxBin > c.NumBins {
		return fmt.Errorf("max bin must be in (0, %d], got %d", c.NumBins, c.MaxBin)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("hidden size must be positive, got %d", c.HiddenSize)
	}
	if c.Power <= 0 {
		return fmt.Errorf("power must be positive, got %g", c.Power)
	}
	return nil
}

// UnmixNet maps a mixture magnitude frame to an estimate of the target
// source's magnitude frame over the cropped band. Input normalization uses
// global statistics computed once before training and frozen into the
// model.
type UnmixNet struct {
	config Config

	// Normalization statistics, cropped to the modeled band.
	mean  []float64
	scale []float64

	w1 *tensor.Tensor // [hidden, maxBin]
	b1 *tensor.Tensor // [hidden]
	w2 *tensor.Tensor // [maxBin, hidden]
	b2 *tensor.Tensor // [maxBin]

	// Cached forward activations for the backward pass.
	lastInputs [][]float64 // normalized, cropped inputs
	lastHidden [][]float64 // tanh activations
	lastOutput [][]float64 // relu outputs

	training bool
}

// NewUnmixNet builds the network and freezes the given normalization
// statistics into it. The statistics must cover the full raw bin range;
// they are cropped to the modeled band here.
func NewUnmixNet(config Config, stats scaler.Statistics) (*UnmixNet, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid model configuration: %v", err)
	}
	if len(stats.Mean) < config.MaxBin || len(stats.Scale) < config.MaxBin {
		return nil, fmt.Errorf("statistics cover %d channels, need at least %d",
			len(stats.Mean), config.MaxBin)
	}

	rng := rand.New(rand.NewSource(config.Seed))
	net := &UnmixNet{
		config: config,
		mean:   append([]float64{}, stats.Mean[:config.MaxBin]...),
		scale:  append([]float64{}, stats.Scale[:config.MaxBin]...),
		w1:     xavierTensor(rng, "fc1.weight", config.HiddenSize, config.MaxBin),
		b1:     zeroParam("fc1.bias", config.HiddenSize),
		w2:     xavierTensor(rng, "fc2.weight", config.MaxBin, config.HiddenSize),
		b2:     zeroParam("fc2.bias", config.MaxBin),
	}
	return net, nil
}

func xavierTensor(rng *rand.Rand, name string, rows, cols int) *tensor.Tensor {
	data := make([]float64, rows*cols)
	limit := math.Sqrt(6.0 / float64(rows+cols))
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	t, _ := tensor.NewTensor(name, []int{rows, cols}, data)
	t.SetRequiresGrad(true)
	return t
}

func zeroParam(name string, size int) *tensor.Tensor {
	t := tensor.Zeros(name, []int{size})
	t.SetRequiresGrad(true)
	return t
}

// frontEnd applies the power spectrogram, crops to the modeled band and
// normalizes with the frozen statistics.
func (n *UnmixNet) frontEnd(frame []float64) ([]float64, error) {
	if len(frame) != n.config.NumBins {
		return nil, fmt.Errorf("frame has %d bins, expected %d", len(frame), n.config.NumBins)
	}
	x := make([]float64, n.config.MaxBin)
	for j := 0; j < n.config.MaxBin; j++ {
		v := math.Pow(math.Abs(frame[j]), n.config.Power)
		x[j] = (v - n.mean[j]) / n.scale[j]
	}
	return x, nil
}

// Forward estimates target magnitude frames for a batch of mixture frames.
// Activations are cached for Backward while in training mode.
func (n *UnmixNet) Forward(input [][]float64) ([][]float64, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	maxBin, hidden := n.config.MaxBin, n.config.HiddenSize
	w1 := mat.NewDense(hidden, maxBin, n.w1.Data)
	w2 := mat.NewDense(maxBin, hidden, n.w2.Data)

	output := make([][]float64, len(input))
	inputs := make([][]float64, len(input))
	hiddens := make([][]float64, len(input))

	for i, frame := range input {
		x, err := n.frontEnd(frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %v", i, err)
		}

		h := mat.NewVecDense(hidden, nil)
		h.MulVec(w1, mat.NewVecDense(maxBin, x))
		hRaw := h.RawVector().Data
		for j := range hRaw {
			hRaw[j] = math.Tanh(hRaw[j] + n.b1.Data[j])
		}

		out := mat.NewVecDense(maxBin, nil)
		out.MulVec(w2, h)
		outRaw := out.RawVector().Data
		for j := range outRaw {
			outRaw[j] = relu(outRaw[j] + n.b2.Data[j])
		}

		inputs[i] = x
		hiddens[i] = hRaw
		output[i] = outRaw
	}

	if n.training {
		n.lastInputs = inputs
		n.lastHidden = hiddens
		n.lastOutput = output
	}
	return output, nil
}

// Transform projects raw target frames into the representation Forward
// predicts: power spectrogram over the cropped band, without
// normalization.
func (n *UnmixNet) Transform(target [][]float64) ([][]float64, error) {
	out := make([][]float64, len(target))
	for i, frame := range target {
		if len(frame) != n.config.NumBins {
			return nil, fmt.Errorf("target frame %d has %d bins, expected %d",
				i, len(frame), n.config.NumBins)
		}
		row := make([]float64, n.config.MaxBin)
		for j := 0; j < n.config.MaxBin; j++ {
			row[j] = math.Pow(math.Abs(frame[j]), n.config.Power)
		}
		out[i] = row
	}
	return out, nil
}

// Backward accumulates parameter gradients from the loss gradient of the
// most recent Forward call.
func (n *UnmixNet) Backward(gradOutput [][]float64) error {
	if !n.training {
		return fmt.Errorf("backward called in evaluation mode")
	}
	if n.lastInputs == nil {
		return fmt.Errorf("backward called before forward")
	}
	if len(gradOutput) != len(n.lastInputs) {
		return fmt.Errorf("gradient batch size %d does not match forward batch size %d",
			len(gradOutput), len(n.lastInputs))
	}

	maxBin, hidden := n.config.MaxBin, n.config.HiddenSize
	gw1 := n.w1.Grad()
	gb1 := n.b1.Grad()
	gw2 := n.w2.Grad()
	gb2 := n.b2.Grad()

	for i, grad := range gradOutput {
		if len(grad) != maxBin {
			return fmt.Errorf("gradient frame %d has %d bins, expected %d", i, len(grad), maxBin)
		}
		x := n.lastInputs[i]
		h := n.lastHidden[i]
		out := n.lastOutput[i]

		// Output layer: relu gate, then weight and bias gradients.
		dOut := make([]float64, maxBin)
		for j := 0; j < maxBin; j++ {
			if out[j] > 0 {
				dOut[j] = grad[j]
			}
		}
		for j := 0; j < maxBin; j++ {
			if dOut[j] == 0 {
				continue
			}
			row := gw2[j*hidden : (j+1)*hidden]
			for k := 0; k < hidden; k++ {
				row[k] += dOut[j] * h[k]
			}
			gb2[j] += dOut[j]
		}

		// Hidden layer: backprop through w2 and the tanh.
		dH := make([]float64, hidden)
		for j := 0; j < maxBin; j++ {
			if dOut[j] == 0 {
				continue
			}
			row := n.w2.Data[j*hidden : (j+1)*hidden]
			for k := 0; k < hidden; k++ {
				dH[k] += dOut[j] * row[k]
			}
		}
		for k := 0; k < hidden; k++ {
			dH[k] *= 1 - h[k]*h[k]
			if dH[k] == 0 {
				continue
			}
			row := gw1[k*maxBin : (k+1)*maxBin]
			for j := 0; j < maxBin; j++ {
				row[j] += dH[k] * x[j]
			}
			gb1[k] += dH[k]
		}
	}
	return nil
}

// Parameters returns the trainable parameter tensors.
func (n *UnmixNet) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{n.w1, n.b1, n.w2, n.b2}
}

// Train sets the network to training mode.
func (n *UnmixNet) Train() { n.training = true }

// Eval sets the network to evaluation mode and drops cached activations.
func (n *UnmixNet) Eval() {
	n.training = false
	n.lastInputs = nil
	n.lastHidden = nil
	n.lastOutput = nil
}

// IsTraining reports the current mode.
func (n *UnmixNet) IsTraining() bool { return n.training }

func relu(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// PowerTransform raises magnitudes to a power, the same front-end
// projection the network applies before normalization. The statistics
// pass uses it so the estimator sees exactly what the model will consume.
type PowerTransform struct {
	Power float64
}

// Apply raises every element's magnitude to the configured power.
func (p PowerTransform) Apply(frame []float64) ([]float64, error) {
	if p.Power <= 0 {
		return nil, fmt.Errorf("power must be positive, got %g", p.Power)
	}
	out := make([]float64, len(frame))
	for i, v := range frame {
		out[i] = math.Pow(math.Abs(v), p.Power)
	}
	return out, nil
}
