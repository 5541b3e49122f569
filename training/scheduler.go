package training

import (
	"math"

	"github.com/sevagh/go-unmix/optimizer"
)

// LRScheduler adjusts the optimizer's learning rate once per epoch. Step
// must be called with validation losses in epoch order; the plateau
// scheduler's decisions are a function of the immediately preceding epochs.
type LRScheduler interface {
	// Step feeds one epoch's validation metric to the scheduler.
	Step(metric float64)

	// GetName returns the scheduler name for logging.
	GetName() string
}

// ReduceLROnPlateau multiplies the learning rate by Factor after Patience
// consecutive epochs without the metric improving by more than Threshold.
type ReduceLROnPlateau struct {
	Factor    float64 // multiplicative decay, 0 < Factor < 1
	Patience  int     // epochs with no improvement before decaying
	Threshold float64 // minimum decrease that counts as improvement

	opt         optimizer.Optimizer
	bestMetric  float64
	badEpochs   int
	initialized bool
}

// NewReduceLROnPlateau creates a plateau-based scheduler bound to the
// given optimizer.
func NewReduceLROnPlateau(opt optimizer.Optimizer, factor float64, patience int, threshold float64) *ReduceLROnPlateau {
	if factor <= 0 || factor >= 1 {
		factor = 0.1
	}
	if patience <= 0 {
		patience = 10
	}
	if threshold < 0 {
		threshold = 1e-4
	}
	return &ReduceLROnPlateau{
		Factor:    factor,
		Patience:  patience,
		Threshold: threshold,
		opt:       opt,
	}
}

// Step checks whether the learning rate should be reduced.
func (s *ReduceLROnPlateau) Step(metric float64) {
	if !s.initialized {
		s.bestMetric = metric
		s.initialized = true
		return
	}

	if metric < s.bestMetric-s.Threshold {
		s.bestMetric = metric
		s.badEpochs = 0
		return
	}

	s.badEpochs++
	if s.badEpochs >= s.Patience {
		s.opt.SetLR(s.opt.GetLR() * s.Factor)
		s.badEpochs = 0
	}
}

func (s *ReduceLROnPlateau) GetName() string {
	return "ReduceLROnPlateau"
}

// StepLR reduces the learning rate by Gamma every StepSize epochs,
// independent of the metric.
type StepLR struct {
	StepSize int
	Gamma    float64

	opt    optimizer.Optimizer
	baseLR float64
	epoch  int
}

// NewStepLR creates a step learning rate scheduler bound to the given
// optimizer.
func NewStepLR(opt optimizer.Optimizer, stepSize int, gamma float64) *StepLR {
	if stepSize <= 0 {
		stepSize = 30
	}
	if gamma <= 0 || gamma >= 1 {
		gamma = 0.1
	}
	return &StepLR{
		StepSize: stepSize,
		Gamma:    gamma,
		opt:      opt,
		baseLR:   opt.GetLR(),
	}
}

// Step advances the epoch counter and applies the decayed rate.
func (s *StepLR) Step(metric float64) {
	s.epoch++
	times := s.epoch / s.StepSize
	s.opt.SetLR(s.baseLR * math.Pow(s.Gamma, float64(times)))
}

func (s *StepLR) GetName() string {
	return "StepLR"
}

// NoOpScheduler maintains a constant learning rate.
type NoOpScheduler struct{}

func (s *NoOpScheduler) Step(metric float64) {}

func (s *NoOpScheduler) GetName() string {
	return "ConstantLR"
}
