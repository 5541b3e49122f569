package training

import (
	"fmt"
	"os"
	"time"

	"github.com/sevagh/go-unmix/checkpoints"
	"github.com/sevagh/go-unmix/optimizer"
)

// EpochMetrics records the outcome of one completed epoch. Instances are
// appended to an ordered history and never mutated afterwards.
type EpochMetrics struct {
	Epoch          int
	TrainLoss      float64
	ValidLoss      float64
	ElapsedSeconds float64
}

// Trainer drives the per-epoch train/validate cycle, advances the learning
// rate scheduler, consults the early stopping monitor, and persists a
// checkpoint plus run metadata after every epoch. It owns all mutable run
// state (monitor, histories) for the duration of the run.
type Trainer struct {
	module    Module
	opt       optimizer.Optimizer
	scheduler LRScheduler
	criterion Loss
	manager   *checkpoints.Manager
	config    RunConfiguration

	es         *EarlyStopping
	startEpoch int
	bestEpoch  int
	history    []EpochMetrics

	trainLosses []float64
	validLosses []float64
	trainTimes  []float64
}

// NewTrainer creates a trainer over an already constructed model,
// optimizer, scheduler and criterion. The configuration must have been
// validated by the caller.
func NewTrainer(module Module, opt optimizer.Optimizer, scheduler LRScheduler, criterion Loss,
	manager *checkpoints.Manager, config RunConfiguration) *Trainer {
	return &Trainer{
		module:      module,
		opt:         opt,
		scheduler:   scheduler,
		criterion:   criterion,
		manager:     manager,
		config:      config,
		es:          NewEarlyStopping(config.Patience),
		trainLosses: []float64{},
		validLosses: []float64{},
		trainTimes:  []float64{},
	}
}

// History returns the metrics of every completed epoch, in order.
func (t *Trainer) History() []EpochMetrics {
	return t.history
}

// BestLoss returns the lowest validation loss observed so far.
func (t *Trainer) BestLoss() float64 {
	return t.es.Best()
}

// BestEpoch returns the epoch that produced the lowest validation loss,
// or 0 if no epoch has completed.
func (t *Trainer) BestEpoch() int {
	return t.bestEpoch
}

// Resume restores model weights, optimizer state, early stopping
// bookkeeping and loss histories from the "latest" checkpoint so the run
// continues where it left off.
func (t *Trainer) Resume() error {
	record, err := t.manager.LoadLatest()
	if err != nil {
		return fmt.Errorf("failed to load latest checkpoint: %v", err)
	}
	if err := checkpoints.LoadWeightsInto(record.Weights, t.module.Parameters()); err != nil {
		return fmt.Errorf("failed to restore model parameters: %v", err)
	}
	if record.OptimizerState != nil {
		if err := t.opt.LoadState(record.OptimizerState); err != nil {
			return fmt.Errorf("failed to restore optimizer state: %v", err)
		}
	}

	t.startEpoch = record.Epoch
	t.es = NewEarlyStoppingAt(t.config.Patience, record.BestLoss)

	meta, err := t.manager.ReadMetadata()
	if err != nil {
		// The checkpoint alone is enough to continue; histories restart.
		return nil
	}
	if meta.EpochsTrained != record.Epoch {
		return fmt.Errorf("metadata epochs_trained %d disagrees with checkpoint epoch %d",
			meta.EpochsTrained, record.Epoch)
	}
	t.bestEpoch = meta.BestEpoch
	t.trainLosses = append([]float64{}, meta.TrainLossHistory...)
	t.validLosses = append([]float64{}, meta.ValidLossHistory...)
	t.trainTimes = append([]float64{}, meta.TrainTimeHistory...)
	return nil
}

// Run executes up to the configured number of epochs, stopping early when
// the monitor signals a plateau. Early stopping is a designed termination
// path, not an error. State for epoch N is persisted before the decision
// to continue to epoch N+1 is taken.
func (t *Trainer) Run(trainLoader, validLoader *DataLoader) error {
	for epoch := t.startEpoch + 1; epoch <= t.config.Epochs; epoch++ {
		start := time.Now()

		trainLoss, err := t.trainEpoch(trainLoader, epoch)
		if err != nil {
			return fmt.Errorf("training epoch %d failed: %v", epoch, err)
		}

		validLoss, err := t.validateEpoch(validLoader)
		if err != nil {
			return fmt.Errorf("validation epoch %d failed: %v", epoch, err)
		}

		// Scheduler and monitor both consume validation losses strictly in
		// epoch order; the monitor's own bookkeeping also decides is-best.
		t.scheduler.Step(validLoss)
		improved, stop := t.es.Step(validLoss)
		if improved {
			t.bestEpoch = epoch
		}

		elapsed := time.Since(start).Seconds()
		t.trainLosses = append(t.trainLosses, trainLoss)
		t.validLosses = append(t.validLosses, validLoss)
		t.trainTimes = append(t.trainTimes, elapsed)
		t.history = append(t.history, EpochMetrics{
			Epoch:          epoch,
			TrainLoss:      trainLoss,
			ValidLoss:      validLoss,
			ElapsedSeconds: elapsed,
		})

		if err := t.persist(epoch, improved); err != nil {
			// Continuing with un-persisted state would claim false
			// progress; resuming from the previous checkpoint is safer.
			return fmt.Errorf("failed to persist epoch %d: %v", epoch, err)
		}

		if !t.config.Quiet {
			fmt.Printf("Epoch %d/%d: train_loss=%.6f, valid_loss=%.6f, lr=%.2e, time=%.1fs\n",
				epoch, t.config.Epochs, trainLoss, validLoss, t.opt.GetLR(), elapsed)
		}

		if stop {
			if !t.config.Quiet {
				fmt.Println("Apply early stopping")
			}
			return nil
		}
	}
	return nil
}

// persist writes the checkpoint record and rewrites the run metadata for
// the epoch that just completed.
func (t *Trainer) persist(epoch int, isBest bool) error {
	record := &checkpoints.Record{
		Epoch:          epoch,
		BestLoss:       t.es.Best(),
		Weights:        checkpoints.ExtractWeights(t.module.Parameters()),
		OptimizerState: t.opt.GetState(),
	}
	if err := t.manager.Persist(record, isBest); err != nil {
		return err
	}

	meta := &checkpoints.RunMetadata{
		Args:             t.config,
		BestEpoch:        t.bestEpoch,
		BestLoss:         t.es.Best(),
		EpochsTrained:    epoch,
		Rate:             t.config.SampleRate,
		TrainLossHistory: t.trainLosses,
		TrainTimeHistory: t.trainTimes,
		ValidLossHistory: t.validLosses,
	}
	return t.manager.WriteMetadata(meta)
}

// trainEpoch runs one full pass over the training data with gradient
// updates, returning the epoch-mean training loss.
func (t *Trainer) trainEpoch(loader *DataLoader, epoch int) (float64, error) {
	losses := NewAverageMeter()
	t.module.Train()
	loader.Reset()

	var pb *ProgressBar
	if !t.config.Quiet {
		pb = NewProgressBar(fmt.Sprintf("Epoch %d (train)", epoch), loader.NumBatches())
	}

	step := 0
	for {
		batch, err := loader.Next()
		if err != nil {
			return 0, err
		}
		if batch == nil {
			break
		}

		t.opt.ZeroGrad()

		predicted, err := t.module.Forward(batch.Inputs)
		if err != nil {
			return 0, fmt.Errorf("forward pass failed: %v", err)
		}
		target, err := t.module.Transform(batch.Targets)
		if err != nil {
			return 0, fmt.Errorf("target transform failed: %v", err)
		}

		loss, err := t.criterion.Forward(predicted, target)
		if err != nil {
			return 0, fmt.Errorf("loss computation failed: %v", err)
		}
		grad, err := t.criterion.Backward(predicted, target)
		if err != nil {
			return 0, fmt.Errorf("loss gradient failed: %v", err)
		}
		if err := t.module.Backward(grad); err != nil {
			return 0, fmt.Errorf("backward pass failed: %v", err)
		}
		if err := t.opt.Step(); err != nil {
			return 0, fmt.Errorf("optimizer step failed: %v", err)
		}

		losses.Update(loss)
		step++
		if pb != nil {
			avg, _ := losses.Average()
			pb.Update(step, map[string]float64{"loss": avg})
		}
	}
	if pb != nil {
		pb.Finish()
	}
	return losses.Average()
}

// validateEpoch runs one full pass over the validation data in evaluation
// mode, with no gradient computation or parameter mutation. Each batch's
// loss is weighted by its number of target elements so the epoch mean is
// independent of batch partitioning.
func (t *Trainer) validateEpoch(loader *DataLoader) (float64, error) {
	losses := NewAverageMeter()
	t.module.Eval()
	loader.Reset()

	for {
		batch, err := loader.Next()
		if err != nil {
			return 0, err
		}
		if batch == nil {
			break
		}

		predicted, err := t.module.Forward(batch.Inputs)
		if err != nil {
			return 0, fmt.Errorf("forward pass failed: %v", err)
		}
		target, err := t.module.Transform(batch.Targets)
		if err != nil {
			return 0, fmt.Errorf("target transform failed: %v", err)
		}
		loss, err := t.criterion.Forward(predicted, target)
		if err != nil {
			return 0, fmt.Errorf("loss computation failed: %v", err)
		}
		losses.UpdateWeighted(loss, float64(batch.NumElements()))
	}
	return losses.Average()
}

// EnsureOutputDir creates the artifact directory for a target, failing
// fast when the configured output location is unusable.
func EnsureOutputDir(config RunConfiguration) (string, error) {
	dir := fmt.Sprintf("%s/%s", config.Output, config.Target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %v", dir, err)
	}
	return dir, nil
}
