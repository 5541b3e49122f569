// Command unmix-train trains a single-source separation model and writes
// checkpoint artifacts plus run metadata under <output>/<target>/.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"path/filepath"

	"github.com/sevagh/go-unmix/checkpoints"
	"github.com/sevagh/go-unmix/dataset"
	"github.com/sevagh/go-unmix/model"
	"github.com/sevagh/go-unmix/optimizer"
	"github.com/sevagh/go-unmix/training"
)

func main() {
	var config training.RunConfiguration
	var resume bool
	var dataRoot string
	var trainSamples, validSamples int

	flag.StringVar(&config.Target, "target", "vocals", "target source to isolate")
	flag.StringVar(&config.Output, "output", "open-unmix", "output directory for artifacts")
	flag.IntVar(&config.Epochs, "epochs", 1000, "maximum number of training epochs")
	flag.IntVar(&config.Patience, "patience", 140, "early stopping patience in epochs")
	flag.IntVar(&config.BatchSize, "batch-size", 16, "training batch size")
	flag.Float64Var(&config.LR, "lr", 0.001, "initial learning rate")
	flag.Float64Var(&config.LRDecayGamma, "lr-decay-gamma", 0.3, "learning rate decay factor on plateau")
	flag.Float64Var(&config.WeightDecay, "weight-decay", 0.00001, "weight decay")
	flag.Int64Var(&config.Seed, "seed", 42, "seed for all stochastic components")
	flag.IntVar(&config.NFFT, "nfft", 4096, "front-end FFT size")
	flag.IntVar(&config.HiddenSize, "hidden-size", 512, "bottleneck width of the model")
	flag.Float64Var(&config.Bandwidth, "bandwidth", 16000, "maximum modeled bandwidth in Hz")
	flag.IntVar(&config.SampleRate, "rate", 44100, "audio sample rate in Hz")
	flag.BoolVar(&config.Quiet, "quiet", false, "suppress per-batch progress output")
	flag.BoolVar(&resume, "checkpoint", false, "resume from the latest checkpoint in the output directory")
	flag.StringVar(&dataRoot, "root", "", "dataset root with train/ and valid/ frame directories; synthetic data when empty")
	flag.IntVar(&trainSamples, "train-samples", 512, "number of synthetic training frames")
	flag.IntVar(&validSamples, "valid-samples", 128, "number of synthetic validation frames")
	flag.Parse()

	if err := config.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	dir, err := training.EnsureOutputDir(config)
	if err != nil {
		log.Fatalf("failed to prepare output directory: %v", err)
	}

	bins := config.NumBins()
	var trainData, validData training.Dataset
	if dataRoot != "" {
		trainData, err = dataset.Open(filepath.Join(dataRoot, "train"))
		if err != nil {
			log.Fatalf("failed to open training data: %v", err)
		}
		validData, err = dataset.Open(filepath.Join(dataRoot, "valid"))
		if err != nil {
			log.Fatalf("failed to open validation data: %v", err)
		}
	} else {
		trainData = training.NewRandomSpectrogramDataset(trainSamples, bins, config.Seed)
		validData = training.NewRandomSpectrogramDataset(validSamples, bins, config.Seed+1)
	}

	// Global normalization statistics come from a single fixed-order pass
	// over the training data, one frame per sample, before any epoch runs.
	statsIndices := make([]int, trainData.Len())
	for i := range statsIndices {
		statsIndices[i] = i
	}
	statsView, err := training.NewSubset(trainData, statsIndices)
	if err != nil {
		log.Fatalf("failed to build statistics view: %v", err)
	}
	stats, err := training.ComputeStatistics(statsView, model.PowerTransform{Power: 1.0}, config.Quiet)
	if err != nil {
		log.Fatalf("failed to compute statistics: %v", err)
	}

	net, err := model.NewUnmixNet(model.Config{
		NumBins:    bins,
		MaxBin:     config.MaxBin(),
		HiddenSize: config.HiddenSize,
		Power:      1.0,
		Seed:       config.Seed,
	}, stats)
	if err != nil {
		log.Fatalf("failed to build model: %v", err)
	}

	opt := optimizer.NewAdam(net.Parameters(), config.LR, config.WeightDecay)
	scheduler := training.NewReduceLROnPlateau(opt, config.LRDecayGamma, config.Patience/2, 1e-4)
	criterion := training.NewMSELoss()

	manager, err := checkpoints.NewManager(dir, config.Target)
	if err != nil {
		log.Fatalf("failed to create checkpoint manager: %v", err)
	}

	trainer := training.NewTrainer(net, opt, scheduler, criterion, manager, config)
	if resume {
		if err := trainer.Resume(); err != nil {
			log.Fatalf("failed to resume: %v", err)
		}
	}

	rng := rand.New(rand.NewSource(config.Seed))
	trainLoader := training.NewDataLoader(trainData, config.BatchSize, true, rng)
	// Validation always runs one frame at a time in dataset order.
	validLoader := training.NewDataLoader(validData, 1, false, nil)

	if err := trainer.Run(trainLoader, validLoader); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	fmt.Printf("Training finished: best loss %.6f at epoch %d, artifacts in %s\n",
		trainer.BestLoss(), trainer.BestEpoch(), dir)
}
