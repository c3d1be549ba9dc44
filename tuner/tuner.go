/*
 *	Copyright 2025 The digits authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package tuner searches learning-rate / batch-size combinations for a fixed
// model architecture. The training loop itself stays behind the Trainer
// interface; this package only orchestrates trials and persists the results,
// keyed by run timestamp.
package tuner

import (
	"fmt"
	"math/rand"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Trainer runs one training of the fixed architecture and reports the best
// validation accuracy reached.
type Trainer interface {
	Train(learningRate float64, batchSize, epochs int) (valAccuracy float64, err error)
}

// Candidate is one hyperparameter combination.
type Candidate struct {
	LearningRate float64
	BatchSize    int
}

// Trial is one evaluated candidate. Fields are flat so the trial table can be
// loaded straight into a dataframe.
type Trial struct {
	ID           string
	LearningRate float64
	BatchSize    int
	ValAccuracy  float64
}

// Results of a search, sorted by descending validation accuracy.
type Results struct {
	Architecture string
	Trials       []Trial
	Dir          string
}

// Best returns the highest-accuracy trial.
func (r *Results) Best() Trial { return r.Trials[0] }

// Options configure a search. Zero values take the defaults below.
type Options struct {
	// LearningRates and BatchSizes span the search grid.
	// Defaults: {1e-2, 1e-3, 1e-4} and {32, 64, 128}.
	LearningRates []float64
	BatchSizes    []int

	// MaxTrials caps how many candidates RandomSearch evaluates. Default 5.
	MaxTrials int

	// Epochs per trial. Default 10.
	Epochs int

	// Seed drives the candidate order of RandomSearch.
	Seed int64

	// Architecture names the fixed model, used in reports and directory names.
	Architecture string

	// OutputDir receives the tuning_<architecture>_<timestamp> directory.
	// Empty disables persistence.
	OutputDir string
}

func (o *Options) setDefaults() {
	if len(o.LearningRates) == 0 {
		o.LearningRates = []float64{1e-2, 1e-3, 1e-4}
	}
	if len(o.BatchSizes) == 0 {
		o.BatchSizes = []int{32, 64, 128}
	}
	if o.MaxTrials == 0 {
		o.MaxTrials = 5
	}
	if o.Epochs == 0 {
		o.Epochs = 10
	}
	if o.Architecture == "" {
		o.Architecture = "default"
	}
}

func (o *Options) grid() []Candidate {
	grid := make([]Candidate, 0, len(o.LearningRates)*len(o.BatchSizes))
	for _, lr := range o.LearningRates {
		for _, bs := range o.BatchSizes {
			grid = append(grid, Candidate{LearningRate: lr, BatchSize: bs})
		}
	}
	return grid
}

// RandomSearch evaluates up to MaxTrials distinct candidates from the grid in
// a seeded random order.
func RandomSearch(trainer Trainer, opts Options) (*Results, error) {
	if opts.MaxTrials < 0 {
		return nil, errors.Errorf("tuner: MaxTrials must be positive, got %d", opts.MaxTrials)
	}
	opts.setDefaults()
	grid := opts.grid()
	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
	if len(grid) > opts.MaxTrials {
		grid = grid[:opts.MaxTrials]
	}
	return run(trainer, grid, opts)
}

// GridSearch evaluates every candidate of the grid.
func GridSearch(trainer Trainer, opts Options) (*Results, error) {
	opts.setDefaults()
	return run(trainer, opts.grid(), opts)
}

func run(trainer Trainer, candidates []Candidate, opts Options) (*Results, error) {
	if len(candidates) == 0 {
		return nil, errors.New("tuner: empty search space")
	}
	klog.Infof("starting hyperparameter search: model=%s trials=%d", opts.Architecture, len(candidates))

	results := &Results{Architecture: opts.Architecture}
	for i, candidate := range candidates {
		klog.Infof("trial %d/%d: learning_rate=%g batch_size=%d",
			i+1, len(candidates), candidate.LearningRate, candidate.BatchSize)
		accuracy, err := trainer.Train(candidate.LearningRate, candidate.BatchSize, opts.Epochs)
		if err != nil {
			return nil, errors.WithMessagef(err, "trial %d (lr=%g, batch=%d)",
				i+1, candidate.LearningRate, candidate.BatchSize)
		}
		results.Trials = append(results.Trials, Trial{
			ID:           uuid.NewString(),
			LearningRate: candidate.LearningRate,
			BatchSize:    candidate.BatchSize,
			ValAccuracy:  accuracy,
		})
	}
	sort.SliceStable(results.Trials, func(i, j int) bool {
		return results.Trials[i].ValAccuracy > results.Trials[j].ValAccuracy
	})

	best := results.Best()
	klog.Infof("best hyperparameters for %s: learning_rate=%g batch_size=%d (val_accuracy=%.4f)",
		opts.Architecture, best.LearningRate, best.BatchSize, best.ValAccuracy)

	if opts.OutputDir != "" {
		if err := results.save(opts); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// save persists the text report and the trial table under a timestamped
// directory, mirroring tuning runs one can diff across time.
func (r *Results) save(opts Options) error {
	timestamp := time.Now().Format("20060102_150405")
	dir := path.Join(opts.OutputDir, fmt.Sprintf("tuning_%s_%s", opts.Architecture, timestamp))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating tuning output directory %q", dir)
	}
	r.Dir = dir

	var sb strings.Builder
	best := r.Best()
	sb.WriteString(fmt.Sprintf("Hyperparameter Tuning Results - %s\n", r.Architecture))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(fmt.Sprintf("Timestamp: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Trials: %d\n", len(r.Trials)))
	sb.WriteString(fmt.Sprintf("Best learning rate: %g\n", best.LearningRate))
	sb.WriteString(fmt.Sprintf("Best batch size: %d\n", best.BatchSize))
	sb.WriteString(fmt.Sprintf("Best val accuracy: %.4f\n\n", best.ValAccuracy))
	sb.WriteString("All Trials:\n")
	for i, trial := range r.Trials {
		sb.WriteString(fmt.Sprintf("Trial %d: LR=%g, BS=%d, Score=%.4f\n",
			i+1, trial.LearningRate, trial.BatchSize, trial.ValAccuracy))
	}
	reportPath := path.Join(dir, "tuning_results.txt")
	if err := os.WriteFile(reportPath, []byte(sb.String()), 0644); err != nil {
		return errors.Wrapf(err, "writing %q", reportPath)
	}

	csvPath := path.Join(dir, "trials.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", csvPath)
	}
	defer func() { _ = f.Close() }()
	df := dataframe.LoadStructs(r.Trials)
	if df.Err != nil {
		return errors.Wrap(df.Err, "building trial dataframe")
	}
	if err := df.WriteCSV(f); err != nil {
		return errors.Wrapf(err, "writing %q", csvPath)
	}
	klog.Infof("tuning results saved to %s", dir)
	return nil
}
