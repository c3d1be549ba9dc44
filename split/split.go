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

// Package split partitions a shuffled corpus into stratified train, validation
// and test batches.
//
// The split happens in two stages: first 80/20 into (train+val)/test, then the
// train+val half into train/val at the configured ratio. Both stages are
// stratified by label and seeded, so each class keeps its relative frequency
// in every partition and re-runs reproduce the same partitions. A class too
// small to appear on both sides of a stage aborts the split: a partition
// missing a class would corrupt training and evaluation downstream.
package split

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"

	"github.com/edgevision/digits/corpus"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// TestFraction is the share of the truncated corpus reserved for testing.
const TestFraction = 0.2

// Result holds the three disjoint partitions of the truncated corpus.
type Result struct {
	Train, Validation, Test *corpus.Batch
}

// Truncate keeps the first floor(len*p) samples. On an already shuffled corpus
// this is a uniform sub-sample, deterministic given the shuffle seed.
func Truncate(b *corpus.Batch, p float64) (*corpus.Batch, error) {
	if p <= 0 || p > 1 {
		return nil, errors.Errorf("training percentage %g outside (0, 1]", p)
	}
	return b.Head(int(float64(b.Len()) * p)), nil
}

// Dataset truncates the shuffled corpus to trainingPercentage and performs the
// two-stage stratified split. validationSplit is the validation share of the
// train+val half. The same seed drives both stages.
func Dataset(b *corpus.Batch, numClasses int, trainingPercentage, validationSplit float64, seed int64) (*Result, error) {
	if validationSplit <= 0 || validationSplit >= 1 {
		return nil, errors.Errorf("validation split %g outside (0, 1)", validationSplit)
	}
	truncated, err := Truncate(b, trainingPercentage)
	if err != nil {
		return nil, err
	}
	klog.Infof("using %d of %d samples (%.1f%% of available)", truncated.Len(), b.Len(), trainingPercentage*100)

	trainVal, test, err := Stratified(truncated, TestFraction, seed, "test")
	if err != nil {
		return nil, err
	}
	train, validation, err := Stratified(trainVal, validationSplit, seed, "validation")
	if err != nil {
		return nil, err
	}

	result := &Result{Train: train, Validation: validation, Test: test}
	klog.Infof("final data splits: training=%d validation=%d test=%d", train.Len(), validation.Len(), test.Len())
	logDistribution("training", train, numClasses)
	logDistribution("validation", validation, numClasses)
	logDistribution("test", test, numClasses)
	return result, nil
}

// Stratified splits the batch in two, moving about secondFraction of every
// class to the second batch. The split is seeded and deterministic. stage
// names the partition being carved off, for error messages and logs.
//
// It fails when any class has fewer than two members, since such a class
// cannot appear on both sides.
func Stratified(b *corpus.Batch, secondFraction float64, seed int64, stage string) (first, second *corpus.Batch, err error) {
	if secondFraction <= 0 || secondFraction >= 1 {
		return nil, nil, errors.Errorf("stratified %s split: fraction %g outside (0, 1)", stage, secondFraction)
	}

	byClass := make(map[corpus.Label][]int)
	for i := 0; i < b.Len(); i++ {
		byClass[b.Label(i)] = append(byClass[b.Label(i)], i)
	}
	classes := make([]corpus.Label, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	slices.Sort(classes)

	rng := rand.New(rand.NewSource(seed))
	var firstIdx, secondIdx []int
	for _, class := range classes {
		idx := byClass[class]
		n := len(idx)
		if n < 2 {
			return nil, nil, errors.Errorf(
				"stratified %s split impossible: class %d has only %d sample(s), each class needs at least one sample per side",
				stage, class, n)
		}
		take := int(math.Round(float64(n) * secondFraction))
		take = max(1, min(take, n-1))
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		secondIdx = append(secondIdx, idx[:take]...)
		firstIdx = append(firstIdx, idx[take:]...)
	}
	rng.Shuffle(len(firstIdx), func(i, j int) { firstIdx[i], firstIdx[j] = firstIdx[j], firstIdx[i] })
	rng.Shuffle(len(secondIdx), func(i, j int) { secondIdx[i], secondIdx[j] = secondIdx[j], secondIdx[i] })
	return b.Take(firstIdx), b.Take(secondIdx), nil
}

// logDistribution logs per-class counts and percentages of one partition.
func logDistribution(name string, b *corpus.Batch, numClasses int) {
	dist := b.ClassDistribution(numClasses)
	parts := make([]string, 0, len(dist))
	for class := corpus.Label(0); int(class) < numClasses; class++ {
		count, ok := dist[class]
		if !ok {
			continue
		}
		pct := float64(count) / float64(max(b.Len(), 1)) * 100
		parts = append(parts, fmt.Sprintf("%d: %d (%.1f%%)", class, count, pct))
	}
	klog.Infof("%s split class distribution: %s", name, strings.Join(parts, ", "))
}
