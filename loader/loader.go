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

// Package loader assembles the combined corpus from every configured data
// source: it reads sources in declaration order, applies per-source weighted
// subsampling, records per-source statistics, and concatenates everything into
// one batch. If no source yields data it falls back to the builtin corpus.
package loader

import (
	"math/rand"

	"github.com/edgevision/digits/config"
	"github.com/edgevision/digits/corpus"
	"github.com/edgevision/digits/sources"
	"github.com/edgevision/digits/split"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// SourceStats describes what one source contributed, recorded after weighting
// and before concatenation. Informational only.
type SourceStats struct {
	Count             int
	ClassDistribution map[corpus.Label]int
}

// MultiSourceLoader merges every configured source into one labeled corpus.
// It holds no state across LoadAll calls except the statistics of the last run.
type MultiSourceLoader struct {
	cfg    *config.Config
	reader *sources.Reader

	// subsample drives the weight<1 subsampling. When nil the package-global
	// randomness is used: per-source subsampling is intentionally NOT tied to
	// the shuffle seed, matching the established pipeline behavior. Two runs
	// with the same seed may pick different subsets from a weighted source.
	subsample *rand.Rand

	// fallback produces a corpus when every source came up empty.
	fallback func() (*corpus.Batch, error)

	stats    map[string]SourceStats
	order    []string
	combined *corpus.Batch
}

// Option configures a MultiSourceLoader.
type Option func(*MultiSourceLoader)

// WithSubsampleRand pins the randomness used by per-source weighted
// subsampling, making it reproducible.
func WithSubsampleRand(rng *rand.Rand) Option {
	return func(l *MultiSourceLoader) { l.subsample = rng }
}

// WithFallback replaces the corpus used when no source yields any data.
// The default fallback loads the builtin MNIST corpus.
func WithFallback(f func() (*corpus.Batch, error)) Option {
	return func(l *MultiSourceLoader) { l.fallback = f }
}

// New creates a loader for the given (already validated) configuration.
func New(cfg *config.Config, opts ...Option) (*MultiSourceLoader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reader, err := sources.NewReader(cfg.ImageShape(), cfg.NumClasses, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	l := &MultiSourceLoader{
		cfg:    cfg,
		reader: reader,
		stats:  make(map[string]SourceStats),
	}
	l.fallback = func() (*corpus.Batch, error) {
		return reader.Read(sources.Descriptor{Name: "mnist", Type: sources.TypeBuiltin, Weight: 1.0})
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// LoadAll reads every configured source and returns the combined corpus.
// Sources that fail or yield nothing are skipped; if all of them are skipped,
// the fallback corpus is substituted and loudly logged.
func (l *MultiSourceLoader) LoadAll() (*corpus.Batch, error) {
	l.stats = make(map[string]SourceStats)
	l.order = l.order[:0]
	klog.Info("loading multiple data sources...")

	var batches []*corpus.Batch
	for _, desc := range l.cfg.Sources {
		klog.Infof("loading source: %s (type: %s)", desc.Name, desc.Type)
		batch, err := l.reader.Read(desc)
		if err != nil {
			klog.Warningf("source %q failed, skipping: %+v", desc.Name, err)
			continue
		}
		if batch.Len() == 0 {
			klog.Warningf("no data loaded from %q, skipping", desc.Name)
			continue
		}
		if desc.Weight < 1.0 {
			batch = l.subsampleBatch(batch, desc.Weight)
			klog.Infof("  sampled %d images (weight: %g)", batch.Len(), desc.Weight)
		}
		l.stats[desc.Name] = SourceStats{
			Count:             batch.Len(),
			ClassDistribution: batch.ClassDistribution(l.cfg.NumClasses),
		}
		l.order = append(l.order, desc.Name)
		batches = append(batches, batch)
		klog.Infof("  loaded %d images, class distribution: %v", batch.Len(), l.stats[desc.Name].ClassDistribution)
	}

	if len(batches) == 0 {
		klog.Warning("no data sources could be loaded, substituting the builtin corpus")
		fb, err := l.fallback()
		if err != nil {
			return nil, errors.WithMessage(err, "every source was empty and the builtin fallback failed")
		}
		if fb.Len() == 0 {
			return nil, errors.New("every source was empty and the builtin fallback produced no data")
		}
		l.combined = fb
		return fb, nil
	}

	combined, err := corpus.Concat(batches...)
	if err != nil {
		return nil, err
	}
	l.combined = combined
	klog.Infof("combined corpus: %d images from %d source(s)", combined.Len(), len(batches))
	return combined, nil
}

// subsampleBatch keeps floor(len*weight) pairs, drawn uniformly without
// replacement.
func (l *MultiSourceLoader) subsampleBatch(b *corpus.Batch, weight float64) *corpus.Batch {
	keep := int(float64(b.Len()) * weight)
	var perm []int
	if l.subsample != nil {
		perm = l.subsample.Perm(b.Len())
	} else {
		perm = rand.Perm(b.Len())
	}
	return b.Take(perm[:keep])
}

// Stats returns the per-source statistics of the last LoadAll run.
func (l *MultiSourceLoader) Stats() map[string]SourceStats {
	out := make(map[string]SourceStats, len(l.stats))
	for name, stats := range l.stats {
		out[name] = stats
	}
	return out
}

// SourceNames returns the contributing sources in declaration order.
func (l *MultiSourceLoader) SourceNames() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Splits runs the whole pipeline: load all sources, shuffle with the
// configured seed, truncate to the configured usage fraction, and perform the
// stratified train/validation/test split.
func (l *MultiSourceLoader) Splits() (*split.Result, error) {
	combined, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	combined.Shuffle(l.cfg.ShuffleSeed)
	return split.Dataset(combined, l.cfg.NumClasses,
		l.cfg.TrainingPercentage, l.cfg.ValidationSplit, l.cfg.ShuffleSeed)
}
