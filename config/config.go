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

// Package config declares the run configuration of the dataset pipeline: the
// ordered list of data sources plus the scalars controlling shape, shuffling
// and splitting. A Config is validated in full before any I/O starts.
package config

import (
	"os"

	"github.com/edgevision/digits/corpus"
	"github.com/edgevision/digits/sources"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration. It is immutable for a run.
type Config struct {
	// DataDir caches downloaded builtin corpora. "~" is expanded.
	DataDir string `yaml:"data_dir"`

	// Sources are consulted in declaration order.
	Sources []sources.Descriptor `yaml:"sources"`

	// NumClasses is the number of label classes; labels live in [0, NumClasses).
	NumClasses int `yaml:"num_classes"`

	// UseGrayscale selects 1-channel images; otherwise images carry 3 channels.
	UseGrayscale bool `yaml:"use_grayscale"`

	// ImageHeight and ImageWidth every image is normalized to.
	ImageHeight int `yaml:"image_height"`
	ImageWidth  int `yaml:"image_width"`

	// ShuffleSeed makes shuffling and splitting reproducible.
	ShuffleSeed int64 `yaml:"shuffle_seed"`

	// TrainingPercentage in (0, 1] truncates the shuffled corpus before splitting.
	TrainingPercentage float64 `yaml:"training_percentage"`

	// ValidationSplit in (0, 1) is the validation share of the train+val half.
	ValidationSplit float64 `yaml:"validation_split"`
}

// Default returns the configuration for the plain MNIST digit pipeline.
func Default() *Config {
	return &Config{
		DataDir: "~/.cache/digits",
		Sources: []sources.Descriptor{
			{Name: "mnist", Type: sources.TypeBuiltin, Weight: 1.0},
		},
		NumClasses:         10,
		UseGrayscale:       true,
		ImageHeight:        28,
		ImageWidth:         28,
		ShuffleSeed:        42,
		TrainingPercentage: 1.0,
		ValidationSplit:    0.2,
	}
}

// FromYAMLFile loads and validates a configuration file.
func FromYAMLFile(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading configuration %q", path)
	}
	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing configuration %q", path)
	}
	if err = cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid configuration %q", path)
	}
	return cfg, nil
}

// ImageShape returns the shape every image is normalized to.
func (c *Config) ImageShape() corpus.Shape {
	channels := 3
	if c.UseGrayscale {
		channels = 1
	}
	return corpus.Shape{Height: c.ImageHeight, Width: c.ImageWidth, Channels: channels}
}

// Validate checks the whole configuration before any I/O. An omitted source
// weight defaults to 1.0 here.
func (c *Config) Validate() error {
	if c.NumClasses < 2 {
		return errors.Errorf("num_classes must be at least 2, got %d", c.NumClasses)
	}
	if err := c.ImageShape().Validate(); err != nil {
		return err
	}
	if len(c.Sources) == 0 {
		return errors.New("at least one data source must be declared")
	}
	for i := range c.Sources {
		if c.Sources[i].Weight == 0 {
			c.Sources[i].Weight = 1.0
		}
		if err := c.Sources[i].Validate(); err != nil {
			return errors.WithMessagef(err, "source #%d", i)
		}
	}
	if c.TrainingPercentage <= 0 || c.TrainingPercentage > 1 {
		return errors.Errorf("training_percentage %g outside (0, 1]", c.TrainingPercentage)
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		return errors.Errorf("validation_split %g outside (0, 1)", c.ValidationSplit)
	}
	return nil
}
