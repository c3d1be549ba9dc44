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

package config

import (
	"os"
	"path"
	"testing"

	"github.com/edgevision/digits/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.ImageShape().Channels)
	cfg.UseGrayscale = false
	assert.Equal(t, 3, cfg.ImageShape().Channels)
}

func TestValidateRejectsBadScalars(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.NumClasses = 1 },
		func(c *Config) { c.ImageHeight = 0 },
		func(c *Config) { c.Sources = nil },
		func(c *Config) { c.TrainingPercentage = 0 },
		func(c *Config) { c.TrainingPercentage = 1.2 },
		func(c *Config) { c.ValidationSplit = 0 },
		func(c *Config) { c.ValidationSplit = 1 },
		func(c *Config) { c.Sources[0].Weight = -0.5 },
		func(c *Config) { c.Sources[0].Type = sources.TypeInvalid },
	} {
		cfg := Default()
		mutate(cfg)
		require.Error(t, cfg.Validate())
	}
}

func TestValidateDefaultsOmittedWeight(t *testing.T) {
	cfg := Default()
	cfg.Sources[0].Weight = 0 // as when omitted from YAML
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1.0, cfg.Sources[0].Weight)
}

func TestFromYAMLFile(t *testing.T) {
	contents := `
data_dir: /tmp/digits-cache
num_classes: 10
use_grayscale: false
image_height: 28
image_width: 28
shuffle_seed: 7
training_percentage: 0.5
validation_split: 0.25
sources:
  - name: mnist
    type: builtin
  - name: meter-photos
    type: folder_structure
    path: /data/meter
    weight: 0.4
`
	filePath := path.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(filePath, []byte(contents), 0644))

	cfg, err := FromYAMLFile(filePath)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, sources.TypeBuiltin, cfg.Sources[0].Type)
	assert.Equal(t, 1.0, cfg.Sources[0].Weight, "omitted weight defaults to 1.0")
	assert.Equal(t, 0.4, cfg.Sources[1].Weight)
	assert.Equal(t, int64(7), cfg.ShuffleSeed)
	assert.Equal(t, 0.5, cfg.TrainingPercentage)
}

func TestFromYAMLFileRejectsUnknownSourceType(t *testing.T) {
	contents := `
sources:
  - name: bad
    type: tarball
    path: /data
`
	filePath := path.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(filePath, []byte(contents), 0644))
	_, err := FromYAMLFile(filePath)
	require.Error(t, err, "unknown source types must fail at configuration load, before any I/O")
}
