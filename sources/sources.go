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

// Package sources reads one declared data source -- the builtin MNIST corpus, a
// folder-per-class tree, or a manifest+images directory -- into a corpus.Batch.
//
// Readers are forgiving: a missing path, a missing class directory, an
// undecodable file or a malformed manifest line is skipped and logged, never
// fatal. A source that yields nothing simply returns an empty batch.
package sources

import (
	"github.com/edgevision/digits/corpus"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// Type tags how a source's files are laid out. It is a closed enumeration:
// configuration parsing rejects unknown tags before any I/O starts.
type Type int

const (
	// TypeInvalid is the zero value; it never passes configuration validation.
	TypeInvalid Type = iota

	// TypeBuiltin is a named, well-known corpus fetched and cached locally.
	TypeBuiltin

	// TypeFolderStructure is a directory with one sub-directory per class index,
	// each holding image files.
	TypeFolderStructure

	// TypeLabelFile is a directory with a labels.txt manifest ("filename label"
	// per line) and an images/ sub-directory.
	TypeLabelFile
)

var typeNames = map[Type]string{
	TypeBuiltin:         "builtin",
	TypeFolderStructure: "folder_structure",
	TypeLabelFile:       "label_file",
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "invalid"
}

// ParseType converts a configuration tag to a Type.
func ParseType(tag string) (Type, error) {
	for t, name := range typeNames {
		if name == tag {
			return t, nil
		}
	}
	return TypeInvalid, errors.Errorf("unknown source type %q, want one of \"builtin\", \"folder_structure\" or \"label_file\"", tag)
}

// UnmarshalYAML implements yaml.Unmarshaler, so unknown tags fail at
// configuration load time.
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	var tag string
	if err := node.Decode(&tag); err != nil {
		return errors.Wrap(err, "source type must be a string")
	}
	parsed, err := ParseType(tag)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Type) MarshalYAML() (any, error) {
	if name, ok := typeNames[t]; ok {
		return name, nil
	}
	return nil, errors.Errorf("cannot marshal invalid source type %d", int(t))
}

// Descriptor declares one data source. It is immutable for the duration of a run.
type Descriptor struct {
	// Name identifies the source in statistics and, for builtin sources, selects
	// the corpus ("mnist").
	Name string `yaml:"name"`

	// Type selects the reader.
	Type Type `yaml:"type"`

	// Path is the source root directory. Unused for builtin sources.
	Path string `yaml:"path"`

	// Weight in (0, 1] subsamples the source before merging; 1.0 keeps everything.
	Weight float64 `yaml:"weight"`
}

// Validate checks the descriptor before any I/O.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("source descriptor missing a name")
	}
	if _, ok := typeNames[d.Type]; !ok {
		return errors.Errorf("source %q has an invalid type", d.Name)
	}
	if d.Type != TypeBuiltin && d.Path == "" {
		return errors.Errorf("source %q (type %s) requires a path", d.Name, d.Type)
	}
	if d.Weight <= 0 || d.Weight > 1 {
		return errors.Errorf("source %q weight %g outside (0, 1]", d.Name, d.Weight)
	}
	return nil
}

// Reader loads sources and normalizes every image to one target shape, so
// batches from different sources can be merged.
type Reader struct {
	shape      corpus.Shape
	numClasses int
	dataDir    string // cache directory for builtin downloads
}

// NewReader creates a Reader that outputs batches with the given image shape
// and class count. dataDir caches builtin corpus downloads.
func NewReader(shape corpus.Shape, numClasses int, dataDir string) (*Reader, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if numClasses < 2 {
		return nil, errors.Errorf("need at least 2 classes, got %d", numClasses)
	}
	return &Reader{shape: shape, numClasses: numClasses, dataDir: dataDir}, nil
}

// Shape of every batch this reader produces.
func (r *Reader) Shape() corpus.Shape { return r.shape }

// Read loads one source. An empty batch (with a nil error) means the source
// had nothing usable; an error means the source machinery itself failed, e.g.
// a builtin corpus that could not be fetched.
func (r *Reader) Read(desc Descriptor) (*corpus.Batch, error) {
	switch desc.Type {
	case TypeBuiltin:
		return r.readBuiltin(desc.Name)
	case TypeFolderStructure:
		return r.readFolderStructure(desc.Path)
	case TypeLabelFile:
		return r.readLabelFile(desc.Path)
	default:
		// Validation rejects unknown types before Read can see them.
		klog.Warningf("source %q has unvalidated type %d, skipping", desc.Name, int(desc.Type))
		return corpus.New(r.shape), nil
	}
}
