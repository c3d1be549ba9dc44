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

// Package corpus holds labeled image batches: fixed-shape uint8 pixel rows paired
// with integer class labels.
//
// A Batch owns both the pixel data and the label vector, and every reordering or
// sub-selection goes through methods that move the two together. Code outside this
// package cannot permute images independently of their labels.
package corpus

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Label is the class of one image, in the range [0, numClasses).
type Label = int32

// Shape describes the dimensions every image of a Batch shares.
// Channels is 1 for grayscale and 3 for color.
type Shape struct {
	Height, Width, Channels int
}

// Size returns the number of bytes of one image with this shape.
func (s Shape) Size() int { return s.Height * s.Width * s.Channels }

// Validate returns an error if the shape cannot describe a pipeline image.
func (s Shape) Validate() error {
	if s.Height <= 0 || s.Width <= 0 {
		return errors.Errorf("invalid image shape %s: height and width must be positive", s)
	}
	if s.Channels != 1 && s.Channels != 3 {
		return errors.Errorf("invalid image shape %s: channels must be 1 (grayscale) or 3 (color)", s)
	}
	return nil
}

// String implements fmt.Stringer.
func (s Shape) String() string {
	return fmt.Sprintf("[%dx%dx%d]", s.Height, s.Width, s.Channels)
}

// Batch is an ordered collection of images of one shape and their labels.
// Index i of the pixel rows is labeled by index i of the label vector, always.
type Batch struct {
	shape  Shape
	pixels [][]byte
	labels []Label
}

// New returns an empty Batch that will hold images of the given shape.
func New(shape Shape) *Batch {
	return &Batch{shape: shape}
}

// Shape of every image in the batch.
func (b *Batch) Shape() Shape { return b.shape }

// Len returns the number of (image, label) pairs.
func (b *Batch) Len() int { return len(b.pixels) }

// Append adds one (image, label) pair. The pixel row length must match the
// batch shape -- a mismatch is a programming error and panics.
func (b *Batch) Append(pixels []byte, label Label) {
	if len(pixels) != b.shape.Size() {
		exceptions.Panicf("corpus.Batch.Append: pixel row has %d bytes, shape %s requires %d",
			len(pixels), b.shape, b.shape.Size())
	}
	b.pixels = append(b.pixels, pixels)
	b.labels = append(b.labels, label)
}

// Image returns the pixel row of pair i. The returned slice aliases the batch storage.
func (b *Batch) Image(i int) []byte { return b.pixels[i] }

// Label returns the label of pair i.
func (b *Batch) Label(i int) Label { return b.labels[i] }

// Labels returns a copy of the label vector.
func (b *Batch) Labels() []Label {
	out := make([]Label, len(b.labels))
	copy(out, b.labels)
	return out
}

// Take returns a new Batch with the pairs at the given indices, in the given
// order. Images and labels travel together. Indices out of range panic.
func (b *Batch) Take(indices []int) *Batch {
	for _, i := range indices {
		if i < 0 || i >= b.Len() {
			exceptions.Panicf("corpus.Batch.Take: index %d out of range [0, %d)", i, b.Len())
		}
	}
	return &Batch{
		shape:  b.shape,
		pixels: Select(b.pixels, indices),
		labels: Select(b.labels, indices),
	}
}

// Head returns a Batch with the first n pairs. It shares storage with b.
func (b *Batch) Head(n int) *Batch {
	if n < 0 || n > b.Len() {
		exceptions.Panicf("corpus.Batch.Head: n=%d out of range [0, %d]", n, b.Len())
	}
	return &Batch{shape: b.shape, pixels: b.pixels[:n], labels: b.labels[:n]}
}

// ClassDistribution counts label occurrences per class in [0, numClasses).
// Classes with zero occurrences are omitted from the returned map.
func (b *Batch) ClassDistribution(numClasses int) map[Label]int {
	dist := make(map[Label]int)
	for _, label := range b.labels {
		if label >= 0 && int(label) < numClasses {
			dist[label]++
		}
	}
	return dist
}

// Concat concatenates batches along the sample axis, preserving each batch's
// internal order and the argument order. All batches must agree on shape.
func Concat(batches ...*Batch) (*Batch, error) {
	if len(batches) == 0 {
		return nil, errors.New("corpus.Concat: no batches to concatenate")
	}
	shape := batches[0].shape
	total := 0
	for i, batch := range batches {
		if batch.shape != shape {
			return nil, errors.Errorf("corpus.Concat: batch #%d has shape %s, but batch #0 has shape %s -- "+
				"all sources must be normalized to one shape before merging", i, batch.shape, shape)
		}
		total += batch.Len()
	}
	out := &Batch{
		shape:  shape,
		pixels: make([][]byte, 0, total),
		labels: make([]Label, 0, total),
	}
	for _, batch := range batches {
		out.pixels = append(out.pixels, batch.pixels...)
		out.labels = append(out.labels, batch.labels...)
	}
	return out, nil
}

// Select returns the items of a slice at the given indices.
func Select[T any, I constraints.Integer](items []T, idx []I) []T {
	selected := make([]T, 0, len(idx))
	for _, i := range idx {
		if int(i) < len(items) {
			selected = append(selected, items[i])
		}
	}
	return selected
}
