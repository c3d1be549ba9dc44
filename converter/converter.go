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

// Package converter exports trained float32 weights as a compact fixed-point
// model file for the microcontroller accelerator.
//
// Two schemes are supported: int8 affine quantization (per-tensor scale and
// zero point, with an optional representative batch to calibrate the input
// range) and float16. The container is little-endian, matching the target's
// byte order.
package converter

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/edgevision/digits/corpus"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// Scheme selects the on-device numeric format.
type Scheme uint8

const (
	// SchemeInt8 stores each tensor as int8 with an affine (scale, zero point) pair.
	SchemeInt8 Scheme = iota
	// SchemeFloat16 stores each tensor as IEEE 754 half precision.
	SchemeFloat16
)

// String implements fmt.Stringer.
func (s Scheme) String() string {
	switch s {
	case SchemeInt8:
		return "int8"
	case SchemeFloat16:
		return "float16"
	}
	return "unknown"
}

// Tensor is one named weight tensor of the trained model.
type Tensor struct {
	Name string
	Dims []int
	Data []float32
}

func (t *Tensor) elements() int {
	n := 1
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// Model is the trained model handed over by the training driver.
type Model struct {
	Name    string
	Input   corpus.Shape
	Tensors []Tensor
}

// Options configure a conversion.
type Options struct {
	Scheme Scheme

	// Calibration, for SchemeInt8, fixes the input quantization range from up
	// to MaxCalibrationImages representative images. Nil assumes the full
	// 0..255 pixel range.
	Calibration *corpus.Batch
}

// MaxCalibrationImages bounds how many representative images are scanned.
const MaxCalibrationImages = 100

// Quantized is a converted model ready to be serialized.
type Quantized struct {
	Name   string
	Input  corpus.Shape
	Scheme Scheme

	// InputScale and InputZeroPoint quantize incoming pixels for SchemeInt8.
	InputScale     float32
	InputZeroPoint int8

	Tensors []QuantizedTensor
}

// QuantizedTensor is one converted weight tensor.
type QuantizedTensor struct {
	Name string
	Dims []int

	// Scale and ZeroPoint apply for SchemeInt8: x ≈ scale * (q - zeroPoint).
	Scale     float32
	ZeroPoint int8

	Int8Data    []int8   // SchemeInt8
	Float16Data []uint16 // SchemeFloat16, raw half-precision bits
}

// Convert quantizes the model per the options.
func Convert(m *Model, opts Options) (*Quantized, error) {
	if len(m.Tensors) == 0 {
		return nil, errors.Errorf("model %q has no tensors to convert", m.Name)
	}
	q := &Quantized{Name: m.Name, Input: m.Input, Scheme: opts.Scheme}
	for i := range m.Tensors {
		t := &m.Tensors[i]
		if t.elements() != len(t.Data) {
			return nil, errors.Errorf("tensor %q: dims %v describe %d elements but data has %d",
				t.Name, t.Dims, t.elements(), len(t.Data))
		}
		switch opts.Scheme {
		case SchemeInt8:
			q.Tensors = append(q.Tensors, quantizeInt8(t))
		case SchemeFloat16:
			q.Tensors = append(q.Tensors, quantizeFloat16(t))
		default:
			return nil, errors.Errorf("unknown quantization scheme %d", opts.Scheme)
		}
	}
	if opts.Scheme == SchemeInt8 {
		q.InputScale, q.InputZeroPoint = calibrateInput(opts.Calibration)
	}
	return q, nil
}

// quantizeInt8 maps the tensor's [min, max] range (widened to include zero)
// onto the int8 range.
func quantizeInt8(t *Tensor) QuantizedTensor {
	lo, hi := float32(0), float32(0)
	for _, v := range t.Data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	scale := (hi - lo) / 255
	if scale == 0 {
		scale = 1
	}
	zeroPoint := int8(clampInt8(math.Round(float64(-128 - lo/scale))))

	out := QuantizedTensor{Name: t.Name, Dims: t.Dims, Scale: scale, ZeroPoint: zeroPoint}
	out.Int8Data = make([]int8, len(t.Data))
	for i, v := range t.Data {
		out.Int8Data[i] = int8(clampInt8(math.Round(float64(v/scale)) + float64(zeroPoint)))
	}
	return out
}

func quantizeFloat16(t *Tensor) QuantizedTensor {
	out := QuantizedTensor{Name: t.Name, Dims: t.Dims}
	out.Float16Data = make([]uint16, len(t.Data))
	for i, v := range t.Data {
		out.Float16Data[i] = float16.Fromfloat32(v).Bits()
	}
	return out
}

func clampInt8(v float64) float64 {
	return math.Max(-128, math.Min(127, v))
}

// calibrateInput derives the input (scale, zero point) from the pixel range of
// a representative batch, or from the full uint8 range when absent.
func calibrateInput(calibration *corpus.Batch) (float32, int8) {
	lo, hi := byte(0), byte(255)
	if calibration != nil && calibration.Len() > 0 {
		lo, hi = 255, 0
		n := min(calibration.Len(), MaxCalibrationImages)
		for i := 0; i < n; i++ {
			for _, p := range calibration.Image(i) {
				lo = min(lo, p)
				hi = max(hi, p)
			}
		}
	}
	if hi <= lo {
		return 1, -128
	}
	scale := float32(hi-lo) / 255
	zeroPoint := int8(clampInt8(math.Round(-128 - float64(lo)/float64(scale))))
	return scale, zeroPoint
}

// File container layout (all little-endian):
//
//	magic "QDM1" | version u16 | scheme u8 | input h,w,c u16 each |
//	inputScale f32 | inputZeroPoint i8 | tensorCount u16 | tensors...
//
// Each tensor: nameLen u16 | name | rank u8 | dims u32 each |
// scale f32 | zeroPoint i8 | payload (i8 or f16 bits).
var fileMagic = [4]byte{'Q', 'D', 'M', '1'}

const fileVersion uint16 = 1

// WriteTo serializes the quantized model.
func (q *Quantized) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	write := func(values ...any) error {
		for _, v := range values {
			if err := binary.Write(cw, binary.LittleEndian, v); err != nil {
				return errors.Wrapf(err, "serializing model %q", q.Name)
			}
		}
		return nil
	}
	if err := write(fileMagic, fileVersion, uint8(q.Scheme),
		uint16(q.Input.Height), uint16(q.Input.Width), uint16(q.Input.Channels),
		q.InputScale, q.InputZeroPoint, uint16(len(q.Tensors))); err != nil {
		return cw.n, err
	}
	for i := range q.Tensors {
		t := &q.Tensors[i]
		if err := write(uint16(len(t.Name)), []byte(t.Name), uint8(len(t.Dims))); err != nil {
			return cw.n, err
		}
		for _, d := range t.Dims {
			if err := write(uint32(d)); err != nil {
				return cw.n, err
			}
		}
		if err := write(t.Scale, t.ZeroPoint); err != nil {
			return cw.n, err
		}
		var payload any = t.Int8Data
		if q.Scheme == SchemeFloat16 {
			payload = t.Float16Data
		}
		if err := write(payload); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// SaveFile writes the quantized model to path and logs the resulting size.
func (q *Quantized) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	n, err := q.WriteTo(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "closing %q", path)
	}
	klog.Infof("quantized model (%s) saved: %s (%s)", q.Scheme, path, humanize.IBytes(uint64(n)))
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
