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

package sources

import (
	"compress/gzip"
	"encoding/binary"
	"image"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/edgevision/digits/corpus"
	"github.com/edgevision/digits/internal/downloader"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// The builtin "mnist" corpus: the classic handwritten digits database, fetched
// as the original idx-format files.
const (
	mnistURL         = "https://storage.googleapis.com/cvdf-datasets/mnist"
	mnistTrainImages = "train-images-idx3-ubyte.gz"
	mnistTrainLabels = "train-labels-idx1-ubyte.gz"
	mnistTestImages  = "t10k-images-idx3-ubyte.gz"
	mnistTestLabels  = "t10k-labels-idx1-ubyte.gz"
	mnistImageMagic  = 0x00000803
	mnistLabelMagic  = 0x00000801
	mnistCacheSubdir = "mnist"
)

type mnistFile struct {
	name   string
	sha256 string
}

// mnistFiles lists the idx files of the corpus with their published sha256
// hashes. Fresh downloads and cached copies are both validated against them;
// a mismatching cache file is removed so the next run re-fetches it.
var mnistFiles = []mnistFile{
	{mnistTrainImages, "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609"},
	{mnistTrainLabels, "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c"},
	{mnistTestImages, "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6"},
	{mnistTestLabels, "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6"},
}

type idxImageHeader struct {
	Magic     int32
	NumImages int32
	Height    int32
	Width     int32
}

type idxLabelHeader struct {
	Magic     int32
	NumLabels int32
}

// readBuiltin loads a named builtin corpus. An unknown name is a soft failure:
// it is logged and an empty batch is returned. A download or parse failure is
// a real error, so the caller can distinguish "nothing there" from "broken".
func (r *Reader) readBuiltin(name string) (*corpus.Batch, error) {
	if strings.ToLower(name) != "mnist" {
		klog.Warningf("unknown builtin corpus %q, skipping", name)
		return corpus.New(r.shape), nil
	}
	baseDir := path.Join(downloader.ReplaceTildeInDir(r.dataDir), mnistCacheSubdir)
	for _, file := range mnistFiles {
		fileURL, _ := url.JoinPath(mnistURL, file.name)
		if err := downloader.DownloadIfMissing(fileURL, path.Join(baseDir, file.name), file.sha256); err != nil {
			return nil, errors.WithMessagef(err, "fetching builtin corpus %q", name)
		}
	}

	batch := corpus.New(r.shape)
	// Train and test halves are merged: splitting is the pipeline's job.
	for _, part := range []struct{ images, labels string }{
		{mnistTrainImages, mnistTrainLabels},
		{mnistTestImages, mnistTestLabels},
	} {
		images, err := readIdxImages(path.Join(baseDir, part.images))
		if err != nil {
			return nil, err
		}
		labels, err := readIdxLabels(path.Join(baseDir, part.labels))
		if err != nil {
			return nil, err
		}
		if len(images) != len(labels) {
			return nil, errors.Errorf("builtin corpus %q: %d images but %d labels in %q/%q",
				name, len(images), len(labels), part.images, part.labels)
		}
		for i, img := range images {
			batch.Append(r.normalize(img), corpus.Label(labels[i]))
		}
	}
	return batch, nil
}

// readIdxImages parses a gzipped idx3-ubyte image file into grayscale images.
func readIdxImages(filePath string) ([]image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", filePath)
	}
	defer func() { _ = f.Close() }()
	reader, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decompressing %q", filePath)
	}
	defer func() { _ = reader.Close() }()

	var header idxImageHeader
	if err = binary.Read(reader, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(err, "reading idx header of %q", filePath)
	}
	if header.Magic != mnistImageMagic || header.Height <= 0 || header.Width <= 0 {
		return nil, errors.Errorf("%q is not an idx image file", filePath)
	}

	rect := image.Rect(0, 0, int(header.Width), int(header.Height))
	size := int(header.Width) * int(header.Height)
	images := make([]image.Image, header.NumImages)
	for i := range images {
		pix := make([]byte, size)
		if err = binary.Read(reader, binary.BigEndian, &pix); err != nil {
			return nil, errors.Wrapf(err, "reading image #%d of %q", i, filePath)
		}
		images[i] = &image.Gray{Pix: pix, Stride: int(header.Width), Rect: rect}
	}
	return images, nil
}

// readIdxLabels parses a gzipped idx1-ubyte label file.
func readIdxLabels(filePath string) ([]int8, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", filePath)
	}
	defer func() { _ = f.Close() }()
	reader, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decompressing %q", filePath)
	}
	defer func() { _ = reader.Close() }()

	var header idxLabelHeader
	if err = binary.Read(reader, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(err, "reading idx header of %q", filePath)
	}
	if header.Magic != mnistLabelMagic {
		return nil, errors.Errorf("%q is not an idx label file", filePath)
	}
	labels := make([]int8, header.NumLabels)
	if err = binary.Read(reader, binary.BigEndian, &labels); err != nil {
		return nil, errors.Wrapf(err, "reading labels of %q", filePath)
	}
	return labels, nil
}
