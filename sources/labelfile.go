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
	"bufio"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/edgevision/digits/corpus"
	"github.com/edgevision/digits/internal/downloader"
	"k8s.io/klog/v2"
)

const (
	manifestName  = "labels.txt"
	imagesSubdir  = "images"
	manifestSplit = 2 // filename + label
)

// readLabelFile loads <root>/labels.txt ("filename label" per line) paired with
// <root>/images/<filename>. A pair is added only when the line is well formed,
// the file exists and it decodes; anything else is skipped with a log line.
func (r *Reader) readLabelFile(root string) (*corpus.Batch, error) {
	batch := corpus.New(r.shape)
	root = downloader.ReplaceTildeInDir(root)
	manifestPath := path.Join(root, manifestName)
	imagesDir := path.Join(root, imagesSubdir)
	if !downloader.FileExists(manifestPath) || !downloader.FileExists(imagesDir) {
		klog.Warningf("label-file source %q needs both %q and an %q directory, skipping", root, manifestName, imagesSubdir)
		return batch, nil
	}

	f, err := os.Open(manifestPath)
	if err != nil {
		klog.Warningf("cannot open manifest %q (%v), skipping source", manifestPath, err)
		return batch, nil
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) < manifestSplit {
			continue
		}
		label, err := strconv.Atoi(fields[1])
		if err != nil {
			klog.V(1).Infof("%s:%d: label %q is not an integer, skipping line", manifestPath, lineNum, fields[1])
			continue
		}
		imagePath := path.Join(imagesDir, fields[0])
		if !downloader.FileExists(imagePath) {
			klog.V(1).Infof("%s:%d: image %q does not exist, skipping line", manifestPath, lineNum, imagePath)
			continue
		}
		img, err := imaging.Open(imagePath)
		if err != nil {
			klog.V(1).Infof("%s:%d: cannot decode %q (%v), skipping line", manifestPath, lineNum, imagePath, err)
			continue
		}
		batch.Append(r.normalize(img), corpus.Label(label))
	}
	if err := scanner.Err(); err != nil {
		klog.Warningf("reading manifest %q stopped early: %v", manifestPath, err)
	}
	return batch, nil
}
