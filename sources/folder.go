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
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/edgevision/digits/corpus"
	"github.com/edgevision/digits/internal/downloader"
	"k8s.io/klog/v2"
)

// imageExtensions are the file suffixes a folder source recognizes,
// case-insensitive.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// readFolderStructure loads <root>/<class>/<image files> for every class index
// in [0, numClasses). Missing directories and undecodable files are skipped.
func (r *Reader) readFolderStructure(root string) (*corpus.Batch, error) {
	batch := corpus.New(r.shape)
	root = downloader.ReplaceTildeInDir(root)
	if !downloader.FileExists(root) {
		klog.Warningf("folder source path %q not found, skipping", root)
		return batch, nil
	}
	for class := 0; class < r.numClasses; class++ {
		classDir := path.Join(root, strconv.Itoa(class))
		entries, err := os.ReadDir(classDir)
		if err != nil {
			klog.V(1).Infof("class directory %q not readable (%v), class %d contributes nothing", classDir, err, class)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !imageExtensions[strings.ToLower(path.Ext(entry.Name()))] {
				continue
			}
			filePath := path.Join(classDir, entry.Name())
			img, err := imaging.Open(filePath)
			if err != nil {
				klog.V(1).Infof("skipping undecodable image %q: %v", filePath, err)
				continue
			}
			batch.Append(r.normalize(img), corpus.Label(class))
		}
	}
	return batch, nil
}
