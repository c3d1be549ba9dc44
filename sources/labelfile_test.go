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
	"testing"

	"github.com/edgevision/digits/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLabelFileSource(t *testing.T, manifest string, images map[string]uint8) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(path.Join(root, "images"), 0755))
	require.NoError(t, os.WriteFile(path.Join(root, "labels.txt"), []byte(manifest), 0644))
	for name, gray := range images {
		writePNG(t, path.Join(root, "images", name), 4, gray)
	}
	return root
}

func TestLabelFileSkipsMissingImage(t *testing.T) {
	// Three manifest lines, one referencing a file that doesn't exist.
	root := writeLabelFileSource(t, "a.png 0\nb.png 1\nmissing.png 2\n",
		map[string]uint8{"a.png": 10, "b.png": 20})

	r := newTestReader(t, 1, 3)
	batch, err := r.Read(Descriptor{Name: "manifest", Type: TypeLabelFile, Path: root, Weight: 1})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	assert.ElementsMatch(t, []corpus.Label{0, 1}, batch.Labels())
}

func TestLabelFileSkipsMalformedLines(t *testing.T) {
	manifest := "a.png 0\n" +
		"only-one-token\n" + // fewer than 2 tokens
		"b.png seven\n" + // label not an integer
		"\n" + // blank
		"c.png 2 trailing tokens are fine\n"
	root := writeLabelFileSource(t, manifest,
		map[string]uint8{"a.png": 10, "b.png": 20, "c.png": 30})

	r := newTestReader(t, 1, 3)
	batch, err := r.Read(Descriptor{Name: "manifest", Type: TypeLabelFile, Path: root, Weight: 1})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	assert.ElementsMatch(t, []corpus.Label{0, 2}, batch.Labels())
}

func TestLabelFileMissingLayout(t *testing.T) {
	r := newTestReader(t, 1, 3)

	// No labels.txt at all.
	batch, err := r.Read(Descriptor{Name: "m", Type: TypeLabelFile, Path: t.TempDir(), Weight: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())

	// Manifest but no images/ directory.
	root := t.TempDir()
	require.NoError(t, os.WriteFile(path.Join(root, "labels.txt"), []byte("a.png 0\n"), 0644))
	batch, err = r.Read(Descriptor{Name: "m", Type: TypeLabelFile, Path: root, Weight: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
}

func TestLabelFileSkipsUndecodableImage(t *testing.T) {
	root := writeLabelFileSource(t, "a.png 0\nbad.png 1\n", map[string]uint8{"a.png": 10})
	require.NoError(t, os.WriteFile(path.Join(root, "images", "bad.png"), []byte("junk"), 0644))

	r := newTestReader(t, 1, 3)
	batch, err := r.Read(Descriptor{Name: "manifest", Type: TypeLabelFile, Path: root, Weight: 1})
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, corpus.Label(0), batch.Label(0))
}
