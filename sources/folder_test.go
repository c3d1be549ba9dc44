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

func TestFolderStructureMissingRoot(t *testing.T) {
	r := newTestReader(t, 1, 3)
	batch, err := r.Read(Descriptor{
		Name: "gone", Type: TypeFolderStructure, Path: path.Join(t.TempDir(), "nope"), Weight: 1,
	})
	require.NoError(t, err, "a missing path is a soft failure")
	assert.Equal(t, 0, batch.Len())
}

func TestFolderStructureSkipsMissingClassDir(t *testing.T) {
	// Classes 0 and 1 populated, class 2 (of 3 configured) absent.
	root := t.TempDir()
	require.NoError(t, os.Mkdir(path.Join(root, "0"), 0755))
	require.NoError(t, os.Mkdir(path.Join(root, "1"), 0755))
	writePNG(t, path.Join(root, "0", "a.png"), 4, 10)
	writePNG(t, path.Join(root, "0", "b.PNG"), 4, 11) // extension match is case-insensitive
	writePNG(t, path.Join(root, "1", "a.png"), 4, 12)
	writePNG(t, path.Join(root, "1", "b.png"), 4, 13)
	writePNG(t, path.Join(root, "1", "c.png"), 4, 14)

	r := newTestReader(t, 1, 3)
	batch, err := r.Read(Descriptor{Name: "tree", Type: TypeFolderStructure, Path: root, Weight: 1})
	require.NoError(t, err)
	require.Equal(t, 5, batch.Len())

	dist := batch.ClassDistribution(3)
	assert.Equal(t, map[corpus.Label]int{0: 2, 1: 3}, dist)
	_, hasClass2 := dist[2]
	assert.False(t, hasClass2, "empty class must be omitted from the distribution")
}

func TestFolderStructureSkipsJunkFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(path.Join(root, "0"), 0755))
	require.NoError(t, os.Mkdir(path.Join(root, "1"), 0755))
	writePNG(t, path.Join(root, "0", "good.png"), 4, 10)
	// Not an image despite the extension: decoder failure, skipped.
	require.NoError(t, os.WriteFile(path.Join(root, "0", "broken.jpg"), []byte("not an image"), 0644))
	// Unrecognized extension: never opened.
	require.NoError(t, os.WriteFile(path.Join(root, "0", "notes.txt"), []byte("hello"), 0644))
	writePNG(t, path.Join(root, "1", "good.png"), 4, 20)

	r := newTestReader(t, 1, 2)
	batch, err := r.Read(Descriptor{Name: "tree", Type: TypeFolderStructure, Path: root, Weight: 1})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, []corpus.Label{0, 1}, batch.Labels())
}

func TestFolderStructureNormalizesShape(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(path.Join(root, "0"), 0755))
	require.NoError(t, os.Mkdir(path.Join(root, "1"), 0755))
	writePNG(t, path.Join(root, "0", "small.png"), 4, 50)
	writePNG(t, path.Join(root, "1", "large.png"), 16, 90) // resized down to 4x4

	r := newTestReader(t, 1, 2)
	batch, err := r.Read(Descriptor{Name: "tree", Type: TypeFolderStructure, Path: root, Weight: 1})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	for i := 0; i < batch.Len(); i++ {
		require.Len(t, batch.Image(i), batch.Shape().Size(), "every image must match the target shape")
	}
}
