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

package downloader

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, FileExists(dir))
	assert.False(t, FileExists(path.Join(dir, "nope")))

	filePath := path.Join(dir, "file")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0644))
	assert.True(t, FileExists(filePath))
}

func TestReplaceTildeInDir(t *testing.T) {
	assert.Equal(t, "/data/digits", ReplaceTildeInDir("/data/digits"))
	assert.Equal(t, "", ReplaceTildeInDir(""))
	expanded := ReplaceTildeInDir("~/digits")
	assert.NotContains(t, expanded, "~")
}

func TestValidateChecksum(t *testing.T) {
	filePath := path.Join(t.TempDir(), "blob")
	contents := []byte("labeled digits")
	require.NoError(t, os.WriteFile(filePath, contents, 0644))
	sum := sha256.Sum256(contents)

	require.NoError(t, ValidateChecksum(filePath, hex.EncodeToString(sum[:])))

	// A wrong hash fails AND removes the file.
	require.Error(t, ValidateChecksum(filePath, "deadbeef"))
	assert.False(t, FileExists(filePath))
}

func TestDownloadAndDownloadIfMissing(t *testing.T) {
	payload := []byte("idx file payload")
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	filePath := path.Join(t.TempDir(), "cache", "blob.gz")
	size, err := Download(server.URL+"/blob.gz", filePath, false)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), size)
	got, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Already present: no second fetch.
	require.NoError(t, DownloadIfMissing(server.URL+"/blob.gz", filePath, ""))
	assert.Equal(t, int32(1), hits.Load())

	// Present and matching the expected hash.
	sum := sha256.Sum256(payload)
	require.NoError(t, DownloadIfMissing(server.URL+"/blob.gz", filePath, hex.EncodeToString(sum[:])))
	assert.Equal(t, int32(1), hits.Load())

	// Missing file gets fetched.
	otherPath := path.Join(t.TempDir(), "other.gz")
	require.NoError(t, DownloadIfMissing(server.URL+"/blob.gz", otherPath, hex.EncodeToString(sum[:])))
	assert.Equal(t, int32(2), hits.Load())
}

func TestDownloadRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	filePath := path.Join(t.TempDir(), "cache", "missing.gz")
	_, err := Download(server.URL+"/missing.gz", filePath, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.False(t, FileExists(filePath), "a failed download must not leave a cache file behind")
}
