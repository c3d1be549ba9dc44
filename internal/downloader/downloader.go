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

// Package downloader fetches remote corpus files into the local cache
// directory, with optional sha256 verification and a progress bar.
package downloader

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// FileExists returns true if the file or directory exists.
func FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	if err == nil {
		return true
	}
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	panic(err)
}

// ReplaceTildeInDir replaces a leading "~" with the user's home directory.
// Returns dir unchanged if it doesn't start with "~".
func ReplaceTildeInDir(dir string) string {
	if len(dir) == 0 || dir[0] != '~' {
		return dir
	}
	usr, err := user.Current()
	if err != nil {
		return dir
	}
	return path.Join(usr.HomeDir, dir[1:])
}

// ValidateChecksum verifies the sha256 of the file at the given path. On a
// mismatch it removes the file (!) and returns an error.
func ValidateChecksum(filePath, checkHash string) error {
	hasher := sha256.New()
	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "opening %q for checksum", filePath)
	}
	defer func() { _ = f.Close() }()
	if _, err = io.Copy(hasher, f); err != nil {
		return errors.Wrapf(err, "hashing %q", filePath)
	}
	fileHash := hex.EncodeToString(hasher.Sum(nil))
	if fileHash != strings.ToLower(checkHash) {
		err = errors.Errorf("file %q sha256 hash is %q, but expected %q, deleting file",
			filePath, fileHash, checkHash)
		if e2 := os.Remove(filePath); e2 != nil {
			klog.Errorf("failed to remove %q, which failed its checksum test, please remove it: %+v", filePath, e2)
		}
		return err
	}
	return nil
}

// Download fetches url into filePath, creating the directory if needed. A
// non-200 response fails without touching the file, so a 404 body never ends
// up cached.
func Download(url, filePath string, showProgressBar bool) (size int64, err error) {
	filePath = ReplaceTildeInDir(filePath)
	if err = os.MkdirAll(path.Dir(filePath), 0777); err != nil && !os.IsExist(err) {
		return 0, errors.Wrapf(err, "creating directory for %q", filePath)
	}
	client := http.Client{
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			r.URL.Opaque = r.URL.Path
			return nil
		},
	}
	resp, err := client.Get(url)
	if err != nil {
		return 0, errors.Wrapf(err, "downloading %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("downloading %q: got status %q", url, resp.Status)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return 0, errors.Wrapf(err, "creating file %q", filePath)
	}
	var w io.Writer = file
	var bar *progressbar.ProgressBar
	if showProgressBar {
		bar = progressbar.DefaultBytes(resp.ContentLength, humanize.IBytes(uint64(max(resp.ContentLength, 0))))
		w = io.MultiWriter(file, bar)
	}
	size, err = io.Copy(w, resp.Body)
	if bar != nil {
		_ = bar.Close()
	}
	if err != nil {
		_ = file.Close()
		return 0, errors.Wrapf(err, "downloading %q to %q", url, filePath)
	}
	if err = file.Close(); err != nil {
		return 0, errors.Wrapf(err, "closing %q", filePath)
	}
	return size, nil
}

// DownloadIfMissing downloads the file from the given URL if the path doesn't
// exist yet. If checkHash is not empty the file must match it, fresh or cached.
func DownloadIfMissing(url, filePath, checkHash string) error {
	filePath = ReplaceTildeInDir(filePath)
	if !FileExists(filePath) {
		klog.Infof("downloading %s ...", url)
		if _, err := Download(url, filePath, true); err != nil {
			return err
		}
	}
	if checkHash == "" {
		return nil
	}
	return ValidateChecksum(filePath, checkHash)
}
