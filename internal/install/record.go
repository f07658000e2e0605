// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package install lays installed packages out on disk (purelib, platlib,
// scripts, data) and tracks them via a RECORD manifest and .dist-info
// metadata, mirroring what a wheel installer writes.
package install

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// RecordEntry is one row of a RECORD file: a file's path relative to the
// environment root, its content hash, and its size in bytes.
type RecordEntry struct {
	Path string
	Hash string // "sha256=<base64url, no padding>", empty for generated files
	Size int64
}

// RecordFileName is the conventional filename inside a package's dist-info.
const RecordFileName = "RECORD"

// EncodeRecord renders entries as RECORD's CSV body, for callers that
// need the bytes directly (e.g. embedding RECORD in an in-memory
// archive) rather than a file on disk.
func EncodeRecord(entries []RecordEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, e := range entries {
		size := ""
		if e.Size > 0 || e.Hash != "" {
			size = strconv.FormatInt(e.Size, 10)
		}
		if err := w.Write([]string{e.Path, e.Hash, size}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRecord writes entries as a RECORD CSV file at path.
func WriteRecord(path string, entries []RecordEntry) error {
	data, err := EncodeRecord(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	return nil
}

// ReadRecord parses a RECORD CSV file.
func ReadRecord(path string) ([]RecordEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	entries := make([]RecordEntry, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		e := RecordEntry{Path: row[0]}
		if len(row) > 1 {
			e.Hash = row[1]
		}
		if len(row) > 2 && row[2] != "" {
			size, err := strconv.ParseInt(row[2], 10, 64)
			if err == nil {
				e.Size = size
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// HashFile computes the RECORD-style "sha256=<b64url>" digest of path,
// alongside its size.
func HashFile(path string) (hash string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	sum := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("sha256=%s", sum), n, nil
}

// HashBytes computes the RECORD-style "sha256=<b64url>" digest of data,
// for content that hasn't been written to disk yet (e.g. while building
// an archive in memory).
func HashBytes(data []byte) (hash string, size int64) {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("sha256=%s", base64.RawURLEncoding.EncodeToString(sum[:])), int64(len(data))
}

// Verify recomputes the hash of every entry with a recorded hash and
// reports the first mismatch or missing file it finds.
func Verify(root string, entries []RecordEntry) error {
	for _, e := range entries {
		if e.Hash == "" {
			continue
		}
		full := root + string(os.PathSeparator) + e.Path
		got, _, err := HashFile(full)
		if err != nil {
			return errors.Wrapf(err, "verifying %s", e.Path)
		}
		if got != e.Hash {
			return errors.Errorf("hash mismatch for %s: recorded %s, found %s", e.Path, e.Hash, got)
		}
	}
	return nil
}
