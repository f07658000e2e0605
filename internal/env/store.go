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

package env

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/pkm-project/pkm/internal/config"
)

// Store is the content-addressed cache of installed package contents
// shared by every environment. A package's extracted files live once
// under the store, keyed by their content hash; environments link to it
// rather than duplicating the bytes.
type Store struct {
	root string
}

// NewStore opens the shared store rooted at home's store directory.
func NewStore(home config.Home) *Store { return &Store{root: home.StoreDir()} }

// Put copies srcDir's tree into the store under its content digest and
// returns the digest, so the caller can then materialize it into an
// environment via Link.
func (s *Store) Put(srcDir string) (string, error) {
	digest, err := hashTree(srcDir)
	if err != nil {
		return "", errors.Wrapf(err, "hashing %s", srcDir)
	}

	dst := filepath.Join(s.root, digest)
	if _, err := os.Stat(dst); err == nil {
		return digest, nil // already in the store, content-addressed dedup
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating store root %s", s.root)
	}
	tmp, err := os.MkdirTemp(s.root, digest+".tmp-")
	if err != nil {
		return "", errors.Wrap(err, "creating temp store entry")
	}

	// Copy into a temp-named sibling and rename into place so a
	// concurrent reader never observes a half-copied store entry.
	if err := copyTree(srcDir, tmp); err != nil {
		os.RemoveAll(tmp)
		return "", errors.Wrapf(err, "copying %s into store", srcDir)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.RemoveAll(tmp)
		if _, statErr := os.Stat(dst); statErr == nil {
			return digest, nil // another Put raced us and won; dst is equivalent
		}
		return "", errors.Wrapf(err, "moving store entry into place")
	}
	return digest, nil
}

// Link materializes the store entry named by digest at dst, preferring a
// hardlink (same filesystem, no extra space), falling back to a symlink
// (cross-filesystem but still instant), and finally a full copy when
// neither linking mode is permitted (e.g. some network filesystems).
func (s *Store) Link(digest, dst string) error {
	src := filepath.Join(s.root, digest)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	err := godirwalk.Walk(src, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			rel, relErr := filepath.Rel(src, path)
			if relErr != nil {
				return relErr
			}
			target := filepath.Join(dst, rel)
			if de.IsDir() {
				return os.MkdirAll(target, 0o755)
			}
			return linkFile(path, target)
		},
		Unsorted: true,
	})
	if err != nil {
		return errors.Wrapf(err, "linking store entry %s into %s", digest, dst)
	}
	return nil
}

func linkFile(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	if err := os.Symlink(src, dst); err == nil {
		return nil
	}
	return copyFile(src, dst)
}

func hashTree(dir string) (string, error) {
	h := sha256.New()
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			io.WriteString(h, rel)
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(h, f)
			return err
		},
		Unsorted: false,
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyTree(src, dst string) error {
	return godirwalk.Walk(src, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, rel)
			if de.IsDir() {
				return os.MkdirAll(target, 0o755)
			}
			return copyFile(path, target)
		},
		Unsorted: true,
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
