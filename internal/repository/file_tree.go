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

package repository

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/project"
	"github.com/pkm-project/pkm/internal/version"
)

// FileTree is a repository backed by a flat directory of distribution
// archives (`<name>-<version>-*.whl`, `<name>-<version>.tar.gz`) — the
// `--find-links` style local cache of prebuilt artifacts.
type FileTree struct {
	Dir string

	mu    sync.Mutex
	cache map[string][]Package
}

// NewFileTree opens a flat-file repository rooted at dir.
func NewFileTree(dir string) *FileTree {
	return &FileTree{Dir: dir, cache: make(map[string][]Package)}
}

func (f *FileTree) Match(dep dependency.Dependency) ([]Package, error) {
	if dep.IsURLDependency() {
		return nil, nil
	}
	normalized := dependency.NormalizeName(dep.Name)

	f.mu.Lock()
	cached, ok := f.cache[normalized]
	f.mu.Unlock()
	if !ok {
		scanned, err := f.scan(normalized)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.cache[normalized] = scanned
		cached = scanned
		f.mu.Unlock()
	}

	var matched []Package
	for _, pkg := range cached {
		if dep.Spec.AllowsVersion(pkg.Version) {
			matched = append(matched, pkg)
		}
	}
	return matched, nil
}

func (f *FileTree) scan(normalizedName string) ([]Package, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "scanning file tree %s", f.Dir)
	}

	var pkgs []Package
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ver, ok := parseDistFilename(e.Name())
		if !ok || dependency.NormalizeName(name) != normalizedName {
			continue
		}
		path := filepath.Join(f.Dir, e.Name())
		pkgs = append(pkgs, Package{
			Name:    normalizedName,
			Version: ver,
			Dependencies: func() ([]dependency.Dependency, error) {
				return dependenciesFromArchive(path)
			},
		})
	}
	return pkgs, nil
}

// SourceTree is a repository backed by a project-layout source directory
// (a `pkm.toml` manifest alongside package code, not an archive) — the
// "editable install from a local path" case.
type SourceTree struct {
	Dir string
}

// NewSourceTree opens a source-tree repository rooted at a project dir.
func NewSourceTree(dir string) *SourceTree { return &SourceTree{Dir: dir} }

func (s *SourceTree) Match(dep dependency.Dependency) ([]Package, error) {
	isFileURL := strings.HasPrefix(dep.URL, "file+") || strings.HasPrefix(dep.URL, "file://")
	if !dep.IsURLDependency() || !isFileURL {
		return nil, nil
	}

	manifest, err := project.Load(s.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "loading project at %s", s.Dir)
	}
	if dependency.NormalizeName(manifest.Project.Name) != dependency.NormalizeName(dep.Name) {
		return nil, nil
	}

	ver, err := version.Parse(manifest.Project.Version)
	if err != nil {
		ver = version.Named(manifest.Project.Version)
	}

	return []Package{{
		Name:    dependency.NormalizeName(manifest.Project.Name),
		Version: ver,
		Dependencies: func() ([]dependency.Dependency, error) {
			return manifest.Dependencies()
		},
	}}, nil
}

// dependenciesFromArchive is a placeholder hook: reading a wheel's
// METADATA requires unpacking the archive, which is internal/build's
// job once it has decided this candidate is the one being installed.
func dependenciesFromArchive(string) ([]dependency.Dependency, error) {
	return nil, nil
}
