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

package install

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/pkm-project/pkm/internal/dependency"
)

// Target is the root an installation is performed into — an
// environment's site-packages tree, laid out the way a wheel installer
// expects: purelib/platlib for importable code, scripts for entry-point
// launchers, and data for everything else the wheel's RECORD carries.
type Target struct {
	Root string
}

func (t Target) PureLibDir() string { return filepath.Join(t.Root, "purelib") }
func (t Target) PlatLibDir() string { return filepath.Join(t.Root, "platlib") }
func (t Target) ScriptsDir() string { return filepath.Join(t.Root, "scripts") }
func (t Target) DataDir() string    { return filepath.Join(t.Root, "data") }

func (t Target) distInfoDir(name, version string) string {
	return filepath.Join(t.PureLibDir(), fmt.Sprintf("%s-%s.dist-info", name, version))
}

// Metadata is the subset of a dist-info METADATA file pkm surfaces on
// `pkm show`.
type Metadata struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Summary string `toml:"summary"`
	License string `toml:"license"`
}

// Package is one artifact of a build: the files to install plus the
// metadata that becomes .dist-info/METADATA.
type Package struct {
	Metadata Metadata
	Files    map[string][]byte // path relative to the appropriate root -> content
	Entries  []dependency.Dependency
}

// Install lays pkg down under t, writing purelib contents, a RECORD, and
// a METADATA file, and returns the RECORD entries it wrote.
func Install(t Target, pkg Package) ([]RecordEntry, error) {
	libDir := t.PureLibDir()
	var entries []RecordEntry

	for relPath, content := range pkg.Files {
		full := filepath.Join(libDir, relPath)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating directory for %s", relPath)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			return nil, errors.Wrapf(err, "writing %s", relPath)
		}
		hash, size, err := HashFile(full)
		if err != nil {
			return nil, err
		}
		entries = append(entries, RecordEntry{Path: filepath.Join("purelib", relPath), Hash: hash, Size: size})
	}

	distInfo := t.distInfoDir(pkg.Metadata.Name, pkg.Metadata.Version)
	if err := os.MkdirAll(distInfo, 0o755); err != nil {
		return nil, err
	}

	metaBytes, err := toml.Marshal(pkg.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "encoding METADATA")
	}
	metaPath := filepath.Join(distInfo, "METADATA")
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return nil, err
	}
	hash, size, err := HashFile(metaPath)
	if err != nil {
		return nil, err
	}
	relMeta, _ := filepath.Rel(t.Root, metaPath)
	entries = append(entries, RecordEntry{Path: relMeta, Hash: hash, Size: size})

	if pkg.Metadata.License != "" {
		licPath := filepath.Join(distInfo, "LICENSE")
		if err := os.WriteFile(licPath, []byte(pkg.Metadata.License), 0o644); err != nil {
			return nil, err
		}
		hash, size, err := HashFile(licPath)
		if err != nil {
			return nil, err
		}
		relLic, _ := filepath.Rel(t.Root, licPath)
		entries = append(entries, RecordEntry{Path: relLic, Hash: hash, Size: size})
	}

	recordPath := filepath.Join(distInfo, RecordFileName)
	recordEntries := append(append([]RecordEntry{}, entries...), RecordEntry{Path: mustRel(t.Root, recordPath)})
	if err := WriteRecord(recordPath, recordEntries); err != nil {
		return nil, err
	}

	if err := Verify(t.Root, recordEntries); err != nil {
		return nil, errors.Wrapf(err, "verifying install of %s %s", pkg.Metadata.Name, pkg.Metadata.Version)
	}

	return recordEntries, nil
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

// Uninstall removes every file listed in name@version's RECORD, then the
// now-empty dist-info directory itself.
func Uninstall(t Target, name, version string) error {
	distInfo := t.distInfoDir(name, version)
	entries, err := ReadRecord(filepath.Join(distInfo, RecordFileName))
	if err != nil {
		return errors.Wrapf(err, "reading RECORD for %s %s", name, version)
	}
	for _, e := range entries {
		full := filepath.Join(t.Root, e.Path)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", e.Path)
		}
	}
	return os.RemoveAll(distInfo)
}

// InstalledPackage is one entry of the environment's installed-package
// inventory, derived from a .dist-info directory's presence.
type InstalledPackage struct {
	NormalizedName string
	Metadata       Metadata
}

// Installed lists every package with a .dist-info directory under t.
func Installed(t Target) ([]InstalledPackage, error) {
	entries, err := os.ReadDir(t.PureLibDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []InstalledPackage
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".dist-info") {
			continue
		}
		metaPath := filepath.Join(t.PureLibDir(), e.Name(), "METADATA")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}
		var meta Metadata
		if err := toml.Unmarshal(data, &meta); err != nil {
			continue
		}
		result = append(result, InstalledPackage{
			NormalizedName: dependency.NormalizeName(meta.Name),
			Metadata:       meta,
		})
	}
	return result, nil
}
