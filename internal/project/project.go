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

// Package project models a pkm project's manifest: metadata, dependency
// groups/extras, and the build-system declaration used when producing
// sdists and wheels.
package project

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pkm-project/pkm/internal/config"
	"github.com/pkm-project/pkm/internal/dependency"
)

// Manifest is the parsed contents of pkm.toml at a project's root.
type Manifest struct {
	Project     ProjectMeta         `toml:"project"`
	BuildSystem BuildSystem         `toml:"build-system"`
	Groups      map[string][]string `toml:"dependency-groups"`
}

// ProjectMeta mirrors the [project] table: name, version, runtime
// dependencies, and the named extras a consumer can opt into.
type ProjectMeta struct {
	Name        string              `toml:"name"`
	Version     string              `toml:"version"`
	Description string              `toml:"description"`
	License     string              `toml:"license"`
	Requires    []string            `toml:"dependencies"`
	Extras      map[string][]string `toml:"optional-dependencies"`
	RequiresPy  string              `toml:"requires-python"`
}

// BuildSystem mirrors [build-system]: which backend builds this project
// and what it needs to be invoked.
type BuildSystem struct {
	Requires   []string `toml:"requires"`
	BackendRef string   `toml:"build-backend"`
}

// ManifestPath is the conventional manifest filename at a project root.
const ManifestPath = "pkm.toml"

// Load reads and parses the manifest at dir/pkm.toml.
func Load(dir string) (*Manifest, error) {
	var m Manifest
	if err := config.ReadTOML(filepath.Join(dir, ManifestPath), &m); err != nil {
		return nil, errors.Wrapf(err, "loading project manifest in %s", dir)
	}
	return &m, nil
}

// Save writes the manifest back to dir/pkm.toml.
func (m *Manifest) Save(dir string) error {
	return config.WriteTOML(filepath.Join(dir, ManifestPath), m)
}

// Dependencies returns every dependency the manifest declares, tagged by
// which group or extra introduced it: "" is the unconditional runtime set,
// "extra:NAME" an optional-dependencies entry, and the dependency-groups
// key for anything under [dependency-groups].
func (m *Manifest) Dependencies() ([]dependency.Dependency, error) {
	var out []dependency.Dependency

	collect := func(specs []string, group string) error {
		for _, raw := range specs {
			dep, err := dependency.Parse(raw)
			if err != nil {
				return errors.Wrapf(err, "parsing dependency %q", raw)
			}
			dep.Group = group
			out = append(out, dep)
		}
		return nil
	}

	if err := collect(m.Project.Requires, ""); err != nil {
		return nil, err
	}
	for extra, specs := range m.Project.Extras {
		if err := collect(specs, "extra:"+extra); err != nil {
			return nil, err
		}
	}
	for group, specs := range m.Groups {
		if err := collect(specs, group); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// HasExtra reports whether name is declared under [project.optional-dependencies].
func (m *Manifest) HasExtra(name string) bool {
	_, ok := m.Project.Extras[name]
	return ok
}
