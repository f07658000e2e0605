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

package template

import "fmt"

// StandardTemplate scaffolds a minimal pkm project: a manifest, a
// package directory, and a single module file.
type StandardTemplate struct{}

func (StandardTemplate) Name() string { return "standard" }

func (StandardTemplate) Render(vars map[string]string) ([]File, error) {
	name := vars["name"]
	if name == "" {
		name = "project"
	}
	version := vars["version"]
	if version == "" {
		version = "0.1.0"
	}
	pkgDir := vars["package"]
	if pkgDir == "" {
		pkgDir = name
	}

	manifest := fmt.Sprintf(`[project]
name = %q
version = %q
description = "Add a description here."
dependencies = []

[build-system]
requires = ["pkm-build"]
build-backend = "pkm.build"
`, name, version)

	initPy := "__version__ = \"" + version + "\"\n"

	return []File{
		{Path: "pkm.toml", Content: []byte(manifest)},
		{Path: pkgDir + "/__init__.py", Content: []byte(initPy)},
		{Path: "README.md", Content: []byte("# " + name + "\n")},
	}, nil
}

var _ Template = StandardTemplate{}
