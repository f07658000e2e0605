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

// Package template renders the scaffold pkm writes out for `pkm new`.
// Rendering runs inside a Sandbox so a project template can never read or
// write outside the directory being created.
package template

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Sandbox confines template output to a single root directory. Every path
// a template writes is joined against and verified to stay under root,
// rejecting "../" escapes before touching the filesystem.
type Sandbox struct {
	root string
}

// NewSandbox creates a Sandbox rooted at dir. dir must already exist.
func NewSandbox(dir string) (*Sandbox, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving sandbox root %s", dir)
	}
	return &Sandbox{root: abs}, nil
}

func (s *Sandbox) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(relPath)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", errors.Errorf("template path %q escapes sandbox", relPath)
	}
	full := filepath.Join(s.root, cleaned)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", errors.Errorf("template path %q escapes sandbox", relPath)
	}
	return full, nil
}

// WriteFile renders content to relPath inside the sandbox, creating parent
// directories as needed.
func (s *Sandbox) WriteFile(relPath string, content []byte, perm os.FileMode) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", relPath)
	}
	return os.WriteFile(full, content, perm)
}

// Mkdir creates relPath (and parents) inside the sandbox.
func (s *Sandbox) Mkdir(relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

// File is one rendered output of a Template.
type File struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

// Template produces the files for a new project, given substitution
// variables (project name, author, Python requirement, etc).
type Template interface {
	Name() string
	Render(vars map[string]string) ([]File, error)
}

// Apply renders tmpl and writes every file into sandbox.
func Apply(sandbox *Sandbox, tmpl Template, vars map[string]string) error {
	files, err := tmpl.Render(vars)
	if err != nil {
		return errors.Wrapf(err, "rendering template %s", tmpl.Name())
	}
	for _, f := range files {
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		if err := sandbox.WriteFile(f.Path, f.Content, mode); err != nil {
			return errors.Wrapf(err, "writing %s", f.Path)
		}
	}
	return nil
}
