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

// Package env manages the zoo of environments pkm installs packages into:
// general-purpose environments shared across projects, and per-application
// environments dedicated to a single project. Store provides a
// content-addressed package store; the Zoo itself does not use it.
package env

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/pkm-project/pkm/internal/config"
)

// Kind distinguishes the two environment flavors.
type Kind int

const (
	// KindGeneral is a shared environment, reusable across projects.
	KindGeneral Kind = iota
	// KindApplication is dedicated to exactly one project.
	KindApplication
)

// Environment is one interpreter installation pkm manages packages into.
type Environment struct {
	Name string
	Kind Kind
	Dir  string
}

// Zoo is the collection of environments under one pkm home.
type Zoo struct {
	home config.Home
}

// NewZoo opens the environment zoo rooted at home.
func NewZoo(home config.Home) *Zoo { return &Zoo{home: home} }

// General returns (creating on disk if necessary) the named general environment.
func (z *Zoo) General(name string) (*Environment, error) {
	dir := z.home.GeneralEnvDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating general environment %s", name)
	}
	return &Environment{Name: name, Kind: KindGeneral, Dir: dir}, nil
}

// Application returns (creating on disk if necessary) an application's
// dedicated environment.
func (z *Zoo) Application(appName string) (*Environment, error) {
	dir := z.home.ApplicationEnvDir(appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating application environment %s", appName)
	}
	return &Environment{Name: appName, Kind: KindApplication, Dir: dir}, nil
}

// SitePackages is where packages are installed inside this environment.
func (e *Environment) SitePackages() string {
	return filepath.Join(e.Dir, "lib", "site-packages")
}

// Lock acquires the environment's advisory lock, waiting until it is free
// or ctx is done, and returns an unlock function; the lock stays held
// until that function is called. Two pkm processes racing to install into
// the same environment serialize on this lock rather than corrupting the
// RECORD/dist-info tree.
func (z *Zoo) Lock(ctx context.Context, e *Environment) (func() error, error) {
	path := filepath.Join(z.home.LocksDir(), sanitizeLockName(e.Name)+".lock")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	fl := flock.NewFlock(path)
	for {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, errors.Wrapf(err, "locking environment %s", e.Name)
		}
		if locked {
			return fl.Unlock, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for lock on environment %s", e.Name)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func sanitizeLockName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// DiscoverInterpreters scans PATH for python3/python executables, the way
// a version manager's shims would be found, returning their absolute paths.
func DiscoverInterpreters() ([]string, error) {
	names := []string{"python3", "python"}
	if runtime.GOOS == "windows" {
		names = []string{"python.exe", "python3.exe"}
	}

	seen := make(map[string]bool)
	var found []string
	for _, name := range names {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		if !seen[path] {
			seen[path] = true
			found = append(found, path)
		}
	}
	return found, nil
}
