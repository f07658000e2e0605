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

// Package config resolves pkm's on-disk home directory layout and reads
// the TOML configuration files that live under it.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pelletier/go-toml/v2"
)

// Home is the resolved root of pkm's persistent state: PKM_HOME if set,
// otherwise ~/.pkm.
type Home string

// Resolve determines the pkm home directory from the environment.
func Resolve() (Home, error) {
	if dir := os.Getenv("PKM_HOME"); dir != "" {
		return Home(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving user home directory")
	}
	return Home(filepath.Join(home, ".pkm")), nil
}

// EnvsDir holds the general and application environment trees.
func (h Home) EnvsDir() string { return filepath.Join(string(h), "envs") }

// StoreDir is the shared, content-addressed package store used to
// hardlink/symlink/copy installed package contents across environments.
func (h Home) StoreDir() string { return filepath.Join(string(h), "store") }

// CacheDir holds downloaded distributions and build artifacts.
func (h Home) CacheDir() string { return filepath.Join(string(h), "cache") }

// LocksDir holds advisory lock files for environments and the store.
func (h Home) LocksDir() string { return filepath.Join(string(h), "locks") }

// GeneralEnvDir is the path of the general-purpose environment named name.
func (h Home) GeneralEnvDir(name string) string {
	return filepath.Join(h.EnvsDir(), "general", name)
}

// ApplicationEnvDir is the path of an application's dedicated environment.
func (h Home) ApplicationEnvDir(appName string) string {
	return filepath.Join(h.EnvsDir(), "application", appName)
}

// EnsureLayout creates every directory in the home layout that does not
// yet exist.
func (h Home) EnsureLayout() error {
	dirs := []string{
		string(h), h.EnvsDir(), h.StoreDir(), h.CacheDir(), h.LocksDir(),
		filepath.Join(h.EnvsDir(), "general"), filepath.Join(h.EnvsDir(), "application"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return nil
}

// ReadTOML decodes the TOML file at path into v.
func ReadTOML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	return nil
}

// WriteTOML encodes v as TOML and writes it atomically to path.
func WriteTOML(path string, v any) error {
	data, err := toml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding TOML")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", tmp)
	}
	return os.Rename(tmp, path)
}
