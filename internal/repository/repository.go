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

// Package repository feeds the solver candidate package versions and
// their dependencies, coordinating multiple backends (HTML index, local
// file tree, VCS checkout, direct URL) behind one composite repository
// with deterministic priority and per-package pinning.
package repository

import (
	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/version"
)

// Package is one candidate a repository offers for a dependency: a
// concrete name/version plus lazily fetchable dependencies.
type Package struct {
	Name    string
	Version version.Version

	// Dependencies returns this candidate's declared dependency edges.
	// SourceTree reads them from the project manifest when called; the
	// simple-index, file-tree, direct-URL and VCS repositories return a
	// function that reports no dependencies and fetch none.
	Dependencies func() ([]dependency.Dependency, error)
}

// Repository answers candidate queries for a dependency. Backends differ
// in how they discover candidates (HTTP index page, filesystem scan, VCS
// ref list, a single pinned URL) but share this one contract.
type Repository interface {
	// Match returns every candidate whose version satisfies dep's
	// specifier, or that dep routes to directly (URL dependencies return
	// at most one candidate, the URL's own pinned version).
	Match(dep dependency.Dependency) ([]Package, error)
}

// Name identifies a repository in composite search-list/pin configuration.
type Name string
