// Copyright 2024 The University of Queensland
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

package solver

import (
	"errors"
	"slices"

	"github.com/pkm-project/pkm/internal/version"
)

// Source provides package versions and per-version dependencies to the
// solver. Concrete implementations live in internal/repository; this
// package also provides a couple of small sources used directly by tests
// and by the root-requirements seeding step.
type Source interface {
	// GetVersions returns every known version of name, sorted ascending —
	// the solver walks it from the end to prefer the newest version.
	GetVersions(name Name) ([]version.Version, error)

	// GetDependencies returns the dependency terms declared by name@ver.
	GetDependencies(name Name, ver version.Version) ([]Term, error)
}

// CombinedSource tries each underlying source in turn, concatenating
// GetVersions results and returning the first source's GetDependencies hit.
// This is how a composite repository's search-list order is exposed to
// the solver.
type CombinedSource []Source

func (s CombinedSource) GetVersions(name Name) ([]version.Version, error) {
	var ret []version.Version
	for _, source := range s {
		versions, err := source.GetVersions(name)
		if err != nil {
			var pkgErr *PackageNotFoundError
			if errors.As(err, &pkgErr) {
				continue
			}
			return nil, err
		}
		ret = append(ret, versions...)
	}
	if len(ret) == 0 {
		return nil, &PackageNotFoundError{Package: name}
	}
	slices.SortFunc(ret, func(a, b version.Version) int { return a.Compare(b) })
	return ret, nil
}

func (s CombinedSource) GetDependencies(name Name, ver version.Version) ([]Term, error) {
	for _, source := range s {
		deps, err := source.GetDependencies(name, ver)
		if err == nil {
			return deps, nil
		}
		var pkgErr *PackageNotFoundError
		var verErr *PackageVersionNotFoundError
		if errors.As(err, &pkgErr) || errors.As(err, &verErr) {
			continue
		}
		return nil, err
	}
	return nil, &PackageVersionNotFoundError{Package: name, Version: ver}
}

var _ Source = CombinedSource{}

// InMemorySource is a simple Source backed by an in-process map, used by
// tests and by anything that has already resolved its full package
// metadata ahead of time (e.g. a lockfile-pinned source).
type InMemorySource struct {
	Packages map[Name]map[version.Version][]Term
}

func (s *InMemorySource) GetVersions(name Name) ([]version.Version, error) {
	versions, ok := s.Packages[name]
	if !ok {
		return nil, &PackageNotFoundError{Package: name}
	}
	result := make([]version.Version, 0, len(versions))
	for v := range versions {
		result = append(result, v)
	}
	slices.SortFunc(result, func(a, b version.Version) int { return a.Compare(b) })
	return result, nil
}

func (s *InMemorySource) GetDependencies(name Name, ver version.Version) ([]Term, error) {
	versions, ok := s.Packages[name]
	if !ok {
		return nil, &PackageNotFoundError{Package: name}
	}
	deps, ok := versions[ver]
	if !ok {
		return nil, &PackageVersionNotFoundError{Package: name, Version: ver}
	}
	return deps, nil
}

// AddPackage records a package version's dependencies, initializing the
// underlying maps on first use.
func (s *InMemorySource) AddPackage(name Name, ver version.Version, deps []Term) {
	if s.Packages == nil {
		s.Packages = make(map[Name]map[version.Version][]Term)
	}
	if _, ok := s.Packages[name]; !ok {
		s.Packages[name] = make(map[version.Version][]Term)
	}
	s.Packages[name][ver] = deps
}

var _ Source = &InMemorySource{}

// rootVersion is the one and only version of the virtual $root package.
func rootVersion() version.Version {
	v, err := version.Parse("0")
	if err != nil {
		panic(err)
	}
	return v
}

// RootSource exposes the project's own top-level requirements as the
// dependencies of a single virtual $root package version, so the solver
// can treat "what the user asked for" uniformly with any other package's
// dependencies.
type RootSource []Term

func NewRootSource() *RootSource { return &RootSource{} }

func (s RootSource) GetVersions(name Name) ([]version.Version, error) {
	if name != rootName() {
		return nil, &PackageNotFoundError{Package: name}
	}
	return []version.Version{rootVersion()}, nil
}

func (s RootSource) GetDependencies(name Name, ver version.Version) ([]Term, error) {
	if name != rootName() {
		return nil, &PackageNotFoundError{Package: name}
	}
	if !ver.Equal(rootVersion()) {
		return nil, &PackageVersionNotFoundError{Package: name, Version: ver}
	}
	return s, nil
}

// AddRequirement adds one of the project's top-level requirements.
func (s *RootSource) AddRequirement(name Name, spec version.Specifier) {
	*s = append(*s, NewTerm(name, spec))
}

// Term returns the term naming the root package itself — the argument to Solve.
func (s *RootSource) Term() Term {
	return NewTerm(rootName(), version.Exact(rootVersion()))
}

var _ Source = &RootSource{}

// CachedSource memoizes GetVersions/GetDependencies calls against an
// underlying Source, for sources with expensive network or disk I/O
// (registry lookups, VCS checkouts) queried repeatedly across one solve.
type CachedSource struct {
	source Source

	versionsCache     map[Name][]version.Version
	versionsCalls     int
	versionsCacheHits int

	depsCache     map[string][]Term
	depsCalls     int
	depsCacheHits int
}

func NewCachedSource(source Source) *CachedSource {
	return &CachedSource{
		source:        source,
		versionsCache: make(map[Name][]version.Version),
		depsCache:     make(map[string][]Term),
	}
}

func (c *CachedSource) GetVersions(name Name) ([]version.Version, error) {
	c.versionsCalls++
	if versions, ok := c.versionsCache[name]; ok {
		c.versionsCacheHits++
		return versions, nil
	}
	versions, err := c.source.GetVersions(name)
	if err != nil {
		return nil, err
	}
	c.versionsCache[name] = versions
	return versions, nil
}

func (c *CachedSource) GetDependencies(name Name, ver version.Version) ([]Term, error) {
	c.depsCalls++
	key := name.Value() + "@" + ver.String()
	if deps, ok := c.depsCache[key]; ok {
		c.depsCacheHits++
		return deps, nil
	}
	deps, err := c.source.GetDependencies(name, ver)
	if err != nil {
		return nil, err
	}
	c.depsCache[key] = deps
	return deps, nil
}

// CacheStats summarizes a CachedSource's hit rate.
type CacheStats struct {
	VersionsCalls, VersionsCacheHits int
	DepsCalls, DepsCacheHits         int
	TotalCalls, TotalCacheHits       int
}

func (c *CachedSource) GetCacheStats() CacheStats {
	return CacheStats{
		VersionsCalls:     c.versionsCalls,
		VersionsCacheHits: c.versionsCacheHits,
		DepsCalls:         c.depsCalls,
		DepsCacheHits:     c.depsCacheHits,
		TotalCalls:        c.versionsCalls + c.depsCalls,
		TotalCacheHits:    c.versionsCacheHits + c.depsCacheHits,
	}
}

var _ Source = &CachedSource{}
