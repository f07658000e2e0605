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
	"sync"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/solver"
	"github.com/pkm-project/pkm/internal/version"
)

// SolverSource adapts a Repository into the solver.Source interface the
// PubGrub core consumes: it turns "match(dependency)" queries into the
// solver's "versions of a name" / "dependencies of a name@version"
// shape. The candidate list per name is cached; dependencies are
// recomputed on every GetDependencies call.
type SolverSource struct {
	Repo *CompositeRepository
	Env  dependency.Environment

	// BaseSpec provides the specifier a bare name query should be
	// matched against when the solver asks for every known version of a
	// package (it doesn't carry the original requester's constraint).
	BaseSpec func(name string) dependency.Dependency

	mu       sync.Mutex
	versions map[string][]version.Version
	packages map[string][]Package
	deps     map[string][]solver.Term
}

// NewSolverSource adapts repo into a solver.Source. env supplies the
// environment markers dependency filtering evaluates against.
func NewSolverSource(repo *CompositeRepository, env dependency.Environment) *SolverSource {
	return &SolverSource{
		Repo:     repo,
		Env:      env,
		versions: make(map[string][]version.Version),
		packages: make(map[string][]Package),
		deps:     make(map[string][]solver.Term),
	}
}

func (s *SolverSource) query(name string) ([]Package, error) {
	normalized := dependency.NormalizeName(name)

	s.mu.Lock()
	cached, ok := s.packages[normalized]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	dep := dependency.Dependency{Name: normalized, Spec: version.Any()}
	if s.BaseSpec != nil {
		dep = s.BaseSpec(normalized)
	}

	candidates, err := s.Repo.Match(dep)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.packages[normalized] = candidates
	s.mu.Unlock()
	return candidates, nil
}

// GetVersions implements solver.Source.
func (s *SolverSource) GetVersions(name solver.Name) ([]version.Version, error) {
	candidates, err := s.query(name.Value())
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, &solver.PackageNotFoundError{Package: name}
	}

	versions := make([]version.Version, 0, len(candidates))
	for _, c := range candidates {
		versions = append(versions, c.Version)
	}
	return versions, nil
}

// GetDependencies implements solver.Source.
func (s *SolverSource) GetDependencies(name solver.Name, ver version.Version) ([]solver.Term, error) {
	candidates, err := s.query(name.Value())
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if !c.Version.Equal(ver) {
			continue
		}
		if c.Dependencies == nil {
			return nil, nil
		}
		deps, err := c.Dependencies()
		if err != nil {
			return nil, &solver.DependencyError{Package: name, Version: ver, Err: err}
		}

		var terms []solver.Term
		for _, d := range deps {
			if !d.Applies(s.Env) {
				continue
			}
			terms = append(terms, solver.NewTerm(solver.MakeName(dependency.NormalizeName(d.Name)), d.Spec))
		}
		return terms, nil
	}

	return nil, &solver.PackageVersionNotFoundError{Package: name, Version: ver}
}

var _ solver.Source = (*SolverSource)(nil)
