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
	"github.com/pkm-project/pkm/internal/version"
)

// Solver runs PubGrub/CDCL resolution over a Source.
//
// Basic usage:
//
//	root := solver.NewRootSource()
//	root.AddRequirement(solver.MakeName("myapp"), version.Range(...))
//	s := solver.New(root, repoSource)
//	solution, err := s.Solve(root.Term())
type Solver struct {
	Source  Source
	options Options
	learned []*Incompatibility
}

// New creates a solver over the given sources, combined in search-list order.
func New(sources ...Source) *Solver {
	return NewWithOptions(sources)
}

// NewWithOptions creates a solver with functional options applied.
func NewWithOptions(sources []Source, opts ...Option) *Solver {
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Solver{Source: CombinedSource(sources), options: options}
}

// Configure applies additional options to an existing solver.
func (s *Solver) Configure(opts ...Option) *Solver {
	for _, opt := range opts {
		if opt != nil {
			opt(&s.options)
		}
	}
	return s
}

// Incompatibilities returns the incompatibilities learned by the most
// recent failed Solve call, when incompatibility tracking is enabled.
func (s *Solver) Incompatibilities() []*Incompatibility { return s.learned }

// Solve resolves root's dependency graph into a single consistent Solution.
func (s *Solver) Solve(root Term) (Solution, error) {
	s.debug("starting solver", "root", root)

	state := newSolverState(s.Source, s.options, root.Name)

	ver, err := extractDecisionVersion(root)
	if err != nil {
		return nil, err
	}

	rootAssign := state.partial.seedRoot(root.Name, ver)
	s.debug("seeded root", "package", root.Name.Value(), "version", ver)

	deps, err := s.Source.GetDependencies(root.Name, ver)
	if err != nil {
		return nil, &DependencyError{Package: root.Name, Version: ver, Err: err}
	}

	var conflict *Incompatibility
	if depConflict, err := state.registerDependencies(root.Name, ver, deps); err != nil {
		return nil, &DependencyError{Package: root.Name, Version: ver, Err: err}
	} else if depConflict != nil {
		conflict = depConflict
	}

	state.enqueue(rootAssign.name)

	var propagateSeed Name

	for steps := 0; ; steps++ {
		if s.options.MaxSteps > 0 && steps >= s.options.MaxSteps {
			return nil, ErrIterationLimit{Steps: s.options.MaxSteps}
		}

		if conflict != nil {
			s.debug("resolving conflict", "step", steps, "conflict", conflict.String())
			pivot, err := state.resolveConflict(conflict)
			if err != nil {
				if ns, ok := err.(*NoSolutionError); ok {
					return s.fail(state, ns.Incompatibility)
				}
				return nil, err
			}
			conflict = nil
			if pivot != EmptyName() {
				propagateSeed = pivot
			}
			continue
		}

		seed := propagateSeed
		propagateSeed = EmptyName()
		propConflict, err := state.propagate(seed)
		if err != nil {
			return nil, err
		}
		if propConflict != nil {
			conflict = propConflict
			continue
		}

		if state.partial.isComplete() {
			return state.partial.buildSolution(), nil
		}

		nextPkg, ok := state.partial.nextDecisionCandidate()
		if !ok {
			s.debug("solution found", "step", steps)
			return state.partial.buildSolution(), nil
		}

		s.debug("selecting package", "step", steps, "package", nextPkg.Value())

		pick, found, err := state.pickVersion(nextPkg)
		if err != nil {
			return nil, err
		}
		if !found {
			allowed := state.partial.allowedSet(nextPkg)
			conflict = NewIncompatibilityNoVersions(termFromAllowedSet(nextPkg, allowed))
			if support := state.partial.latest(nextPkg); support != nil && support.cause != nil {
				conflict = resolveIncompatibility(conflict, support.cause, nextPkg)
			}
			state.addIncompatibility(conflict)
			continue
		}

		s.debug("making decision", "step", steps, "package", nextPkg.Value(), "version", pick)

		assign := state.partial.addDecision(nextPkg, pick)

		deps, err := s.Source.GetDependencies(nextPkg, pick)
		if err != nil {
			return nil, &DependencyError{Package: nextPkg, Version: pick, Err: err}
		}

		if depConflict, err := state.registerDependencies(nextPkg, pick, deps); err != nil {
			return nil, &DependencyError{Package: nextPkg, Version: pick, Err: err}
		} else if depConflict != nil {
			conflict = depConflict
			continue
		}

		state.enqueue(assign.name)
	}
}

func (s *Solver) debug(msg string, args ...any) {
	if s.options.Logger == nil {
		return
	}
	s.options.Logger.Debug(msg, args...)
}

func extractDecisionVersion(root Term) (version.Version, error) {
	if !root.Positive {
		return version.Version{}, &DependencyError{Package: root.Name, Err: errRootMustBePositive}
	}
	v, ok := root.Spec.SpecificVersion()
	if !ok {
		return version.Version{}, &DependencyError{Package: root.Name, Err: errRootMustPinVersion}
	}
	return v, nil
}

func (s *Solver) fail(state *solverState, incomp *Incompatibility) (Solution, error) {
	if s.options.TrackIncompatibilities {
		if state != nil {
			s.learned = append([]*Incompatibility{}, state.learned...)
		}
		if incomp == nil {
			incomp = NewIncompatibilityNoVersions(fallbackTerm(nil))
		}
		return nil, NewNoSolutionError(incomp)
	}
	return nil, ErrNoSolutionFound{Term: fallbackTerm(incomp)}
}

func fallbackTerm(incomp *Incompatibility) Term {
	if incomp == nil || len(incomp.Terms) == 0 {
		return NewTerm(rootName(), version.Any())
	}
	term := incomp.Terms[0]
	if !term.Positive {
		term = term.Negate()
	}
	return term
}
