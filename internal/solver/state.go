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

	"github.com/pkm-project/pkm/internal/version"
)

// solverState holds all mutable state for one CDCL run: the partial
// solution, the known incompatibilities indexed by package, and the
// unit-propagation queue.
type solverState struct {
	source            Source
	options           Options
	partial           *partialSolution
	incompatibilities map[Name][]*Incompatibility
	learned           []*Incompatibility
	queue             []Name
	queued            map[Name]bool
}

func newSolverState(source Source, options Options, root Name) *solverState {
	return &solverState{
		source:            source,
		options:           options,
		partial:           newPartialSolution(root),
		incompatibilities: make(map[Name][]*Incompatibility),
		queued:            make(map[Name]bool),
	}
}

func (st *solverState) enqueue(name Name) {
	if st.queued[name] {
		return
	}
	st.queue = append(st.queue, name)
	st.queued[name] = true
}

func (st *solverState) dequeue() (Name, bool) {
	if len(st.queue) == 0 {
		return EmptyName(), false
	}
	name := st.queue[0]
	st.queue = st.queue[1:]
	delete(st.queued, name)
	return name, true
}

func (st *solverState) addIncompatibility(incomp *Incompatibility) {
	for _, term := range incomp.Terms {
		st.incompatibilities[term.Name] = append(st.incompatibilities[term.Name], incomp)
	}
	if st.options.TrackIncompatibilities {
		st.learned = append(st.learned, incomp)
	}
}

func (st *solverState) debug(msg string, args ...any) {
	if st.options.Logger == nil {
		return
	}
	st.options.Logger.Debug(msg, args...)
}

func (st *solverState) traceAssignment(event string, assign *assignment) {
	if st.options.Logger == nil || assign == nil {
		return
	}
	st.options.Logger.Debug("assignment", "event", event, "package", assign.name.Value(), "detail", assign.describe())
}

// incompatibilityRelation is the relationship between an incompatibility
// and the current partial solution.
type incompatibilityRelation int

const (
	relationSatisfied       incompatibilityRelation = iota // every term holds: conflict
	relationAlmostSatisfied                                // all but one term holds: unit propagation fires
	relationContradicted                                   // one term is impossible: incompatibility inapplicable
	relationInconclusive                                   // too many terms undecided: wait
)

// propagate runs unit propagation to a fixed point, starting from start
// (or draining the whole queue if start is EmptyName). Returns a
// conflicting incompatibility if one is found.
func (st *solverState) propagate(start Name) (*Incompatibility, error) {
	if start != EmptyName() {
		st.enqueue(start)
	}

	for {
		pkg, ok := st.dequeue()
		if !ok {
			return nil, nil
		}

		for _, inc := range st.incompatibilities[pkg] {
			relation, unsatisfied, err := st.evaluateIncompatibility(inc)
			if err != nil {
				return nil, err
			}

			switch relation {
			case relationSatisfied:
				st.debug("conflict detected during propagation", "package", pkg.Value(), "incompatibility", inc.String())
				return inc, nil
			case relationAlmostSatisfied:
				if unsatisfied == nil {
					continue
				}
				derived := unsatisfied.Negate()
				st.debug("unit propagation", "package", pkg.Value(), "incompatibility", inc.String(), "derived_term", derived.String())
				assign, changed, err := st.partial.addDerivation(derived, inc)
				if errors.Is(err, errNoAllowedVersions) {
					return inc, nil
				}
				if err != nil {
					return nil, err
				}
				if changed && assign != nil {
					st.traceAssignment("derivation", assign)
					st.enqueue(assign.name)
				}
			}
		}
	}
}

func (st *solverState) evaluateIncompatibility(inc *Incompatibility) (incompatibilityRelation, *Term, error) {
	var unsatisfied *Term
	for _, term := range inc.Terms {
		allowed := st.partial.allowedSet(term.Name)
		rel := relationForTerm(term, allowed, st.partial.hasAssignments(term.Name))

		switch rel {
		case relationContradicted:
			return relationContradicted, nil, nil
		case relationSatisfied:
			continue
		case relationInconclusive:
			if unsatisfied != nil {
				return relationInconclusive, nil, nil
			}
			temp := term
			unsatisfied = &temp
		}
	}
	if unsatisfied == nil {
		return relationSatisfied, nil, nil
	}
	return relationAlmostSatisfied, unsatisfied, nil
}

func relationForTerm(term Term, allowed version.Specifier, hasAssignment bool) incompatibilityRelation {
	if term.Positive {
		required := term.Spec
		if isSubset(allowed, required) {
			if hasAssignment {
				return relationSatisfied
			}
			return relationInconclusive
		}
		if isDisjoint(allowed, required) {
			return relationContradicted
		}
		return relationInconclusive
	}

	forbidden := term.Spec
	if isDisjoint(allowed, forbidden) {
		return relationSatisfied
	}
	if isSubset(allowed, forbidden) {
		if hasAssignment {
			return relationContradicted
		}
		return relationInconclusive
	}
	return relationInconclusive
}

// resolveIncompatibility merges conflict and cause, dropping pkg's term
// from both and unioning/intersecting any shared terms — PubGrub's
// clause-learning step.
func resolveIncompatibility(conflict, cause *Incompatibility, pkg Name) *Incompatibility {
	terms := make(map[Name]Term)

	for _, term := range conflict.Terms {
		if term.Name == pkg {
			continue
		}
		terms[term.Name] = term
	}

	for _, term := range cause.Terms {
		if term.Name == pkg {
			continue
		}
		if existing, ok := terms[term.Name]; ok {
			if merged, ok := mergeTerms(existing, term); ok {
				terms[term.Name] = merged
				continue
			}
		}
		terms[term.Name] = term
	}

	merged := make([]Term, 0, len(terms))
	for _, term := range conflict.Terms {
		if term.Name == pkg {
			continue
		}
		if t, ok := terms[term.Name]; ok {
			merged = append(merged, t)
			delete(terms, term.Name)
		}
	}
	for _, term := range cause.Terms {
		if term.Name == pkg {
			continue
		}
		if t, ok := terms[term.Name]; ok {
			merged = append(merged, t)
			delete(terms, term.Name)
		}
	}

	return NewIncompatibilityConflict(merged, conflict, cause)
}

func mergeTerms(a, b Term) (Term, bool) {
	if a.Name != b.Name {
		return Term{}, false
	}
	switch {
	case a.Positive && b.Positive:
		return termFromAllowedSet(a.Name, a.Spec.Intersect(b.Spec)), true
	case !a.Positive && !b.Positive:
		return termFromForbiddenSet(a.Name, a.Spec.Union(b.Spec)), true
	default:
		return Term{}, false
	}
}

// registerDependencies adds one incompatibility per declared dependency
// of pkg@version and immediately applies each as a constraint.
func (st *solverState) registerDependencies(pkg Name, ver version.Version, deps []Term) (*Incompatibility, error) {
	for _, dep := range deps {
		incomp := NewIncompatibilityFromDependency(pkg, ver, dep)
		st.addIncompatibility(incomp)
		conflict, err := st.applyConstraint(dep, incomp)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return conflict, nil
		}
	}
	return nil, nil
}

func (st *solverState) applyConstraint(term Term, cause *Incompatibility) (*Incompatibility, error) {
	assign, _, err := st.partial.addDerivation(term, cause)
	if errors.Is(err, errNoAllowedVersions) {
		causeDesc := "<nil>"
		if cause != nil {
			causeDesc = cause.String()
		}
		st.debug("constraint left no allowed versions", "term", term.String(), "cause", causeDesc)
		base := NewIncompatibilityNoVersions(term)
		if cause != nil {
			terms := append(append([]Term{}, cause.Terms...), base.Terms...)
			return NewIncompatibilityConflict(terms, base, cause), nil
		}
		return base, nil
	}
	if err != nil {
		return nil, err
	}
	if assign != nil {
		st.traceAssignment("dependency-constraint", assign)
		st.enqueue(assign.name)
	}
	return nil, nil
}

// pickVersion selects the highest version of name still allowed by its
// current constraints.
func (st *solverState) pickVersion(name Name) (version.Version, bool, error) {
	allowed := st.partial.allowedSet(name)
	if allowed.IsNone() {
		return version.Version{}, false, nil
	}

	versions, err := st.source.GetVersions(name)
	if err != nil {
		var pkgErr *PackageNotFoundError
		var verErr *PackageVersionNotFoundError
		if errors.As(err, &pkgErr) || errors.As(err, &verErr) {
			return version.Version{}, false, nil
		}
		return version.Version{}, false, err
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if allowed.AllowsVersion(versions[i]) {
			return versions[i], true, nil
		}
	}
	return version.Version{}, false, nil
}

// resolveConflict performs CDCL conflict analysis: walk back through
// satisfiers, learning merged incompatibilities, until we hit a decision
// whose backtrack target is below its own level (then backtrack there)
// or we run out of satisfiers (then the problem is unsolvable).
func (st *solverState) resolveConflict(conflict *Incompatibility) (Name, error) {
	for {
		satisfier := st.partial.satisfier(conflict)
		if satisfier == nil {
			return EmptyName(), NewNoSolutionError(conflict)
		}

		prevLevel := st.partial.previousDecisionLevel(conflict, satisfier)
		st.debug("conflict analysis iteration", "conflict", conflict.String(), "satisfier", satisfier.describe(),
			"satisfier_level", satisfier.decisionLevel, "previous_level", prevLevel)

		if satisfier.decisionLevel == 0 && satisfier.isDecision() {
			return EmptyName(), NewNoSolutionError(conflict)
		}

		if satisfier.isDecision() && prevLevel < satisfier.decisionLevel {
			st.partial.backtrack(prevLevel)
			st.debug("backtracked after conflict", "pivot", satisfier.name.Value(), "target_level", prevLevel,
				"learned", conflict.String())
			st.addIncompatibility(conflict)
			return satisfier.name, nil
		}

		if satisfier.cause == nil {
			return EmptyName(), errors.New("derived assignment missing cause")
		}

		st.debug("resolving with cause", "pivot", satisfier.name.Value(), "cause", satisfier.cause.String())
		conflict = resolveIncompatibility(conflict, satisfier.cause, satisfier.name)
		st.debug("derived new conflict", "pivot", satisfier.name.Value(), "conflict", conflict.String())
	}
}
