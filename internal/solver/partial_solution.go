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
	"fmt"
	"strings"

	"github.com/pkm-project/pkm/internal/version"
)

// partialSolution is the solver's evolving state: assignments made so
// far, indexed both chronologically (for satisfier ordering) and by
// package (for fast allowed-set queries), plus the current decision level.
type partialSolution struct {
	assignments []*assignment
	perPackage  map[Name][]*assignment
	decisionLvl int
	nextIndex   int
	root        Name
}

func newPartialSolution(root Name) *partialSolution {
	return &partialSolution{
		perPackage: make(map[Name][]*assignment),
		root:       root,
	}
}

func (ps *partialSolution) newDecisionAssignment(name Name, ver version.Version, level int) *assignment {
	return &assignment{
		name:          name,
		term:          NewTerm(name, version.Exact(ver)),
		kind:          assignmentDecision,
		allowed:       version.Exact(ver),
		version:       ver,
		decisionLevel: level,
		index:         ps.nextIndex,
	}
}

func (ps *partialSolution) append(assign *assignment) {
	ps.assignments = append(ps.assignments, assign)
	ps.perPackage[assign.name] = append(ps.perPackage[assign.name], assign)
	ps.nextIndex++
}

func (ps *partialSolution) latest(name Name) *assignment {
	stack := ps.perPackage[name]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// allowedSet computes the currently allowed version set for name by
// folding every positive constraint (intersection) and negative
// constraint (subtraction) recorded against it.
func (ps *partialSolution) allowedSet(name Name) version.Specifier {
	stack := ps.perPackage[name]
	current := version.Any()
	for _, assign := range stack {
		if assign.term.Positive {
			current = current.Intersect(assign.allowed)
		} else {
			current = current.Intersect(assign.forbidden.Inverse())
		}
	}
	return current
}

func (ps *partialSolution) hasAssignments(name Name) bool {
	return len(ps.perPackage[name]) > 0
}

func (ps *partialSolution) addDecision(name Name, ver version.Version) *assignment {
	ps.decisionLvl++
	assign := ps.newDecisionAssignment(name, ver, ps.decisionLvl)
	ps.append(assign)
	return assign
}

func (ps *partialSolution) seedRoot(name Name, ver version.Version) *assignment {
	assign := ps.newDecisionAssignment(name, ver, 0)
	ps.append(assign)
	return assign
}

// addDerivation records a constraint derived from unit propagation.
// changed reports whether the package's allowed set actually narrowed.
func (ps *partialSolution) addDerivation(term Term, cause *Incompatibility) (*assignment, bool, error) {
	currentAllowed := ps.allowedSet(term.Name)
	newAllowed := applyTermToAllowed(currentAllowed, term)
	if newAllowed.IsNone() {
		return nil, false, errNoAllowedVersions
	}

	assign := &assignment{
		name:          term.Name,
		term:          term,
		kind:          assignmentDerivation,
		cause:         cause,
		decisionLevel: ps.decisionLvl,
		index:         ps.nextIndex,
	}

	if term.Positive {
		assign.allowed = newAllowed
	} else {
		assign.forbidden = term.Spec
	}

	changed := !setsEqual(currentAllowed, newAllowed)
	ps.append(assign)

	if changed && term.Positive {
		return assign, true, nil
	}

	if changed && !term.Positive {
		tightening := &assignment{
			name:          term.Name,
			term:          termFromAllowedSet(term.Name, newAllowed),
			kind:          assignmentDerivation,
			allowed:       newAllowed,
			cause:         cause,
			decisionLevel: ps.decisionLvl,
			index:         ps.nextIndex,
		}
		ps.append(tightening)
		return tightening, true, nil
	}

	return assign, changed, nil
}

// backtrack discards every assignment above level.
func (ps *partialSolution) backtrack(level int) {
	if level < 0 {
		level = 0
	}
	for len(ps.assignments) > 0 {
		last := ps.assignments[len(ps.assignments)-1]
		if last.decisionLevel <= level {
			break
		}
		ps.assignments = ps.assignments[:len(ps.assignments)-1]
		stack := ps.perPackage[last.name]
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			delete(ps.perPackage, last.name)
		} else {
			ps.perPackage[last.name] = stack
		}
	}
	ps.decisionLvl = level
}

func (ps *partialSolution) isComplete() bool {
	for name, stack := range ps.perPackage {
		if name == ps.root {
			continue
		}
		hasDecision := false
		for _, assign := range stack {
			if assign.kind == assignmentDecision {
				hasDecision = true
				break
			}
		}
		if !hasDecision {
			return false
		}
	}
	return true
}

// nextDecisionCandidate returns the first package (in assignment order)
// awaiting a version decision.
func (ps *partialSolution) nextDecisionCandidate() (Name, bool) {
	seen := make(map[Name]bool)
	for _, assign := range ps.assignments {
		name := assign.name
		if name == ps.root || seen[name] {
			continue
		}
		seen[name] = true
		if !ps.hasDecision(name) {
			return name, true
		}
	}
	return EmptyName(), false
}

func (ps *partialSolution) hasDecision(name Name) bool {
	for _, assign := range ps.perPackage[name] {
		if assign.kind == assignmentDecision {
			return true
		}
	}
	return false
}

// satisfier returns the most recent assignment (by global index) that
// satisfies any term of inc — the pivot for conflict analysis.
func (ps *partialSolution) satisfier(inc *Incompatibility) *assignment {
	var selected *assignment
	maxIndex := -1
	for _, term := range inc.Terms {
		stack := ps.perPackage[term.Name]
		for i := len(stack) - 1; i >= 0; i-- {
			assign := stack[i]
			if termSatisfiedBy(term, assign) {
				if assign.index > maxIndex {
					selected = assign
					maxIndex = assign.index
				}
				break
			}
		}
	}
	return selected
}

// previousDecisionLevel finds where to backtrack to: the highest
// decision level among inc's satisfying assignments, excluding satisfier.
func (ps *partialSolution) previousDecisionLevel(inc *Incompatibility, satisfier *assignment) int {
	level := 0
	for _, term := range inc.Terms {
		stack := ps.perPackage[term.Name]
		for i := len(stack) - 1; i >= 0; i-- {
			assign := stack[i]
			if assign == satisfier {
				continue
			}
			if termSatisfiedBy(term, assign) && assign.decisionLevel > level {
				level = assign.decisionLevel
			}
		}
	}
	return level
}

func (ps *partialSolution) buildSolution() Solution {
	var result Solution
	seen := make(map[Name]bool)
	for _, assign := range ps.assignments {
		if assign.kind != assignmentDecision || seen[assign.name] {
			continue
		}
		seen[assign.name] = true
		result = append(result, NameVersion{Name: assign.name, Version: assign.version})
	}
	return result
}

func (ps *partialSolution) snapshot() string {
	var b strings.Builder
	fmt.Fprintf(&b, "decision_level=%d next_index=%d assignments=%d\n", ps.decisionLvl, ps.nextIndex, len(ps.assignments))
	for _, assign := range ps.assignments {
		fmt.Fprintf(&b, "  %s\n", assign.describe())
	}
	return b.String()
}

// pendingPackages lists packages constrained but not yet decided.
func (ps *partialSolution) pendingPackages() []Name {
	var pending []Name
	seen := make(map[Name]bool)
	for _, assign := range ps.assignments {
		name := assign.name
		if name == ps.root || seen[name] {
			continue
		}
		seen[name] = true
		if !ps.hasDecision(name) {
			pending = append(pending, name)
		}
	}
	return pending
}

func termSatisfiedBy(term Term, assign *assignment) bool {
	if assign == nil {
		return false
	}

	if term.Positive {
		if assign.term.Positive {
			return isSubset(assign.allowed, term.Spec)
		}
		return false
	}

	if assign.term.Positive {
		return isDisjoint(assign.allowed, term.Spec)
	}
	return isSubset(term.Spec, assign.forbidden)
}
