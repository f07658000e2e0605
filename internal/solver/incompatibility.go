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

// IncompatibilityKind is the origin of an Incompatibility.
type IncompatibilityKind int

const (
	// KindNoVersions: no version of a package satisfies its constraint.
	KindNoVersions IncompatibilityKind = iota
	// KindFromDependency: derived from a package version's declared dependency.
	KindFromDependency
	// KindConflict: derived from resolving two other incompatibilities.
	KindConflict
)

// Incompatibility is a set of terms that cannot all hold at once — the
// fundamental unit of PubGrub's conflict-driven search.
type Incompatibility struct {
	Terms   []Term
	Kind    IncompatibilityKind
	Cause1  *Incompatibility
	Cause2  *Incompatibility
	Package Name
	Version version.Version
}

// NewIncompatibilityNoVersions builds {term}, meaning term can never hold.
func NewIncompatibilityNoVersions(term Term) *Incompatibility {
	return &Incompatibility{Terms: []Term{term}, Kind: KindNoVersions}
}

// NewIncompatibilityFromDependency builds the incompatibility representing
// "pkg@ver depends on dep": {pkg==ver, not dep}.
func NewIncompatibilityFromDependency(pkg Name, ver version.Version, dep Term) *Incompatibility {
	base := NewTerm(pkg, version.Exact(ver))
	terms := []Term{base, dep.Negate()}
	return &Incompatibility{Terms: terms, Kind: KindFromDependency, Package: pkg, Version: ver}
}

// NewIncompatibilityConflict builds a derived incompatibility from two causes.
func NewIncompatibilityConflict(terms []Term, cause1, cause2 *Incompatibility) *Incompatibility {
	seen := make(map[Name]bool)
	deduped := make([]Term, 0, len(terms))
	for _, term := range terms {
		if seen[term.Name] {
			continue
		}
		seen[term.Name] = true
		deduped = append(deduped, term)
	}
	return &Incompatibility{Terms: deduped, Kind: KindConflict, Cause1: cause1, Cause2: cause2}
}

func (inc *Incompatibility) String() string {
	if len(inc.Terms) == 0 {
		return "version solving failed"
	}
	if len(inc.Terms) == 1 {
		return fmt.Sprintf("%s is forbidden", inc.Terms[0])
	}

	if inc.Kind == KindFromDependency && len(inc.Terms) == 2 {
		dep := inc.Terms[1]
		for _, term := range inc.Terms {
			if term.Name != inc.Package {
				dep = term
				break
			}
		}
		if !dep.Positive {
			dep = dep.Negate()
		}
		return fmt.Sprintf("%s %s depends on %s", inc.Package.Value(), inc.Version, dep)
	}

	parts := make([]string, len(inc.Terms))
	for i, term := range inc.Terms {
		parts[i] = term.String()
	}
	return fmt.Sprintf("%s are incompatible", strings.Join(parts, " and "))
}
