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

import "github.com/pkm-project/pkm/internal/version"

// termAllowedSet returns the version set term requires, when term is positive.
func termAllowedSet(term Term) (version.Specifier, bool) {
	if !term.Positive {
		return version.Specifier{}, false
	}
	return term.Spec, true
}

// termForbiddenSet returns the version set term rules out, when term is negative.
func termForbiddenSet(term Term) (version.Specifier, bool) {
	if term.Positive {
		return version.Specifier{}, false
	}
	return term.Spec, true
}

// applyTermToAllowed narrows current by term, intersecting for a positive
// term or subtracting for a negative one.
func applyTermToAllowed(current version.Specifier, term Term) version.Specifier {
	if term.Positive {
		return current.Intersect(term.Spec)
	}
	return current.Intersect(term.Spec.Inverse())
}

func termFromAllowedSet(name Name, set version.Specifier) Term {
	return NewTerm(name, set)
}

func termFromForbiddenSet(name Name, set version.Specifier) Term {
	return NewNegativeTerm(name, set)
}

func setsEqual(a, b version.Specifier) bool { return a.Equal(b) }

// isSubset reports whether every version allowed by a is also allowed by b.
func isSubset(a, b version.Specifier) bool { return b.AllowsAll(a) }

// isDisjoint reports whether a and b share no allowed version.
func isDisjoint(a, b version.Specifier) bool { return !a.AllowsAny(b) }
