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

	"github.com/pkm-project/pkm/internal/version"
)

// Term is a single dependency constraint: either a positive assertion
// ("foo must satisfy spec") or a negative one ("foo must not satisfy
// spec"). Incompatibilities are built from sets of Terms.
type Term struct {
	Name     Name
	Spec     version.Specifier
	Positive bool
}

// NewTerm creates a positive term requiring the package to satisfy spec.
func NewTerm(name Name, spec version.Specifier) Term {
	return Term{Name: name, Spec: spec, Positive: true}
}

// NewNegativeTerm creates a negative term excluding versions matching spec.
func NewNegativeTerm(name Name, spec version.Specifier) Term {
	return Term{Name: name, Spec: spec, Positive: false}
}

// Negate returns the logical negation of the term.
func (t Term) Negate() Term {
	return Term{Name: t.Name, Spec: t.Spec, Positive: !t.Positive}
}

// SatisfiedBy reports whether v satisfies the term. A nil selected
// indicates the package was never selected in this derivation.
func (t Term) SatisfiedBy(selected *version.Version) bool {
	if selected == nil {
		return !t.Positive
	}
	satisfied := t.Spec.AllowsVersion(*selected)
	if t.Positive {
		return satisfied
	}
	return !satisfied
}

func (t Term) String() string {
	spec := "*"
	if !t.Spec.IsAny() || t.Spec.IsNone() {
		spec = t.Spec.String()
	}

	if t.Positive {
		if spec == "*" {
			return t.Name.Value()
		}
		return fmt.Sprintf("%s %s", t.Name.Value(), spec)
	}

	if spec == "*" {
		return fmt.Sprintf("not %s", t.Name.Value())
	}
	return fmt.Sprintf("not %s %s", t.Name.Value(), spec)
}
