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
	"iter"

	"github.com/pkm-project/pkm/internal/version"
)

// NameVersion is one resolved package in a Solution.
type NameVersion struct {
	Name    Name
	Version version.Version
}

func (n NameVersion) String() string {
	return fmt.Sprintf("%s %s", n.Name.Value(), n.Version)
}

// Solution is the set of package versions chosen by the solver, satisfying
// every constraint reachable from the root.
type Solution []NameVersion

// GetVersion returns the selected version for name, if present.
func (s Solution) GetVersion(name Name) (version.Version, bool) {
	for _, nv := range s {
		if nv.Name == name {
			return nv.Version, true
		}
	}
	return version.Version{}, false
}

// All iterates the solution's package-version pairs.
func (s Solution) All() iter.Seq[NameVersion] {
	return func(yield func(NameVersion) bool) {
		for _, nv := range s {
			if !yield(nv) {
				return
			}
		}
	}
}
