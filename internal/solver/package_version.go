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
	"sort"

	"github.com/pkm-project/pkm/internal/version"
)

// PackageVersion is one candidate of a package: a specific version paired
// with the dependency terms it declares.
type PackageVersion struct {
	Name         Name
	Version      version.Version
	Dependencies []Term
}

// dependencyKey renders a dependency set into a string comparable for
// exact equality, used to detect runs of versions sharing identical
// dependencies.
func dependencyKey(deps []Term) string {
	sorted := make([]Term, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name.Value() < sorted[j].Name.Value() })

	key := ""
	for _, d := range sorted {
		key += d.Name.Value() + "\x00" + d.String() + "\x01"
	}
	return key
}

// GeneralizedConstraint collapses a package's version list into the
// fewest possible (range, dependency-set) pairs, each covering a maximal
// run of consecutive versions that declare identical dependencies.
//
// Most packages change their dependency declarations rarely across
// releases; feeding the solver one incompatibility per collapsed range
// instead of one per version keeps the incompatibility set small for
// packages with long release histories.
func GeneralizedConstraint(name Name, versions []PackageVersion) []RangeConstraint {
	if len(versions) == 0 {
		return nil
	}

	sorted := make([]PackageVersion, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version.Compare(sorted[j].Version) < 0 })

	var result []RangeConstraint
	runStart := 0
	runKey := dependencyKey(sorted[0].Dependencies)

	flush := func(end int) {
		lo := sorted[runStart].Version
		hi := sorted[end].Version
		result = append(result, RangeConstraint{
			Name:         name,
			Spec:         version.Range(&lo, true, &hi, true),
			Dependencies: sorted[runStart].Dependencies,
		})
	}

	for i := 1; i < len(sorted); i++ {
		key := dependencyKey(sorted[i].Dependencies)
		if key != runKey {
			flush(i - 1)
			runStart = i
			runKey = key
		}
	}
	flush(len(sorted) - 1)

	return result
}

// RangeConstraint is one collapsed run produced by GeneralizedConstraint:
// every version in Spec shares exactly Dependencies.
type RangeConstraint struct {
	Name         Name
	Spec         version.Specifier
	Dependencies []Term
}
