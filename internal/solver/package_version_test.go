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

package solver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkm-project/pkm/internal/solver"
)

func TestGeneralizedConstraintCollapsesIdenticalRuns(t *testing.T) {
	t.Parallel()

	dep := []solver.Term{solver.NewTerm(solver.MakeName("b"), mustSpec(t, ">=1.0.0"))}
	name := solver.MakeName("a")

	versions := []solver.PackageVersion{
		{Name: name, Version: mustVer(t, "1.0.0"), Dependencies: dep},
		{Name: name, Version: mustVer(t, "1.1.0"), Dependencies: dep},
		{Name: name, Version: mustVer(t, "1.2.0"), Dependencies: nil},
		{Name: name, Version: mustVer(t, "1.3.0"), Dependencies: nil},
	}

	ranges := solver.GeneralizedConstraint(name, versions)
	require.Len(t, ranges, 2)
	require.True(t, ranges[0].Spec.AllowsVersion(mustVer(t, "1.0.0")))
	require.True(t, ranges[0].Spec.AllowsVersion(mustVer(t, "1.1.0")))
	require.False(t, ranges[0].Spec.AllowsVersion(mustVer(t, "1.2.0")))
	require.True(t, ranges[1].Spec.AllowsVersion(mustVer(t, "1.2.0")))
	require.True(t, ranges[1].Spec.AllowsVersion(mustVer(t, "1.3.0")))
}
