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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkm-project/pkm/internal/solver"
	"github.com/pkm-project/pkm/internal/version"
)

func mustVer(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	require.NoError(t, err)
	return v
}

func mustSpec(t *testing.T, s string) version.Specifier {
	t.Helper()
	// Reuses the dependency package's PEP 440 clause parser indirectly via
	// version.Range for the handful of shapes these tests need.
	switch {
	case s == "*":
		return version.Any()
	case strings.HasPrefix(s, ">=") && strings.Contains(s, ",<"):
		parts := strings.SplitN(strings.TrimPrefix(s, ">="), ",<", 2)
		lo := mustVer(t, parts[0])
		hi := mustVer(t, parts[1])
		return version.Range(&lo, true, &hi, false)
	case strings.HasPrefix(s, ">="):
		lo := mustVer(t, strings.TrimPrefix(s, ">="))
		return version.Range(&lo, true, nil, false)
	case strings.HasPrefix(s, "=="):
		return version.Exact(mustVer(t, strings.TrimPrefix(s, "==")))
	default:
		t.Fatalf("unsupported test spec %q", s)
		return version.Specifier{}
	}
}

func TestSolverSimpleGraph(t *testing.T) {
	t.Parallel()

	source := &solver.InMemorySource{}
	source.AddPackage(solver.MakeName("a"), mustVer(t, "1.0.0"), nil)
	source.AddPackage(solver.MakeName("a"), mustVer(t, "1.1.0"), []solver.Term{
		solver.NewTerm(solver.MakeName("b"), mustSpec(t, ">=2.0.0")),
	})
	source.AddPackage(solver.MakeName("b"), mustVer(t, "2.0.0"), nil)
	source.AddPackage(solver.MakeName("b"), mustVer(t, "2.1.0"), nil)

	root := solver.NewRootSource()
	root.AddRequirement(solver.MakeName("a"), mustSpec(t, ">=1.0.0,<2.0.0"))

	s := solver.New(root, source)
	solution, err := s.Solve(root.Term())
	require.NoError(t, err)

	a, ok := solution.GetVersion(solver.MakeName("a"))
	require.True(t, ok)
	require.Equal(t, "1.1.0", a.String())

	b, ok := solution.GetVersion(solver.MakeName("b"))
	require.True(t, ok)
	require.Equal(t, "2.1.0", b.String())
}

func TestSolverConflictTracking(t *testing.T) {
	t.Parallel()

	source := &solver.InMemorySource{}
	source.AddPackage(solver.MakeName("a"), mustVer(t, "1.0.0"), []solver.Term{
		solver.NewTerm(solver.MakeName("b"), mustSpec(t, "==1.0.0")),
	})
	source.AddPackage(solver.MakeName("b"), mustVer(t, "1.0.0"), nil)
	source.AddPackage(solver.MakeName("b"), mustVer(t, "2.0.0"), nil)
	source.AddPackage(solver.MakeName("c"), mustVer(t, "1.0.0"), []solver.Term{
		solver.NewTerm(solver.MakeName("b"), mustSpec(t, "==2.0.0")),
	})

	root := solver.NewRootSource()
	root.AddRequirement(solver.MakeName("a"), mustSpec(t, "==1.0.0"))
	root.AddRequirement(solver.MakeName("c"), mustSpec(t, "==1.0.0"))

	s := solver.NewWithOptions([]solver.Source{root, source}, solver.WithIncompatibilityTracking(true))
	_, err := s.Solve(root.Term())
	require.Error(t, err)

	nsErr, ok := err.(*solver.NoSolutionError)
	require.True(t, ok, "expected *NoSolutionError, got %T", err)
	require.Contains(t, nsErr.Error(), "depends on")
}

func TestSolverNoVersionsSatisfy(t *testing.T) {
	t.Parallel()

	source := &solver.InMemorySource{}
	source.AddPackage(solver.MakeName("a"), mustVer(t, "1.0.0"), nil)

	root := solver.NewRootSource()
	root.AddRequirement(solver.MakeName("a"), mustSpec(t, ">=2.0.0"))

	s := solver.New(root, source)
	_, err := s.Solve(root.Term())
	require.Error(t, err)
}
