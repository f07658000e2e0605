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

package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/version"
)

type stubRepo struct {
	pkgs []Package
}

func (s stubRepo) Match(dep dependency.Dependency) ([]Package, error) {
	var matched []Package
	for _, p := range s.pkgs {
		if p.Name == dependency.NormalizeName(dep.Name) && dep.Spec.AllowsVersion(p.Version) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func pkg(name, ver string) Package {
	return Package{Name: name, Version: version.MustParse(ver)}
}

func TestCompositeRepositoryPinTakesPriorityOverSearchList(t *testing.T) {
	pinned := stubRepo{pkgs: []Package{pkg("acme-widgets", "1.0")}}
	searched := stubRepo{pkgs: []Package{pkg("acme-widgets", "2.0")}}

	c := NewCompositeRepository()
	c.Pin("acme-*", pinned)
	c.SearchList = []Repository{searched}

	got, err := c.Match(dependency.Dependency{Name: "acme-widgets", Spec: version.Any()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Version.Equal(version.MustParse("1.0")))
}

func TestCompositeRepositorySearchListFirstNonEmptyWins(t *testing.T) {
	empty := stubRepo{}
	second := stubRepo{pkgs: []Package{pkg("widgets", "3.0")}}

	c := NewCompositeRepository()
	c.SearchList = []Repository{empty, second}

	got, err := c.Match(dependency.Dependency{Name: "widgets", Spec: version.Any()})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCompositeRepositoryURLDependencyWithoutHandlerFails(t *testing.T) {
	c := NewCompositeRepository()
	c.Handlers["git"] = stubRepo{pkgs: []Package{pkg("widgets", "0")}}

	_, err := c.Match(dependency.Dependency{Name: "widgets", URL: "ftp://example.com/widgets"})
	require.Error(t, err)
	var noHandler *NoHandlerError
	require.ErrorAs(t, err, &noHandler)
}

func TestLockOverlayPrioritizesLockedVersion(t *testing.T) {
	inner := stubRepo{pkgs: []Package{pkg("widgets", "1.0"), pkg("widgets", "2.0")}}
	overlay := NewLockOverlay(inner, map[string]version.Version{"widgets": version.MustParse("1.0")})

	got, err := overlay.Match(dependency.Dependency{Name: "widgets", Spec: version.Any()})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got[0].Version.Equal(version.MustParse("1.0")))
}

func TestLockOverlayFallsThroughWhenLockedVersionGone(t *testing.T) {
	inner := stubRepo{pkgs: []Package{pkg("widgets", "2.0")}}
	overlay := NewLockOverlay(inner, map[string]version.Version{"widgets": version.MustParse("1.0")})

	got, err := overlay.Match(dependency.Dependency{Name: "widgets", Spec: version.Any()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Version.Equal(version.MustParse("2.0")))
}
