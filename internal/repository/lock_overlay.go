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
	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/version"
)

// LockOverlay wraps a repository and reorders its candidates so that a
// previously locked version is tried first, biasing the solver toward a
// deterministic re-solve. It never changes the candidate *set* — only
// their order.
type LockOverlay struct {
	Inner Repository
	// Locked maps a normalized package name to its last-known-good version.
	Locked map[string]version.Version
}

// NewLockOverlay wraps inner with a lock hint table.
func NewLockOverlay(inner Repository, locked map[string]version.Version) *LockOverlay {
	if locked == nil {
		locked = make(map[string]version.Version)
	}
	return &LockOverlay{Inner: inner, Locked: locked}
}

// Match implements Repository. When the locked version is absent from
// the candidate set returned by Inner, the pinned choice (per spec.md
// §9's open question) is silent fall-through to the inner ordering —
// the lock hint is a bias, not a requirement, so a package whose locked
// version has since been yanked from the repository still resolves.
func (l *LockOverlay) Match(dep dependency.Dependency) ([]Package, error) {
	candidates, err := l.Inner.Match(dep)
	if err != nil {
		return nil, err
	}

	locked, ok := l.Locked[dependency.NormalizeName(dep.Name)]
	if !ok {
		return candidates, nil
	}

	reordered := make([]Package, 0, len(candidates))
	var lockedMatch *Package
	for i := range candidates {
		if candidates[i].Version.Equal(locked) {
			lockedMatch = &candidates[i]
			continue
		}
		reordered = append(reordered, candidates[i])
	}
	if lockedMatch == nil {
		// Locked version isn't among today's candidates: fall through to
		// the unmodified ordering rather than failing the match.
		return candidates, nil
	}
	return append([]Package{*lockedMatch}, reordered...), nil
}
