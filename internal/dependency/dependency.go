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

// Package dependency implements the PEP 508-style dependency model: a
// package name, a version specifier, a set of extras, an optional
// environment marker expression, and an optional direct URL.
package dependency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkm-project/pkm/internal/version"
)

// Dependency is one edge in the dependency graph: a requirement on
// another package, optionally gated by an environment marker and
// optionally routed directly to a URL rather than matched by version.
type Dependency struct {
	Name    string
	Spec    version.Specifier
	Extras  []string
	Marker  Marker
	URL     string
	Group   string // "" for a plain runtime dependency, else an extra/group name
}

// NormalizeName applies PEP 503 normalization: lowercase, runs of
// "-_." collapsed to a single "-". Used everywhere a package name is
// compared (repository lookups, installed-package inventory).
func NormalizeName(name string) string {
	var b strings.Builder
	lastWasSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !lastWasSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			lastWasSep = true
			continue
		}
		b.WriteRune(r)
		lastWasSep = false
	}
	return strings.TrimSuffix(b.String(), "-")
}

// IsURLDependency reports whether this dependency bypasses version
// matching and should be routed directly to a URL-handling repository.
func (d Dependency) IsURLDependency() bool { return d.URL != "" }

// Applies reports whether the dependency is active in env — inactive
// dependencies (marker evaluates false) are skipped during resolution.
func (d Dependency) Applies(env Environment) bool {
	if d.Marker == nil {
		return true
	}
	return d.Marker.Evaluate(env)
}

// ExtrasKey renders the sorted, deduplicated extras set for use as a
// stable cache/map key alongside Name.
func (d Dependency) ExtrasKey() string {
	if len(d.Extras) == 0 {
		return ""
	}
	sorted := append([]string(nil), d.Extras...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func (d Dependency) String() string {
	var b strings.Builder
	b.WriteString(d.Name)
	if len(d.Extras) > 0 {
		fmt.Fprintf(&b, "[%s]", strings.Join(d.Extras, ","))
	}
	if d.URL != "" {
		fmt.Fprintf(&b, " @ %s", d.URL)
	} else if !d.Spec.IsAny() {
		fmt.Fprintf(&b, " %s", d.Spec)
	}
	if d.Marker != nil {
		fmt.Fprintf(&b, " ; %s", d.Marker)
	}
	return b.String()
}
