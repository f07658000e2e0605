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

// Package solver implements version resolution via PubGrub: a CDCL
// (Conflict-Driven Clause Learning) algorithm over incompatibilities
// between package version constraints.
package solver

import "unique"

// Name is an interned, PEP 503-normalized package name. Interning makes
// the hot path of the solver — comparing package identities while
// walking assignments — a pointer comparison instead of a string one.
type Name = unique.Handle[string]

// MakeName interns name. Equal strings yield equal Names.
func MakeName(name string) Name {
	return unique.Make(name)
}

// EmptyName is the interned empty string, used as a sentinel for "no package".
func EmptyName() Name {
	return unique.Make("")
}

// rootName is the virtual package representing the project itself: its
// dependencies are the user's top-level requirements.
func rootName() Name {
	return MakeName("$root")
}
