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

type assignmentKind int

const (
	assignmentDecision   assignmentKind = iota // an explicit version selection
	assignmentDerivation                       // a constraint derived via unit propagation
)

// assignment is one entry in the partial solution: either a decision
// (the solver picked a version) or a derivation (propagation narrowed
// what versions remain possible).
type assignment struct {
	name          Name
	term          Term
	kind          assignmentKind
	allowed       version.Specifier // positive terms: versions still possible
	forbidden     version.Specifier // negative terms: versions ruled out
	version       version.Version   // selected version, for decisions
	cause         *Incompatibility  // incompatibility that forced this derivation
	decisionLevel int
	index         int
}

func (a *assignment) isDecision() bool { return a.kind == assignmentDecision }

func (a *assignment) describe() string {
	switch a.kind {
	case assignmentDecision:
		return fmt.Sprintf("decision[%d] %s = %s", a.decisionLevel, a.name.Value(), a.version)
	default:
		return fmt.Sprintf("derivation[%d] %s", a.decisionLevel, a.term)
	}
}
