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

	"github.com/pkg/errors"

	"github.com/pkm-project/pkm/internal/version"
)

// NoSolutionError is returned when solving fails; it carries the root
// incompatibility so callers can render a derivation-tree explanation.
type NoSolutionError struct {
	Incompatibility *Incompatibility
	Reporter        Reporter
}

func (e *NoSolutionError) Error() string {
	if e.Incompatibility == nil {
		return "no solution found"
	}
	reporter := e.Reporter
	if reporter == nil {
		reporter = &DefaultReporter{}
	}
	return reporter.Report(e.Incompatibility)
}

// WithReporter returns a copy of e that renders with reporter.
func (e *NoSolutionError) WithReporter(reporter Reporter) *NoSolutionError {
	return &NoSolutionError{Incompatibility: e.Incompatibility, Reporter: reporter}
}

func NewNoSolutionError(incomp *Incompatibility) *NoSolutionError {
	return &NoSolutionError{Incompatibility: incomp, Reporter: &DefaultReporter{}}
}

// DependencyError wraps a failure fetching a package version's dependencies.
type DependencyError struct {
	Package Name
	Version version.Version
	Err     error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("failed to get dependencies for %s %s: %v", e.Package.Value(), e.Version, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// PackageNotFoundError indicates a package is absent from every repository queried.
type PackageNotFoundError struct {
	Package Name
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %s not found", e.Package.Value())
}

// PackageVersionNotFoundError indicates a specific version is unavailable.
type PackageVersionNotFoundError struct {
	Package Name
	Version version.Version
}

func (e *PackageVersionNotFoundError) Error() string {
	return fmt.Sprintf("package %s version %s not found", e.Package.Value(), e.Version)
}

// ErrNoSolutionFound is returned when incompatibility tracking is disabled.
type ErrNoSolutionFound struct {
	Term Term
}

func (e ErrNoSolutionFound) Error() string {
	return fmt.Sprintf("no solution found for %s", e.Term)
}

// ErrIterationLimit is returned when the solver exceeds its configured step budget.
type ErrIterationLimit struct {
	Steps int
}

func (e ErrIterationLimit) Error() string {
	if e.Steps <= 0 {
		return "solver exceeded iteration limit"
	}
	return fmt.Sprintf("solver exceeded iteration limit after %d steps", e.Steps)
}

var (
	errNoAllowedVersions  = errors.New("no versions satisfy constraints")
	errRootMustBePositive = errors.New("root term must be positive")
	errRootMustPinVersion = errors.New("root must pin an exact version")
)

var (
	_ error = (*NoSolutionError)(nil)
	_ error = (*DependencyError)(nil)
	_ error = (*PackageNotFoundError)(nil)
	_ error = (*PackageVersionNotFoundError)(nil)
	_ error = ErrNoSolutionFound{}
	_ error = ErrIterationLimit{}
)
