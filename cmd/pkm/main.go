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

// Command pkm is the CLI front end for the resolver and install pipeline
// in internal/. It only wires flags to calls into the core packages; the
// parser, prompt UI, and report rendering stay out of core scope.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pkm-project/pkm/internal/build"
	"github.com/pkm-project/pkm/internal/solver"
)

func main() {
	ctx := context.Background()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pkm: error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error from the core packages onto the exit codes
// spec.md §6 defines: 0 success, 1 user error, 2 build/install failure,
// 3 unsolvable resolution.
func exitCodeFor(err error) int {
	var noSolution *solver.NoSolutionError
	var notFound solver.ErrNoSolutionFound
	if errors.As(err, &noSolution) || errors.As(err, &notFound) {
		return 3
	}
	var buildErr *build.Error
	var cycleErr *build.CycleError
	if errors.As(err, &buildErr) || errors.As(err, &cycleErr) {
		return 2
	}
	return 1
}
