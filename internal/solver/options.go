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

import "log/slog"

// Options configures solver behavior.
type Options struct {
	// TrackIncompatibilities enables collecting learned clauses for
	// detailed NoSolutionError derivation trees.
	TrackIncompatibilities bool

	// MaxSteps bounds the CDCL loop; 0 disables the limit.
	MaxSteps int

	// Logger receives debug traces of decisions, propagation, and
	// backtracking. nil disables tracing.
	Logger *slog.Logger
}

// Option is a functional option for Options.
type Option func(*Options)

const defaultMaxSteps = 100000

func defaultOptions() Options {
	return Options{MaxSteps: defaultMaxSteps}
}

// WithIncompatibilityTracking toggles learned-clause collection.
func WithIncompatibilityTracking(enabled bool) Option {
	return func(o *Options) { o.TrackIncompatibilities = enabled }
}

// WithMaxSteps bounds the solver loop; steps<=0 disables the limit.
func WithMaxSteps(steps int) Option {
	return func(o *Options) {
		if steps <= 0 {
			o.MaxSteps = 0
		} else {
			o.MaxSteps = steps
		}
	}
}

// WithLogger attaches a structured logger for solver diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}
