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

// Package pkmctx carries the ambient state a pkm command needs —
// resolved home directory, logger, the active environment name — as an
// explicit value threaded through context.Context, rather than as package
// globals.
package pkmctx

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pkm-project/pkm/internal/config"
)

type ctxKey struct{}

// Runtime is the per-invocation state every pkm command operates against.
type Runtime struct {
	Home    config.Home
	Log     *logrus.Entry
	Verbose bool

	// Context is the active general/application environment name, set by
	// -c/--context; Global (-g/--global-context) selects a general rather
	// than an application environment. Commands treat an empty Context as
	// the environment named "default".
	Context string
	Global  bool
}

// With returns a new context carrying rt.
func With(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, ctxKey{}, rt)
}

// From extracts the Runtime previously stored by With. It panics if none
// is present, since every command path installs one in its root context
// before dispatching — a missing Runtime is a wiring bug, not user error.
func From(ctx context.Context) *Runtime {
	rt, ok := ctx.Value(ctxKey{}).(*Runtime)
	if !ok {
		panic("pkmctx: no Runtime in context")
	}
	return rt
}
