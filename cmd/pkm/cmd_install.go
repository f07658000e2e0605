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

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/env"
	"github.com/pkm-project/pkm/internal/pkmctx"
	"github.com/pkm-project/pkm/internal/project"
	"github.com/pkm-project/pkm/internal/repository"
	"github.com/pkm-project/pkm/internal/solver"
)

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install [dep...]",
		Short: "Resolve dependencies (with none given, from the project manifest) and report the chosen versions; nothing is downloaded or installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := pkmctx.From(cmd.Context())

			deps, err := requestedDependencies(args)
			if err != nil {
				return err
			}

			repo := repository.NewCompositeRepository()
			repo.SearchList = []repository.Repository{repository.NewSimpleIndex("https://pypi.org/simple")}
			source := repository.NewSolverSource(repo, dependency.Environment{})

			root := solver.NewRootSource()
			for _, d := range deps {
				root.AddRequirement(solver.MakeName(dependency.NormalizeName(d.Name)), d.Spec)
			}

			sv := solver.New(root, source)
			solution, err := sv.Solve(root.Term())
			if err != nil {
				return err
			}

			zoo := env.NewZoo(rt.Home)
			targetEnv, err := resolveTargetEnvironment(zoo, rt)
			if err != nil {
				return err
			}

			unlock, err := zoo.Lock(cmd.Context(), targetEnv)
			if err != nil {
				return err
			}
			defer unlock()

			for nv := range solution.All() {
				rt.Log.WithField("package", nv.Name.Value()).WithField("version", nv.Version.String()).Info("resolved")
			}
			return nil
		},
	}
}

// requestedDependencies parses the raw dependency specifiers given on
// the command line, or falls back to the project manifest's declared
// requirements when none were given.
func requestedDependencies(args []string) ([]dependency.Dependency, error) {
	if len(args) > 0 {
		deps := make([]dependency.Dependency, 0, len(args))
		for _, raw := range args {
			d, err := dependency.Parse(raw)
			if err != nil {
				return nil, err
			}
			deps = append(deps, d)
		}
		return deps, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	manifest, err := project.Load(wd)
	if err != nil {
		return nil, err
	}
	return manifest.Dependencies()
}

// resolveTargetEnvironment picks the general or application environment
// an install/remove targets, per -c/--context and -g/--global-context.
func resolveTargetEnvironment(zoo *env.Zoo, rt *pkmctx.Runtime) (*env.Environment, error) {
	name := rt.Context
	if name == "" {
		name = "default"
	}
	if rt.Global {
		return zoo.General(name)
	}
	return zoo.Application(name)
}
