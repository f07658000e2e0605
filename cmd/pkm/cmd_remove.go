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
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/env"
	"github.com/pkm-project/pkm/internal/install"
	"github.com/pkm-project/pkm/internal/pkmctx"
	"github.com/pkm-project/pkm/internal/project"
)

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <pkg...>",
		Short: "Uninstall packages and drop them from the project manifest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := pkmctx.From(cmd.Context())

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

			target := install.Target{Root: targetEnv.SitePackages()}
			installed, err := install.Installed(target)
			if err != nil {
				return err
			}

			for _, raw := range args {
				normalized := dependency.NormalizeName(raw)
				var found *install.InstalledPackage
				for i := range installed {
					if installed[i].NormalizedName == normalized {
						found = &installed[i]
						break
					}
				}
				if found == nil {
					rt.Log.WithField("package", raw).Warn("not installed")
					continue
				}
				if err := install.Uninstall(target, found.Metadata.Name, found.Metadata.Version); err != nil {
					return err
				}
				rt.Log.WithField("package", raw).Info("removed")
			}

			return dropFromManifest(args)
		},
	}
}

func dropFromManifest(names []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	manifest, err := project.Load(wd)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[dependency.NormalizeName(n)] = true
	}

	kept := manifest.Project.Requires[:0]
	for _, raw := range manifest.Project.Requires {
		dep, err := dependency.Parse(raw)
		if err != nil {
			return err
		}
		if !drop[dependency.NormalizeName(dep.Name)] {
			kept = append(kept, raw)
		}
	}
	manifest.Project.Requires = kept

	return manifest.Save(wd)
}
