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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/env"
	"github.com/pkm-project/pkm/internal/install"
	"github.com/pkm-project/pkm/internal/pkmctx"
	"github.com/pkm-project/pkm/internal/project"
)

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [package <dep>]",
		Short: "Print a report of the project or an installed package",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 && args[0] == "package" {
				return showPackage(cmd, args[1])
			}
			if len(args) != 0 {
				return fmt.Errorf("usage: pkm show [package <dep>]")
			}
			return showProject(cmd)
		},
	}
	return cmd
}

func showProject(cmd *cobra.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	manifest, err := project.Load(wd)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", manifest.Project.Name, manifest.Project.Version)
	if manifest.Project.Description != "" {
		fmt.Fprintln(cmd.OutOrStdout(), manifest.Project.Description)
	}
	if manifest.Project.License != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "license: %s\n", manifest.Project.License)
	}
	deps, err := manifest.Dependencies()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dependencies (%d):\n", len(deps))
	for _, d := range deps {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", d.String())
	}
	return nil
}

// showPackage reports the installed metadata for one dependency,
// surfacing the license field dropped from the original distillation.
func showPackage(cmd *cobra.Command, name string) error {
	rt := pkmctx.From(cmd.Context())

	zoo := env.NewZoo(rt.Home)
	targetEnv, err := resolveTargetEnvironment(zoo, rt)
	if err != nil {
		return err
	}

	target := install.Target{Root: targetEnv.SitePackages()}
	installed, err := install.Installed(target)
	if err != nil {
		return err
	}

	normalized := dependency.NormalizeName(name)
	for _, pkg := range installed {
		if pkg.NormalizedName != normalized {
			continue
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", pkg.Metadata.Name, pkg.Metadata.Version)
		if pkg.Metadata.Summary != "" {
			fmt.Fprintln(out, pkg.Metadata.Summary)
		}
		if pkg.Metadata.License != "" {
			fmt.Fprintf(out, "license: %s\n", pkg.Metadata.License)
		}
		return nil
	}
	return fmt.Errorf("package %q is not installed in environment %s", name, targetEnv.Name)
}
