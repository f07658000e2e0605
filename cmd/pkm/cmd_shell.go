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
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/pkm-project/pkm/internal/env"
	"github.com/pkm-project/pkm/internal/install"
	"github.com/pkm-project/pkm/internal/pkmctx"
)

func newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Activate the target environment and spawn the user's shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := pkmctx.From(cmd.Context())

			zoo := env.NewZoo(rt.Home)
			targetEnv, err := resolveTargetEnvironment(zoo, rt)
			if err != nil {
				return err
			}

			shell := os.Getenv("SHELL")
			if shell == "" {
				shell = "/bin/sh"
			}

			target := install.Target{Root: targetEnv.SitePackages()}

			sub := exec.CommandContext(cmd.Context(), shell)
			sub.Stdin, sub.Stdout, sub.Stderr = os.Stdin, os.Stdout, os.Stderr
			sub.Env = append(os.Environ(),
				"PATH="+target.ScriptsDir()+string(os.PathListSeparator)+os.Getenv("PATH"),
				"PKM_ACTIVE_ENV="+targetEnv.Name,
			)
			return sub.Run()
		},
	}
}
