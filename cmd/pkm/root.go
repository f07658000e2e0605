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
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pkm-project/pkm/internal/config"
	"github.com/pkm-project/pkm/internal/pkmctx"
)

func newRootCommand() *cobra.Command {
	var (
		verbose bool
		ctxName string
		global  bool
	)

	root := &cobra.Command{
		Use:   "pkm",
		Short: "Resolve, build, and install packages into managed environments",

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.Resolve()
			if err != nil {
				return err
			}
			if err := home.EnsureLayout(); err != nil {
				return err
			}

			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			rt := &pkmctx.Runtime{
				Home:    home,
				Log:     logrus.NewEntry(log),
				Verbose: verbose,
				Context: ctxName,
				Global:  global,
			}
			cmd.SetContext(pkmctx.With(cmd.Context(), rt))
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&ctxName, "context", "c", "", "Target a named environment")
	root.PersistentFlags().BoolVarP(&global, "global-context", "g", false, "Target the global (general-purpose) environment")

	root.AddCommand(
		newBuildCommand(),
		newInstallCommand(),
		newRemoveCommand(),
		newNewCommand(),
		newPublishCommand(),
		newVBumpCommand(),
		newShellCommand(),
		newShowCommand(),
	)
	return root
}
