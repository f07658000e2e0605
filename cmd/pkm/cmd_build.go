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
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	pkmbuild "github.com/pkm-project/pkm/internal/build"
	"github.com/pkm-project/pkm/internal/pkmctx"
	"github.com/pkm-project/pkm/internal/project"
)

func newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the project in the current directory (project groups are not built)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := pkmctx.From(cmd.Context())

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			manifest, err := project.Load(wd)
			if err != nil {
				return err
			}

			orch := pkmbuild.NewOrchestrator(rt.Log)
			target := pkmbuild.Target{Dir: filepath.Join(rt.Home.CacheDir(), "source-builds")}

			var path string
			if manifest.BuildSystem.BackendRef == pkmbuild.StandardBackendName {
				path, err = orch.BuildStandard(cmd.CommandPath(), wd, manifest, target)
			} else {
				path, err = orch.BuildExternal(cmd.Context(), cmd.CommandPath(), wd, manifest, target, 2*time.Minute)
			}
			if err != nil {
				return err
			}

			rt.Log.WithField("artifact", path).Info("build complete")
			return nil
		},
	}
}
