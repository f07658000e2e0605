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
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/pkm-project/pkm/internal/pkmctx"
	"github.com/pkm-project/pkm/internal/project"
)

func newVBumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vbump [major|minor|patch|a|b|rc]",
		Short: "Bump the project's version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := pkmctx.From(cmd.Context())

			kind := "patch"
			if len(args) == 1 {
				kind = args[0]
			}

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			manifest, err := project.Load(wd)
			if err != nil {
				return err
			}

			next, err := bumpVersion(manifest.Project.Version, kind)
			if err != nil {
				return err
			}
			manifest.Project.Version = next

			if err := manifest.Save(wd); err != nil {
				return err
			}
			rt.Log.WithField("version", next).Info("bumped project version")
			return nil
		},
	}
}

var preReleasePattern = regexp.MustCompile(`^(.*?)(a|b|rc)(\d+)$`)

// bumpVersion advances current by kind. major/minor/patch delegate to
// the semver library's own increment logic; a/b/rc advance or introduce
// a PEP 440 pre-release segment, which semver has no notion of.
func bumpVersion(current, kind string) (string, error) {
	switch kind {
	case "major", "minor", "patch":
		v, err := semver.NewVersion(current)
		if err != nil {
			return "", fmt.Errorf("parsing version %q: %w", current, err)
		}
		var next semver.Version
		switch kind {
		case "major":
			next = v.IncMajor()
		case "minor":
			next = v.IncMinor()
		case "patch":
			next = v.IncPatch()
		}
		return next.String(), nil
	case "a", "b", "rc":
		if m := preReleasePattern.FindStringSubmatch(current); m != nil && m[2] == kind {
			n, _ := strconv.Atoi(m[3])
			return fmt.Sprintf("%s%s%d", m[1], kind, n+1), nil
		}
		base := current
		if m := preReleasePattern.FindStringSubmatch(current); m != nil {
			base = m[1]
		}
		return fmt.Sprintf("%s%s1", base, kind), nil
	default:
		return "", fmt.Errorf("unknown bump kind %q", kind)
	}
}
