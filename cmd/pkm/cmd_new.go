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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkm-project/pkm/internal/pkmctx"
	"github.com/pkm-project/pkm/internal/template"
)

func newNewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new <template> [key=value...]",
		Short: "Scaffold a project from a named template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := pkmctx.From(cmd.Context())

			templateName := args[0]
			var tmpl template.Template
			switch templateName {
			case "standard":
				tmpl = template.StandardTemplate{}
			default:
				return fmt.Errorf("unknown template %q", templateName)
			}

			vars := map[string]string{}
			for _, kv := range args[1:] {
				name, value, ok := splitKeyValue(kv)
				if !ok {
					return fmt.Errorf("expected key=value, got %q", kv)
				}
				vars[name] = value
			}

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target := wd
			if name := vars["name"]; name != "" {
				target = filepath.Join(wd, name)
				if err := os.MkdirAll(target, 0o755); err != nil {
					return err
				}
			}

			sandbox, err := template.NewSandbox(target)
			if err != nil {
				return err
			}
			if err := template.Apply(sandbox, tmpl, vars); err != nil {
				return err
			}

			rt.Log.WithField("template", templateName).WithField("dir", target).Info("scaffolded project")
			return nil
		},
	}
}

func splitKeyValue(s string) (key, value string, ok bool) {
	for i, r := range s {
		if r == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
