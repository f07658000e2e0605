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

package repository

import (
	"path"
	"strings"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/version"
)

// DirectURL handles `http://`/`https://` dependency URLs pointing
// straight at a distribution archive, with no index page in between.
type DirectURL struct{}

func (DirectURL) Match(dep dependency.Dependency) ([]Package, error) {
	if !dep.IsURLDependency() {
		return nil, nil
	}
	if !strings.HasPrefix(dep.URL, "http://") && !strings.HasPrefix(dep.URL, "https://") {
		return nil, nil
	}

	name := dependency.NormalizeName(dep.Name)
	ver := version.FromURL(dep.URL)
	if _, filever, ok := parseDistFilename(path.Base(dep.URL)); ok {
		ver = filever
	}

	return []Package{{
		Name:    name,
		Version: ver,
		Dependencies: func() ([]dependency.Dependency, error) {
			return dependenciesFromArchive(dep.URL)
		},
	}}, nil
}
