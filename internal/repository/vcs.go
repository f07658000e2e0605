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
	"net/url"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/version"
)

// VCSRepository resolves `git+<url>[@ref]` dependencies by shallow
// cloning the referenced ref into a scratch worktree. It always yields
// exactly one candidate: the URL dependency is already pinned, so there
// is nothing to match against a specifier.
type VCSRepository struct {
	// CheckoutDir is where worktrees are cloned; each call gets its own
	// subdirectory named after the dependency so concurrent checkouts of
	// different packages don't collide.
	CheckoutDir string
}

// NewVCSRepository opens a VCS handler that clones worktrees under dir.
func NewVCSRepository(dir string) *VCSRepository {
	return &VCSRepository{CheckoutDir: dir}
}

// ParseGitURL splits a `git+https://host/path@ref` dependency URL into
// the clone URL and an optional ref (branch, tag, or commit).
func ParseGitURL(raw string) (cloneURL string, ref string, err error) {
	trimmed := strings.TrimPrefix(raw, "git+")
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", "", errors.Wrapf(err, "parsing VCS URL %s", raw)
	}
	ref = u.Fragment
	u.Fragment = ""
	if at := strings.LastIndex(u.Path, "@"); at >= 0 && ref == "" {
		ref = u.Path[at+1:]
		u.Path = u.Path[:at]
	}
	return u.String(), ref, nil
}

func (r *VCSRepository) Match(dep dependency.Dependency) ([]Package, error) {
	if !dep.IsURLDependency() || !strings.HasPrefix(dep.URL, "git+") {
		return nil, nil
	}

	cloneURL, ref, err := ParseGitURL(dep.URL)
	if err != nil {
		return nil, err
	}

	worktree := r.CheckoutDir + "/" + dependency.NormalizeName(dep.Name)
	fs := osfs.New(worktree, osfs.WithBoundOS())

	opts := &git.CloneOptions{URL: cloneURL, Depth: 1}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}

	if _, err := git.Clone(memory.NewStorage(), fs, opts); err != nil {
		return nil, errors.Wrapf(err, "cloning %s", cloneURL)
	}

	pkgVersion := version.FromURL(dep.URL)
	return []Package{{
		Name:    dependency.NormalizeName(dep.Name),
		Version: pkgVersion,
		Dependencies: func() ([]dependency.Dependency, error) {
			// A real checkout would parse the cloned tree's manifest;
			// that belongs to internal/project, invoked by the caller
			// once it has the worktree path from this clone.
			return nil, nil
		},
	}}, nil
}
