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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/pkm-project/pkm/internal/dependency"
	"github.com/pkm-project/pkm/internal/version"
)

var distFilePattern = regexp.MustCompile(`^(.+?)-(\d[^-]*)(?:-[^-]+)*\.(whl|tar\.gz|zip)$`)

// SimpleIndex speaks the PEP 503 Simple Repository API: HTTP GET of
// <base>/<package>/, parsing the HTML anchors it returns. Each anchor
// names a distribution file; candidates are derived from the filenames
// alone, the way a real index works without a separate metadata call.
type SimpleIndex struct {
	BaseURL    string
	HTTPClient *http.Client

	mu    sync.Mutex
	cache map[string][]Package // keyed by normalized package name
}

// NewSimpleIndex opens a PEP 503 index client rooted at baseURL.
func NewSimpleIndex(baseURL string) *SimpleIndex {
	return &SimpleIndex{BaseURL: baseURL, cache: make(map[string][]Package)}
}

func (s *SimpleIndex) client() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

// Match implements Repository. Per §5's determinism requirement,
// candidate queries for a given package are cached after the first fetch.
func (s *SimpleIndex) Match(dep dependency.Dependency) ([]Package, error) {
	if dep.IsURLDependency() {
		return nil, nil
	}

	normalized := dependency.NormalizeName(dep.Name)

	s.mu.Lock()
	cached, ok := s.cache[normalized]
	s.mu.Unlock()
	if !ok {
		fetched, err := s.fetch(normalized)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[normalized] = fetched
		cached = fetched
		s.mu.Unlock()
	}

	var matched []Package
	for _, pkg := range cached {
		if dep.Spec.AllowsVersion(pkg.Version) {
			matched = append(matched, pkg)
		}
	}
	return matched, nil
}

func (s *SimpleIndex) fetch(normalizedName string) ([]Package, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing index base URL: %w", err)
	}
	u.Path = path.Join(u.Path, normalizedName) + "/"

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &PackageNotFoundError{Name: normalizedName}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing simple index HTML for %s: %w", normalizedName, err)
	}

	var pkgs []Package
	walkHTML(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		var href string
		for _, attr := range n.Attr {
			if attr.Key == "href" {
				href = attr.Val
			}
		}
		filename := path.Base(href)
		name, ver, ok := parseDistFilename(filename)
		if !ok || dependency.NormalizeName(name) != normalizedName {
			return
		}
		pkgs = append(pkgs, Package{
			Name:    normalizedName,
			Version: ver,
			Dependencies: func() ([]dependency.Dependency, error) {
				// The simple index only exposes filenames; a real client
				// would download the artifact and read its metadata.
				// That hop belongs to internal/build, not this repository.
				return nil, nil
			},
		})
	})
	return pkgs, nil
}

func walkHTML(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, visit)
	}
}

func parseDistFilename(filename string) (name string, ver version.Version, ok bool) {
	m := distFilePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", version.Version{}, false
	}
	v, err := version.Parse(m[2])
	if err != nil {
		return "", version.Version{}, false
	}
	return strings.ReplaceAll(m[1], "_", "-"), v, true
}

// PackageNotFoundError indicates the index has no entry at all for a name.
type PackageNotFoundError struct {
	Name string
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %s not found in index", e.Name)
}
