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
	"fmt"
	"strings"

	"github.com/pkm-project/pkm/internal/dependency"
)

// URLHandler routes a dependency that carries a URL to the backend for
// its protocol ("git", "file", "http", "https").
type URLHandler interface {
	Repository
}

// NoHandlerError indicates a URL dependency names a protocol with no
// registered handler.
type NoHandlerError struct {
	Protocol string
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("no repository handler registered for protocol %q", e.Protocol)
}

// CompositeRepository fronts every configured backend and resolves each
// dependency in the order spec.md §4.3 prescribes: URL protocol handler,
// then per-package pin, then the search list (first non-empty result
// wins, no merging across search entries).
type CompositeRepository struct {
	// Handlers maps a URL protocol ("git", "file", "http", "https") to
	// the backend that serves it.
	Handlers map[string]URLHandler

	// Pins maps a package name pattern to the repository it must be
	// resolved from exclusively. Patterns may use a single trailing "*"
	// as a glob (e.g. "acme-*" pins every acme-prefixed package),
	// supplementing exact-name pinning with the glob-style matching
	// original_source/repositories_configuration.py supports.
	Pins []Pin

	// SearchList is tried in order when no pin or URL applies; the first
	// backend to return a non-empty candidate list wins.
	SearchList []Repository
}

// Pin binds a package-name pattern to a specific repository.
type Pin struct {
	Pattern    string
	Repository Repository
}

func (p Pin) matches(name string) bool {
	normalized := dependency.NormalizeName(name)
	pattern := dependency.NormalizeName(p.Pattern)
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(normalized, strings.TrimSuffix(pattern, "*"))
	}
	return normalized == pattern
}

// NewCompositeRepository builds an empty composite ready for handlers,
// pins, and a search list to be attached.
func NewCompositeRepository() *CompositeRepository {
	return &CompositeRepository{Handlers: make(map[string]URLHandler)}
}

// Pin adds a package-name (or glob) pin, evaluated before the search list.
func (c *CompositeRepository) Pin(pattern string, repo Repository) {
	c.Pins = append(c.Pins, Pin{Pattern: pattern, Repository: repo})
}

// RegisterHandler attaches a URL-protocol backend.
func (c *CompositeRepository) RegisterHandler(protocol string, handler URLHandler) {
	c.Handlers[protocol] = handler
}

func urlProtocol(rawURL string) string {
	if i := strings.Index(rawURL, "+"); i >= 0 {
		if scheme := rawURL[:i]; !strings.Contains(scheme, "/") {
			return scheme
		}
	}
	if i := strings.Index(rawURL, "://"); i >= 0 {
		return rawURL[:i]
	}
	return ""
}

func (c *CompositeRepository) Match(dep dependency.Dependency) ([]Package, error) {
	if dep.IsURLDependency() {
		protocol := urlProtocol(dep.URL)
		handler, ok := c.Handlers[protocol]
		if !ok {
			return nil, &NoHandlerError{Protocol: protocol}
		}
		return handler.Match(dep)
	}

	for _, pin := range c.Pins {
		if pin.matches(dep.Name) {
			return pin.Repository.Match(dep)
		}
	}

	for _, repo := range c.SearchList {
		candidates, err := repo.Match(dep)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, nil
}
