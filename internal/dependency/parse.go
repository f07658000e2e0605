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

package dependency

import (
	"fmt"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/pkm-project/pkm/internal/version"
)

// Parse parses a single PEP 508 dependency specifier, e.g.:
//
//	requests[socks] >=2.25,<3 ; python_version >= "3.8"
//	mypkg @ https://example.com/mypkg-1.0-py3-none-any.whl
func Parse(input string) (Dependency, error) {
	d := Dependency{Spec: version.Any()}

	body, markerExpr, hasMarker := strings.Cut(input, ";")
	body = strings.TrimSpace(body)

	s := &scanner.Scanner{}
	s.Init(strings.NewReader(body))
	s.Mode = scanner.ScanIdents
	s.Whitespace = 1<<'\t' | 1<<' '
	s.IsIdentRune = identRune

	if s.Scan() == scanner.EOF {
		return Dependency{}, fmt.Errorf("dependency %q: expected package name", input)
	}
	d.Name = NormalizeName(s.TokenText())
	skipWS(s)

	if s.Peek() == '[' {
		extras, err := scanExtras(s)
		if err != nil {
			return Dependency{}, fmt.Errorf("dependency %q: %w", input, err)
		}
		d.Extras = extras
	}
	skipWS(s)

	if s.Peek() == '@' {
		s.Next()
		skipWS(s)
		var b strings.Builder
		for s.Peek() != scanner.EOF {
			b.WriteRune(s.Next())
		}
		d.URL = strings.TrimSpace(b.String())
	} else {
		var specText strings.Builder
		for s.Peek() != scanner.EOF {
			specText.WriteRune(s.Next())
		}
		text := strings.TrimSpace(specText.String())
		if text != "" {
			spec, err := ParseSpecifier(text)
			if err != nil {
				return Dependency{}, fmt.Errorf("dependency %q: %w", input, err)
			}
			d.Spec = spec
		}
	}

	if hasMarker {
		m, err := ParseMarker(strings.TrimSpace(markerExpr))
		if err != nil {
			return Dependency{}, fmt.Errorf("dependency %q: %w", input, err)
		}
		d.Marker = m
	}

	return d, nil
}

func identRune(ch rune, i int) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '-' || ch == '_' || ch == '.'
}

func skipWS(s *scanner.Scanner) {
	for s.Whitespace&(1<<uint(s.Peek())) != 0 {
		s.Next()
	}
}

func scanExtras(s *scanner.Scanner) ([]string, error) {
	s.Next() // consume '['
	var extras []string
	for {
		skipWS(s)
		if s.Scan() == scanner.EOF {
			return nil, fmt.Errorf("expected extras identifier, got EOF")
		}
		extras = append(extras, s.TokenText())
		skipWS(s)
		switch s.Peek() {
		case ']':
			s.Next()
			return extras, nil
		case ',':
			s.Next()
		default:
			return nil, fmt.Errorf("expected ',' or ']' in extras list")
		}
	}
}

// ParseSpecifier parses a comma-separated conjunction of PEP 440
// comparison clauses into a single version.Specifier, e.g.
// ">=1.0,<2.0,!=1.5".
func ParseSpecifier(s string) (version.Specifier, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return version.Any(), nil
	}

	result := version.Any()
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		spec, err := parseClause(clause)
		if err != nil {
			return version.Specifier{}, err
		}
		result = result.Intersect(spec)
	}
	return result, nil
}

func parseClause(clause string) (version.Specifier, error) {
	ops := []string{"===", "~=", "==", "!=", ">=", "<=", ">", "<"}
	for _, op := range ops {
		if strings.HasPrefix(clause, op) {
			verText := strings.TrimSpace(strings.TrimPrefix(clause, op))
			v, err := version.Parse(verText)
			if err != nil {
				return version.Specifier{}, err
			}
			return specifierForOp(op, v)
		}
	}
	return version.Specifier{}, fmt.Errorf("unrecognized version clause %q", clause)
}

func specifierForOp(op string, v version.Version) (version.Specifier, error) {
	switch op {
	case "==", "===":
		return version.Exact(v), nil
	case "!=":
		return version.Exact(v).Inverse(), nil
	case ">=":
		return version.Range(&v, true, nil, false), nil
	case ">":
		return version.Range(&v, false, nil, false), nil
	case "<=":
		return version.Range(nil, false, &v, true), nil
	case "<":
		return version.Range(nil, false, &v, false), nil
	case "~=":
		// ~=X.Y(.Z) means >=X.Y(.Z), ==X.Y.* (compatible release).
		return version.Range(&v, true, nil, false), nil
	default:
		return version.Specifier{}, fmt.Errorf("unsupported operator %q", op)
	}
}
