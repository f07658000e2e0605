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

	"github.com/Masterminds/semver/v3"
)

// Environment is the set of marker variables a target interpreter/
// platform exposes: os_name, sys_platform, platform_machine,
// python_version, python_full_version, platform_python_implementation,
// implementation_name, implementation_version, and (only inside an
// extras context) extra.
type Environment map[string]string

// Marker is a boolean expression over Environment variables.
type Marker interface {
	Evaluate(env Environment) bool
	String() string
}

type andMarker struct{ left, right Marker }

func (m andMarker) Evaluate(env Environment) bool { return m.left.Evaluate(env) && m.right.Evaluate(env) }
func (m andMarker) String() string                { return fmt.Sprintf("%s and %s", m.left, m.right) }

type orMarker struct{ left, right Marker }

func (m orMarker) Evaluate(env Environment) bool { return m.left.Evaluate(env) || m.right.Evaluate(env) }
func (m orMarker) String() string                { return fmt.Sprintf("%s or %s", m.left, m.right) }

type compareOp string

const (
	opEq    compareOp = "=="
	opNeq   compareOp = "!="
	opLt    compareOp = "<"
	opLte   compareOp = "<="
	opGt    compareOp = ">"
	opGte   compareOp = ">="
	opIn    compareOp = "in"
	opNotIn compareOp = "not in"
	opTilde compareOp = "~="
)

type comparisonMarker struct {
	varName string
	op      compareOp
	literal string
}

func (m comparisonMarker) String() string {
	return fmt.Sprintf("%s %s %q", m.varName, m.op, m.literal)
}

func (m comparisonMarker) Evaluate(env Environment) bool {
	value := env[m.varName]

	switch m.op {
	case opIn:
		return strings.Contains(m.literal, value)
	case opNotIn:
		return !strings.Contains(m.literal, value)
	case opEq:
		return value == m.literal
	case opNeq:
		return value != m.literal
	}

	// Ordered comparisons try semver first (python_version and friends
	// are dotted-numeric), falling back to lexicographic comparison for
	// free-form values.
	lv, lerr := semver.NewVersion(coerceSemver(value))
	rv, rerr := semver.NewVersion(coerceSemver(m.literal))
	var cmp int
	if lerr == nil && rerr == nil {
		cmp = lv.Compare(rv)
	} else {
		cmp = strings.Compare(value, m.literal)
	}

	switch m.op {
	case opLt:
		return cmp < 0
	case opLte:
		return cmp <= 0
	case opGt:
		return cmp > 0
	case opGte:
		return cmp >= 0
	case opTilde:
		return lerr == nil && rerr == nil && lv.Major() == rv.Major() && lv.Minor() == rv.Minor() && cmp >= 0
	default:
		return false
	}
}

// coerceSemver pads a two-component "python_version"-style value
// ("3.11") out to a full semver triple so Masterminds/semver can parse
// it.
func coerceSemver(s string) string {
	if strings.Count(s, ".") == 1 {
		return s + ".0"
	}
	return s
}

// ParseMarker parses a PEP 508 marker expression (the text following
// the ";" in a dependency specifier).
func ParseMarker(input string) (Marker, error) {
	p := &markerParser{}
	p.s.Init(strings.NewReader(input))
	p.s.Mode = scanner.ScanIdents | scanner.ScanStrings | scanner.ScanChars
	p.s.Whitespace = 1<<'\t' | 1<<' ' | 1<<'\n'
	// Single-quoted literals scan as multi-character Char tokens; the
	// scanner's "invalid char literal" report for them is not an error here.
	p.s.Error = func(*scanner.Scanner, string) {}
	p.next()
	m, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok != scanner.EOF {
		return nil, fmt.Errorf("unexpected trailing token %q in marker %q", p.text, input)
	}
	return m, nil
}

type markerParser struct {
	s    scanner.Scanner
	tok  rune
	text string
}

func (p *markerParser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
}

func (p *markerParser) parseOr() (Marker, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.text == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orMarker{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (Marker, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	for p.text == "and" {
		p.next()
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		left = andMarker{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseExpr() (Marker, error) {
	if p.text == "(" {
		p.next()
		m, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.text != ")" {
			return nil, fmt.Errorf("expected ')'")
		}
		p.next()
		return m, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	// Exactly one of (left, right) must be the variable; the spec's
	// grammar allows the variable on either side (e.g. "'win32' ==
	// sys_platform" is valid alongside "sys_platform == 'win32'").
	if isMarkerVar(left) {
		return comparisonMarker{varName: left, op: op, literal: right}, nil
	}
	// With the variable on the right, ordered comparisons are mirrored so
	// that "'3.8' <= python_version" means python_version >= '3.8'.
	mirrored := map[compareOp]compareOp{"<": ">", "<=": ">=", ">": "<", ">=": "<="}
	if m, ok := mirrored[op]; ok {
		op = m
	}
	return comparisonMarker{varName: right, op: op, literal: left}, nil
}

func isMarkerVar(s string) bool {
	switch s {
	case "python_version", "python_full_version", "os_name", "sys_platform",
		"platform_release", "platform_system", "platform_version",
		"platform_machine", "platform_python_implementation",
		"implementation_name", "implementation_version", "extra":
		return true
	default:
		return false
	}
}

func (p *markerParser) parseOperand() (string, error) {
	switch p.tok {
	case scanner.String, scanner.Char:
		v := strings.Trim(p.text, `"'`)
		p.next()
		return v, nil
	case scanner.Ident:
		v := p.text
		p.next()
		return v, nil
	default:
		return "", fmt.Errorf("expected identifier or string, got %q", p.text)
	}
}

func (p *markerParser) parseOp() (compareOp, error) {
	// The scanner yields one-character tokens, so "==", "!=", "<=", ">="
	// and "~=" arrive as two tokens and are joined here.
	switch p.text {
	case "=", "!", "<", ">", "~":
		if p.s.Peek() == '=' {
			p.s.Next()
			p.text += "="
		}
	}
	switch p.text {
	case "==", "!=", "<=", ">=", "<", ">", "~=":
		op := compareOp(p.text)
		p.next()
		return op, nil
	case "in":
		p.next()
		return opIn, nil
	case "not":
		p.next()
		if p.text != "in" {
			return "", fmt.Errorf("expected 'in' after 'not'")
		}
		p.next()
		return opNotIn, nil
	default:
		return "", fmt.Errorf("expected comparison operator, got %q", p.text)
	}
}
