// Copyright 2024 The University of Queensland
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

// Package version implements the PEP 440-style version algebra: parsing,
// ordering, and set operations (intersect/union/inverse/difference) over
// version specifiers.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind distinguishes the three version variants the solver must order.
type Kind int

const (
	// KindStandard is a PEP 440 release: epoch, release tuple, optional
	// pre/post/dev segments and a local segment.
	KindStandard Kind = iota
	// KindNamed is a free-form tag with no ordering outside equality
	// (e.g. a VCS branch name used as a constraint).
	KindNamed
	// KindURL is an opaque identity equal only to itself, denoting a
	// version pinned directly to a URL/path/VCS ref.
	KindURL
)

// preReleaseKind enumerates the PEP 440 pre-release letters, ordered.
type preReleaseKind int

const (
	preNone preReleaseKind = iota
	preAlpha
	preBeta
	preRC
)

// Version is a totally ordered value with three variants. Standard
// versions compare by release tuple and pre/post/dev/local segments;
// Named versions compare equal only to themselves; URL versions are
// opaque identities.
type Version struct {
	kind Kind

	// Standard fields.
	epoch       int
	release     []int
	pre         preReleaseKind
	preNum      int
	hasPre      bool
	post        int
	hasPost     bool
	dev         int
	hasDev      bool
	local       string
	hasLocal    bool
	rawStandard string

	// Named/URL fields.
	tag string
	url string
}

// ParseError carries the offending substring of a malformed version,
// specifier, or dependency string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// Named constructs a free-form named version (no ordering outside equality).
func Named(tag string) Version {
	return Version{kind: KindNamed, tag: tag}
}

// FromURL constructs a URL-bound version: an opaque identity equal only
// to versions sharing the same URL.
func FromURL(url string) Version {
	return Version{kind: KindURL, url: url}
}

// Kind reports which variant this version is.
func (v Version) Kind() Kind { return v.kind }

// Parse accepts the standard grammar:
//
//	[N!]N(.N)*[{a|b|rc}N][.postN][.devN][+local]
func Parse(s string) (Version, error) {
	orig := s
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Version{}, &ParseError{Input: orig, Reason: "empty version"}
	}

	v := Version{kind: KindStandard, rawStandard: orig}

	// epoch
	if idx := strings.Index(s, "!"); idx >= 0 {
		n, err := strconv.Atoi(s[:idx])
		if err != nil {
			return Version{}, &ParseError{Input: orig, Reason: "bad epoch"}
		}
		v.epoch = n
		s = s[idx+1:]
	}

	// local segment
	if idx := strings.Index(s, "+"); idx >= 0 {
		v.local = s[idx+1:]
		v.hasLocal = true
		s = s[:idx]
	}

	// dev segment
	s, devNum, hasDev, err := splitSegment(s, ".dev", "dev")
	if err != nil {
		return Version{}, &ParseError{Input: orig, Reason: err.Error()}
	}
	v.dev, v.hasDev = devNum, hasDev

	// post segment ("postN" or ".postN")
	s, postNum, hasPost, err := splitSegment(s, ".post", "post")
	if err != nil {
		return Version{}, &ParseError{Input: orig, Reason: err.Error()}
	}
	v.post, v.hasPost = postNum, hasPost

	// pre-release segment
	s, preKind, preNum, hasPre, err := splitPreRelease(s)
	if err != nil {
		return Version{}, &ParseError{Input: orig, Reason: err.Error()}
	}
	v.pre, v.preNum, v.hasPre = preKind, preNum, hasPre

	if s == "" {
		return Version{}, &ParseError{Input: orig, Reason: "missing release segment"}
	}
	release := make([]int, 0, 4)
	for _, part := range strings.Split(s, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, &ParseError{Input: orig, Reason: "bad release segment " + part}
		}
		release = append(release, n)
	}
	v.release = release

	return v, nil
}

// MustParse panics on malformed input; for use with compile-time constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func splitSegment(s, dotPrefix, bareKeyword string) (rest string, num int, found bool, err error) {
	if idx := strings.Index(s, dotPrefix); idx >= 0 {
		digits := s[idx+len(dotPrefix):]
		n, e := atoiDefault(digits)
		if e != nil {
			return s, 0, false, fmt.Errorf("bad %s segment", bareKeyword)
		}
		return s[:idx], n, true, nil
	}
	if idx := strings.Index(s, bareKeyword); idx >= 0 && (idx == 0 || s[idx-1] == '-') {
		// "-postN" form normalizes to post as well.
		digits := s[idx+len(bareKeyword):]
		n, e := atoiDefault(digits)
		if e != nil {
			return s, 0, false, nil
		}
		cut := idx
		if idx > 0 && s[idx-1] == '-' {
			cut = idx - 1
		}
		return s[:cut], n, true, nil
	}
	return s, 0, false, nil
}

func splitPreRelease(s string) (rest string, kind preReleaseKind, num int, found bool, err error) {
	markers := []struct {
		tag  string
		kind preReleaseKind
	}{
		{"rc", preRC},
		{"c", preRC},
		{"alpha", preAlpha},
		{"beta", preBeta},
		{"a", preAlpha},
		{"b", preBeta},
	}
	for _, m := range markers {
		idx := strings.LastIndex(s, m.tag)
		if idx < 0 {
			continue
		}
		digits := s[idx+len(m.tag):]
		n, e := atoiDefault(digits)
		if e != nil {
			continue
		}
		return s[:idx], m.kind, n, true, nil
	}
	return s, preNone, 0, false, nil
}

func atoiDefault(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// String renders the version back to its canonical PEP 440 text form.
func (v Version) String() string {
	switch v.kind {
	case KindNamed:
		return v.tag
	case KindURL:
		return v.url
	default:
		var b strings.Builder
		if v.epoch != 0 {
			fmt.Fprintf(&b, "%d!", v.epoch)
		}
		for i, n := range v.release {
			if i > 0 {
				b.WriteByte('.')
			}
			fmt.Fprintf(&b, "%d", n)
		}
		if v.hasPre {
			letters := map[preReleaseKind]string{preAlpha: "a", preBeta: "b", preRC: "rc"}
			fmt.Fprintf(&b, "%s%d", letters[v.pre], v.preNum)
		}
		if v.hasPost {
			fmt.Fprintf(&b, ".post%d", v.post)
		}
		if v.hasDev {
			fmt.Fprintf(&b, ".dev%d", v.dev)
		}
		if v.hasLocal {
			fmt.Fprintf(&b, "+%s", v.local)
		}
		return b.String()
	}
}

// Compare orders versions so that pre < release < post, with equal
// release tuples (padded with zeroes) and local segments compared
// lexicographically after release equality. Named versions compare
// equal only to identical tags (falling back to Masterminds/semver
// ordering when both are parseable as semver, to give a deterministic
// total order for e.g. VCS branch tags);
// URL versions are opaque and compare equal only to an identical URL.
func (v Version) Compare(o Version) int {
	if v.kind != o.kind {
		// Cross-kind comparisons are only meaningful when both are
		// Standard; otherwise arbitrarily but deterministically order
		// by kind so sorts remain stable.
		return int(v.kind) - int(o.kind)
	}

	switch v.kind {
	case KindNamed:
		if v.tag == o.tag {
			return 0
		}
		if sv1, err1 := semver.NewVersion(v.tag); err1 == nil {
			if sv2, err2 := semver.NewVersion(o.tag); err2 == nil {
				return sv1.Compare(sv2)
			}
		}
		return strings.Compare(v.tag, o.tag)
	case KindURL:
		return strings.Compare(v.url, o.url)
	default:
		if c := v.epoch - o.epoch; c != 0 {
			return sign(c)
		}
		if c := compareReleases(v.release, o.release); c != 0 {
			return c
		}
		if c := comparePhase(v, o); c != 0 {
			return c
		}
		if c := comparePost(v, o); c != 0 {
			return c
		}
		if c := compareDev(v, o); c != 0 {
			return c
		}
		return strings.Compare(v.local, o.local)
	}
}

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func compareReleases(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return sign(x - y)
		}
	}
	return 0
}

// comparePhase orders the dev/pre/release/post axis: dev < pre < release < post.
// This function only looks at the pre-release marker; dev and post are
// handled by comparePost/compareDev which additionally consider "is a
// plain release" as lying strictly between pre and post.
func comparePhase(v, o Version) int {
	vPhase := phaseRank(v)
	oPhase := phaseRank(o)
	if vPhase != oPhase {
		return sign(vPhase - oPhase)
	}
	if v.hasPre && o.hasPre {
		if v.pre != o.pre {
			return sign(int(v.pre) - int(o.pre))
		}
		return sign(v.preNum - o.preNum)
	}
	return 0
}

// phaseRank gives dev-only releases the lowest rank, pre-releases next,
// then plain/post releases. post is disambiguated in comparePost.
func phaseRank(v Version) int {
	switch {
	case v.hasPre:
		return 1
	case v.hasDev:
		return 0
	default:
		return 2
	}
}

func comparePost(v, o Version) int {
	vPost, vHas := v.post, v.hasPost
	oPost, oHas := o.post, o.hasPost
	if vHas == oHas {
		if !vHas {
			return 0
		}
		return sign(vPost - oPost)
	}
	if vHas {
		return 1
	}
	return -1
}

func compareDev(v, o Version) int {
	if v.hasDev == o.hasDev {
		if !v.hasDev {
			return 0
		}
		return sign(v.dev - o.dev)
	}
	if v.hasDev {
		return -1
	}
	return 1
}
