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

package version

import (
	"fmt"
	"sort"
	"strings"
)

// bound is one edge of a range: either a finite Version or +/-infinity.
type bound struct {
	v         Version
	inclusive bool
	infinite  int // -1, 0 (finite), or +1
}

func negInf() bound { return bound{infinite: -1, inclusive: true} }
func posInf() bound { return bound{infinite: 1, inclusive: true} }

func lowerBound(v Version, inclusive bool) bound { return bound{v: v, inclusive: inclusive} }
func upperBound(v Version, inclusive bool) bound { return bound{v: v, inclusive: inclusive} }

func (b bound) isNegInf() bool { return b.infinite == -1 }
func (b bound) isPosInf() bool { return b.infinite == 1 }

func compareLower(a, b bound) int {
	switch {
	case a.isNegInf() && b.isNegInf():
		return 0
	case a.isNegInf():
		return -1
	case b.isNegInf():
		return 1
	case a.isPosInf() && b.isPosInf():
		return 0
	case a.isPosInf():
		return 1
	case b.isPosInf():
		return -1
	default:
		if c := a.v.Compare(b.v); c != 0 {
			return c
		}
		if a.inclusive == b.inclusive {
			return 0
		}
		if a.inclusive {
			return -1
		}
		return 1
	}
}

func compareUpper(a, b bound) int {
	switch {
	case a.isPosInf() && b.isPosInf():
		return 0
	case a.isPosInf():
		return 1
	case b.isPosInf():
		return -1
	case a.isNegInf() && b.isNegInf():
		return 0
	case a.isNegInf():
		return -1
	case b.isNegInf():
		return 1
	default:
		if c := a.v.Compare(b.v); c != 0 {
			return c
		}
		if a.inclusive == b.inclusive {
			return 0
		}
		if a.inclusive {
			return 1
		}
		return -1
	}
}

// interval is a single contiguous, non-empty range [lower, upper].
type interval struct {
	lower, upper bound
}

func (iv interval) isEmpty() bool {
	if iv.lower.isPosInf() || iv.upper.isNegInf() {
		return true
	}
	if iv.lower.isNegInf() || iv.upper.isPosInf() {
		return false
	}
	c := iv.lower.v.Compare(iv.upper.v)
	if c > 0 {
		return true
	}
	if c == 0 {
		return !(iv.lower.inclusive && iv.upper.inclusive)
	}
	return false
}

func newInterval(lo, hi bound) (interval, bool) {
	iv := interval{lower: lo, upper: hi}
	if iv.isEmpty() {
		return interval{}, false
	}
	return iv, true
}

func (iv interval) contains(v Version) bool {
	if !iv.lower.isNegInf() {
		c := v.Compare(iv.lower.v)
		if c < 0 || (c == 0 && !iv.lower.inclusive) {
			return false
		}
	}
	if !iv.upper.isPosInf() {
		c := v.Compare(iv.upper.v)
		if c > 0 || (c == 0 && !iv.upper.inclusive) {
			return false
		}
	}
	return true
}

func (iv interval) String() string {
	switch {
	case iv.lower.isNegInf() && iv.upper.isPosInf():
		return "*"
	case !iv.lower.isNegInf() && !iv.upper.isPosInf() && iv.lower.inclusive && iv.upper.inclusive && iv.lower.v.Equal(iv.upper.v):
		return fmt.Sprintf("==%s", iv.lower.v)
	}
	var parts []string
	if !iv.lower.isNegInf() {
		op := ">"
		if iv.lower.inclusive {
			op = ">="
		}
		parts = append(parts, op+iv.lower.v.String())
	}
	if !iv.upper.isPosInf() {
		op := "<"
		if iv.upper.inclusive {
			op = "<="
		}
		parts = append(parts, op+iv.upper.v.String())
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ",")
}

// intersectIntervals intersects two intervals, returning ok=false when disjoint.
func intersectIntervals(a, b interval) (interval, bool) {
	lo := a.lower
	if compareLower(b.lower, lo) > 0 {
		lo = b.lower
	}
	hi := a.upper
	if compareUpper(b.upper, hi) < 0 {
		hi = b.upper
	}
	return newInterval(lo, hi)
}

// adjacentOrOverlapping reports whether b (whose lower bound is >= a's,
// per the caller's sort) starts early enough to merge with a: either it
// overlaps a's range, or it touches a's upper edge at a point at least
// one of the two bounds includes.
func adjacentOrOverlapping(a, b interval) bool {
	if a.upper.isPosInf() || b.lower.isNegInf() {
		return true
	}
	c := a.upper.v.Compare(b.lower.v)
	if c > 0 {
		return true
	}
	if c < 0 {
		return false
	}
	return a.upper.inclusive || b.lower.inclusive
}

func mergeInterval(a, b interval) interval {
	lo := a.lower
	if compareLower(b.lower, lo) < 0 {
		lo = b.lower
	}
	hi := a.upper
	if compareUpper(b.upper, hi) > 0 {
		hi = b.upper
	}
	return interval{lower: lo, upper: hi}
}

// Specifier is a VersionSpecifier: a sum type over Any, a single
// specific version, a range, or a disjoint union of ranges. A Specifier
// bound to a URL denotes exactly one URL-bound version.
//
// Invariant: after every algebraic operation the result is canonical —
// intervals sorted and non-overlapping, and the three degenerate shapes
// (Any, None, and a single specific-version interval) are represented
// distinctly rather than folded into a one-element union of ranges.
type Specifier struct {
	intervals []interval
	url       string // set only when this specifier denotes specific_url()
}

// Any matches every version.
func Any() Specifier {
	return Specifier{intervals: []interval{{lower: negInf(), upper: posInf()}}}
}

// None matches no version (the empty union).
func None() Specifier {
	return Specifier{}
}

// Exact matches exactly one version.
func Exact(v Version) Specifier {
	iv, ok := newInterval(lowerBound(v, true), upperBound(v, true))
	if !ok {
		return None()
	}
	return Specifier{intervals: []interval{iv}}
}

// FromURL builds a specifier denoting exactly the URL-bound version at url.
func FromURL(url string) Specifier {
	s := Exact(Version{kind: KindURL, url: url})
	s.url = url
	return s
}

// Range builds a range specifier. A nil min or max means unbounded on
// that side.
func Range(min *Version, includeMin bool, max *Version, includeMax bool) Specifier {
	lo := negInf()
	if min != nil {
		lo = lowerBound(*min, includeMin)
	}
	hi := posInf()
	if max != nil {
		hi = upperBound(*max, includeMax)
	}
	iv, ok := newInterval(lo, hi)
	if !ok {
		return None()
	}
	return Specifier{intervals: []interval{iv}}
}

func normalize(ivs []interval) []interval {
	filtered := ivs[:0:0]
	for _, iv := range ivs {
		if !iv.isEmpty() {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	sort.Slice(filtered, func(i, j int) bool {
		return compareLower(filtered[i].lower, filtered[j].lower) < 0
	})
	merged := make([]interval, 0, len(filtered))
	cur := filtered[0]
	for _, next := range filtered[1:] {
		if adjacentOrOverlapping(cur, next) {
			cur = mergeInterval(cur, next)
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)
	return merged
}

// IsAny reports whether the specifier matches every version.
func (s Specifier) IsAny() bool {
	return len(s.intervals) == 1 && s.intervals[0].lower.isNegInf() && s.intervals[0].upper.isPosInf()
}

// IsNone reports whether the specifier matches no version.
func (s Specifier) IsNone() bool { return len(s.intervals) == 0 }

// SpecificURL returns the URL this specifier denotes, when it is bound
// to exactly one URL-bound version.
func (s Specifier) SpecificURL() (string, bool) {
	if s.url != "" {
		return s.url, true
	}
	return "", false
}

// SpecificVersion returns the single version this specifier denotes exactly
// (as built by Exact), when it is a single-point range.
func (s Specifier) SpecificVersion() (Version, bool) {
	if len(s.intervals) != 1 {
		return Version{}, false
	}
	iv := s.intervals[0]
	if iv.lower.isNegInf() || iv.upper.isPosInf() {
		return Version{}, false
	}
	if !iv.lower.inclusive || !iv.upper.inclusive {
		return Version{}, false
	}
	if !iv.lower.v.Equal(iv.upper.v) {
		return Version{}, false
	}
	return iv.lower.v, true
}

// AllowsVersion reports whether v satisfies the specifier.
func (s Specifier) AllowsVersion(v Version) bool {
	for _, iv := range s.intervals {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// Intersect returns the specifier matching versions allowed by both.
func (s Specifier) Intersect(o Specifier) Specifier {
	var result []interval
	for _, a := range s.intervals {
		for _, b := range o.intervals {
			if iv, ok := intersectIntervals(a, b); ok {
				result = append(result, iv)
			}
		}
	}
	return Specifier{intervals: normalize(result)}
}

// Union returns the specifier matching versions allowed by either.
func (s Specifier) Union(o Specifier) Specifier {
	all := append(append([]interval{}, s.intervals...), o.intervals...)
	return Specifier{intervals: normalize(all)}
}

// Inverse returns the complement of the specifier.
func (s Specifier) Inverse() Specifier {
	if s.IsNone() {
		return Any()
	}
	if s.IsAny() {
		return None()
	}
	var result []interval
	prev := negInf()
	for _, iv := range s.intervals {
		if compareLower(prev, iv.lower) < 0 {
			gapUpper := invertLowerToUpper(iv.lower)
			if gapIv, ok := newInterval(prev, gapUpper); ok {
				result = append(result, gapIv)
			}
		}
		prev = invertUpperToLower(iv.upper)
	}
	if !prev.isPosInf() {
		if gapIv, ok := newInterval(prev, posInf()); ok {
			result = append(result, gapIv)
		}
	}
	return Specifier{intervals: normalize(result)}
}

func invertLowerToUpper(b bound) bound {
	if b.isNegInf() {
		return posInf()
	}
	return bound{v: b.v, inclusive: !b.inclusive}
}

func invertUpperToLower(b bound) bound {
	if b.isPosInf() {
		return posInf()
	}
	return bound{v: b.v, inclusive: !b.inclusive}
}

// Difference returns the versions allowed by s but not by o.
func (s Specifier) Difference(o Specifier) Specifier {
	return s.Intersect(o.Inverse())
}

// AllowsAll reports whether every version allowed by o is also allowed by s.
func (s Specifier) AllowsAll(o Specifier) bool {
	return o.Intersect(s).equalIntervals(o)
}

// AllowsAny reports whether s and o share at least one allowed version.
func (s Specifier) AllowsAny(o Specifier) bool {
	return !s.Intersect(o).IsNone()
}

func (s Specifier) equalIntervals(o Specifier) bool {
	if len(s.intervals) != len(o.intervals) {
		return false
	}
	for i := range s.intervals {
		if compareLower(s.intervals[i].lower, o.intervals[i].lower) != 0 {
			return false
		}
		if compareUpper(s.intervals[i].upper, o.intervals[i].upper) != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether s and o are the same canonical specifier.
func (s Specifier) Equal(o Specifier) bool { return s.equalIntervals(o) }

// String renders the specifier using comma-separated AND clauses within
// a range and " || " between disjoint ranges, matching the teacher's
// ParseVersionRange grammar.
func (s Specifier) String() string {
	if s.IsNone() {
		return "<none>"
	}
	if s.IsAny() {
		return "*"
	}
	parts := make([]string, len(s.intervals))
	for i, iv := range s.intervals {
		parts[i] = iv.String()
	}
	return strings.Join(parts, " || ")
}
