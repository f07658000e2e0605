package version_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkm-project/pkm/internal/version"
)

func mustParse(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	require.NoError(t, err, "Parse(%q)", s)
	return v
}

func TestOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct{ lo, hi string }{
		{"1.0.dev1", "1.0a1"},
		{"1.0a1", "1.0"},
		{"1.0", "1.0.post1"},
		{"1.0.dev1", "1.0.post1"},
		{"1.0a1", "1.0b1"},
		{"1.0b1", "1.0rc1"},
	}
	for _, tt := range tests {
		lo, hi := mustParse(t, tt.lo), mustParse(t, tt.hi)
		require.Negative(t, lo.Compare(hi), "%s should be < %s", tt.lo, tt.hi)
		require.Positive(t, hi.Compare(lo), "%s should be > %s", tt.hi, tt.lo)
	}
}

func TestEquivalentReleaseTuples(t *testing.T) {
	t.Parallel()
	a := mustParse(t, "1.0")
	b := mustParse(t, "1.0.0")
	require.True(t, a.Equal(b))
}

func TestSpecifierIntersectInverse(t *testing.T) {
	t.Parallel()
	a := version.Range(ptr(mustParse(t, "1.0")), true, ptr(mustParse(t, "2.0")), false)

	require.True(t, a.Intersect(a.Inverse()).IsNone())
	require.True(t, a.Union(a.Inverse()).IsAny())
}

func TestAllowsAllMatchesIntersection(t *testing.T) {
	t.Parallel()
	a := version.Range(ptr(mustParse(t, "1.0")), true, ptr(mustParse(t, "3.0")), false)
	b := version.Range(ptr(mustParse(t, "1.5")), true, ptr(mustParse(t, "2.0")), false)

	require.True(t, a.AllowsAll(b))
	require.True(t, a.Intersect(b).Equal(b))
}

func TestAllowsVersionMatchesIntersectionSemantics(t *testing.T) {
	t.Parallel()
	a := version.Range(ptr(mustParse(t, "1.0")), true, nil, false)
	b := version.Range(nil, false, ptr(mustParse(t, "3.0")), false)
	v := mustParse(t, "2.0")

	got := a.Intersect(b).AllowsVersion(v)
	want := a.AllowsVersion(v) && b.AllowsVersion(v)
	require.Equal(t, want, got)
}

func TestCanonicalFormIsAFunction(t *testing.T) {
	t.Parallel()
	// Two equivalent specifiers built differently must compare equal.
	a := version.Range(ptr(mustParse(t, "1.0")), true, ptr(mustParse(t, "2.0")), false).
		Union(version.Range(ptr(mustParse(t, "2.0")), true, ptr(mustParse(t, "3.0")), false))
	b := version.Range(ptr(mustParse(t, "1.0")), true, ptr(mustParse(t, "3.0")), false)
	require.True(t, a.Equal(b), "adjacent ranges should merge: %s vs %s", a, b)
}

func TestSpecificURL(t *testing.T) {
	t.Parallel()
	s := version.FromURL("https://example.com/pkg-1.0.whl")
	url, ok := s.SpecificURL()
	require.True(t, ok)
	require.Equal(t, "https://example.com/pkg-1.0.whl", url)

	require.False(t, version.Any().IsNone())
	_, ok = version.Any().SpecificURL()
	require.False(t, ok)
}

func ptr[T any](v T) *T { return &v }
