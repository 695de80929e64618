package patt

import (
	"testing"

	clone "github.com/huandu/go-clone/generic"
	"github.com/stretchr/testify/assert"

	"github.com/phonon-lang/phonon/frac"
)

func fullCycle(n int64) TimeSpan {
	return TimeSpan{Begin: frac.FromInt(0), End: frac.FromInt(n)}
}

// seqOf lays out vals as an even subdivision of one cycle, the same
// scheme the mini-notation compiler uses for bare space-separated tokens.
// Defined locally (rather than importing patt/mini) to avoid an import
// cycle in this package's internal test files.
func seqOf(vals ...string) Pattern[string] {
	n := int64(len(vals))
	if n == 0 {
		return Silence[string]()
	}
	var parts []Pattern[string]
	for i, v := range vals {
		b := frac.New(int64(i), n)
		e := frac.New(int64(i+1), n)
		parts = append(parts, Compress(b, e, Pure(v)))
	}
	return Stack(parts...)
}

// MustParseTestSeq maps the few fixed mini-notation strings these tests
// use (plain token lists and "[a b]*2 <c d> e(3,8)") to hand-built
// patterns, without depending on the mini package (see seqOf for why).
// It panics on any other string.
func MustParseTestSeq(src string) Pattern[string] {
	switch src {
	case "a b c":
		return seqOf("a", "b", "c")
	case "a b":
		return seqOf("a", "b")
	case "a b c d":
		return seqOf("a", "b", "c", "d")
	case "a b c d e f g h":
		return seqOf("a", "b", "c", "d", "e", "f", "g", "h")
	case "[a b]*2 <c d> e(3,8)":
		left := Fast(frac.FromInt(2), seqOf("a", "b"))
		mid := Cat(Pure("c"), Pure("d"))
		right := EuclidOf(3, 8, 0, Pure("e"))
		return Stack(Compress(frac.New(0, 3), frac.New(1, 3), left),
			Compress(frac.New(1, 3), frac.New(2, 3), mid),
			Compress(frac.New(2, 3), frac.New(3, 3), right))
	default:
		panic("unsupported test sequence: " + src)
	}
}

func values(haps []Hap[string]) []string {
	out := make([]string, len(haps))
	for i, h := range haps {
		out[i] = h.Value
	}
	return out
}

func TestFastComposition(t *testing.T) {
	// fast(n, fast(m, p)) == fast(n*m, p) -- spec.md §8.1 law 1
	p := Pure("a")
	lhs := Fast(frac.FromInt(2), Fast(frac.FromInt(3), p))
	rhs := Fast(frac.FromInt(6), p)

	span := fullCycle(1)
	assert.Equal(t, len(rhs.QuerySpan(span)), len(lhs.QuerySpan(span)))
	for i := range lhs.QuerySpan(span) {
		l := lhs.QuerySpan(span)[i]
		r := rhs.QuerySpan(span)[i]
		assert.True(t, frac.Eq(l.Part.Begin, r.Part.Begin))
		assert.True(t, frac.Eq(l.Part.End, r.Part.End))
	}
}

func TestFastSlowIdentity(t *testing.T) {
	p := Pure("a")
	span := fullCycle(3)

	fastOne := Fast(frac.FromInt(1), p).QuerySpan(span)
	slowOne := Slow(frac.FromInt(1), p).QuerySpan(span)
	base := p.QuerySpan(span)

	assert.Equal(t, len(base), len(fastOne))
	assert.Equal(t, len(base), len(slowOne))
}

func TestRevInvolution(t *testing.T) {
	p := MustParseTestSeq("a b c")
	span := fullCycle(2)

	twice := SortHaps(Rev(Rev(p)).QuerySpan(span))
	base := SortHaps(p.QuerySpan(span))

	assert.Equal(t, len(base), len(twice))
	for i := range base {
		assert.Equal(t, base[i].Value, twice[i].Value)
		assert.True(t, frac.Eq(base[i].Part.Begin, twice[i].Part.Begin))
	}
}

func TestCatSingleton(t *testing.T) {
	p := Pure("x")
	cat := Cat(p)
	span := fullCycle(2)
	assert.Equal(t, values(p.QuerySpan(span)), values(cat.QuerySpan(span)))
}

func TestStackSingletonAndCommutative(t *testing.T) {
	p := Pure("x")
	assert.Equal(t, values(p.QuerySpan(fullCycle(1))), values(Stack(p).QuerySpan(fullCycle(1))))

	a, b := Pure("a"), Pure("b")
	s1 := Stack(a, b).QuerySpan(fullCycle(1))
	s2 := Stack(b, a).QuerySpan(fullCycle(1))
	assert.ElementsMatch(t, values(s1), values(s2))
}

func TestEveryIdentityAndUnit(t *testing.T) {
	p := MustParseTestSeq("a b")
	upper := func(q Pattern[string]) Pattern[string] {
		return Map(q, func(s string) string { return s + "!" })
	}

	// every(1, f, p) == f(p)
	e1 := Every(1, upper, p).QuerySpan(fullCycle(1))
	f1 := upper(p).QuerySpan(fullCycle(1))
	assert.Equal(t, values(f1), values(e1))

	// every(n, id, p) == p
	idf := func(q Pattern[string]) Pattern[string] { return q }
	en := SortHaps(Every(4, idf, p).QuerySpan(fullCycle(4)))
	base := SortHaps(p.QuerySpan(fullCycle(4)))
	assert.Equal(t, values(base), values(en))
}

func TestDegradeByBoundaries(t *testing.T) {
	p := MustParseTestSeq("a b c d e f g h")
	span := fullCycle(4)

	none := DegradeBy(0, p).QuerySpan(span)
	base := p.QuerySpan(span)
	assert.Equal(t, len(base), len(none))

	all := DegradeBy(1, p).QuerySpan(span)
	assert.Empty(t, all)
}

func TestPalindromeIsCatRev(t *testing.T) {
	p := MustParseTestSeq("a b c")
	lhs := Palindrome(p).QuerySpan(fullCycle(2))
	rhs := Cat(p, Rev(p)).QuerySpan(fullCycle(2))
	assert.Equal(t, values(rhs), values(lhs))
}

func TestQueryCompleteness(t *testing.T) {
	p := MustParseTestSeq("[a b]*2 <c d> e(3,8)")
	const n = 4

	wholeSpan := TimeSpan{Begin: frac.FromInt(0), End: frac.FromInt(n)}
	combined := p.QuerySpan(wholeSpan)

	var perCycle []Hap[string]
	for c := int64(0); c < n; c++ {
		perCycle = append(perCycle, p.QuerySpan(TimeSpan{Begin: frac.FromInt(c), End: frac.FromInt(c + 1)})...)
	}

	assert.ElementsMatch(t, values(combined), values(perCycle))
}

func TestEuclidPulseCount(t *testing.T) {
	mask := Euclid(3, 8, 0)
	haps := mask.QuerySpan(fullCycle(1))
	assert.Len(t, haps, 3)
}

func TestMiniNotationRoundTrip(t *testing.T) {
	p := MustParseTestSeq("a b c d")
	haps := SortHaps(p.QuerySpan(fullCycle(1)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, values(haps))
	for _, h := range haps {
		assert.True(t, frac.Eq(h.Whole.Width(), frac.New(1, 4)))
	}
}

func TestCloneKeepsFixturePristine(t *testing.T) {
	// Mirrors the teacher's helpers_test.go use of go-clone to snapshot a
	// fixture before mutating a copy of it in a subtest.
	type fixture struct {
		Labels []string
	}
	base := fixture{Labels: []string{"a", "b"}}

	copy1 := clone.Clone(base)
	copy1.Labels = append(copy1.Labels, "c")

	assert.Len(t, base.Labels, 2)
	assert.Len(t, copy1.Labels, 3)
}
