package mini

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phonon-lang/phonon/frac"
	"github.com/phonon-lang/phonon/patt"
)

func span(n int64) patt.TimeSpan {
	return patt.TimeSpan{Begin: frac.FromInt(0), End: frac.FromInt(n)}
}

func vals(haps []patt.Hap[string]) []string {
	out := make([]string, len(haps))
	for i, h := range haps {
		out[i] = h.Value
	}
	return out
}

func TestBareSequence(t *testing.T) {
	p := MustParse("bd sn hh cp")
	haps := patt.SortHaps(p.QuerySpan(span(1)))
	assert.Equal(t, []string{"bd", "sn", "hh", "cp"}, vals(haps))
	for _, h := range haps {
		assert.True(t, frac.Eq(h.Whole.Width(), frac.New(1, 4)))
	}
}

func TestRest(t *testing.T) {
	p := MustParse("bd ~ bd ~")
	haps := patt.SortHaps(p.QuerySpan(span(1)))
	assert.Equal(t, []string{"bd", "bd"}, vals(haps))
}

func TestNestedSubsequence(t *testing.T) {
	p := MustParse("bd [sn sn]")
	haps := patt.SortHaps(p.QuerySpan(span(1)))
	assert.Equal(t, []string{"bd", "sn", "sn"}, vals(haps))
	assert.True(t, frac.Eq(haps[0].Whole.Width(), frac.New(1, 2)))
	assert.True(t, frac.Eq(haps[1].Whole.Width(), frac.New(1, 4)))
}

func TestCatAcrossCycles(t *testing.T) {
	p := MustParse("<bd sn cp>")
	for i, want := range []string{"bd", "sn", "cp", "bd"} {
		haps := p.QuerySpan(patt.TimeSpan{Begin: frac.FromInt(int64(i)), End: frac.FromInt(int64(i + 1))})
		assert.Equal(t, []string{want}, vals(haps))
	}
}

func TestStutterModifier(t *testing.T) {
	p := MustParse("bd*4")
	haps := patt.SortHaps(p.QuerySpan(span(1)))
	assert.Len(t, haps, 4)
}

func TestSlowModifier(t *testing.T) {
	p := MustParse("bd/2")
	haps := p.QuerySpan(span(2))
	assert.Len(t, haps, 1)
}

func TestEuclid(t *testing.T) {
	p := MustParse("bd(3,8)")
	haps := p.QuerySpan(span(1))
	assert.Len(t, haps, 3)
	for _, h := range haps {
		assert.Equal(t, "bd", h.Value)
	}
}

func TestElongation(t *testing.T) {
	p := MustParse("bd@3 sn")
	haps := patt.SortHaps(p.QuerySpan(span(1)))
	assert.Equal(t, []string{"bd", "sn"}, vals(haps))
	assert.True(t, frac.Eq(haps[0].Whole.Width(), frac.New(3, 4)))
	assert.True(t, frac.Eq(haps[1].Whole.Width(), frac.New(1, 4)))
}

func TestStack(t *testing.T) {
	p := MustParse("[bd, hh*2]")
	haps := patt.SortHaps(p.QuerySpan(span(1)))
	assert.ElementsMatch(t, []string{"bd", "hh", "hh"}, vals(haps))
}

func TestDegradeParses(t *testing.T) {
	p := MustParse("bd*8?")
	haps := p.QuerySpan(span(1))
	assert.LessOrEqual(t, len(haps), 8)
}

func TestChoiceIsDeterministic(t *testing.T) {
	p := MustParse("bd|sn")
	first := vals(p.QuerySpan(span(1)))
	second := vals(p.QuerySpan(span(1)))
	assert.Equal(t, first, second)
}

func TestWhitespaceTolerant(t *testing.T) {
	p := MustParse("  bd   sn  ")
	haps := patt.SortHaps(p.QuerySpan(span(1)))
	assert.Equal(t, []string{"bd", "sn"}, vals(haps))
}

func TestDeepNesting(t *testing.T) {
	p := MustParse("[[bd sn] [hh hh hh]]")
	haps := patt.SortHaps(p.QuerySpan(span(1)))
	assert.Equal(t, []string{"bd", "sn", "hh", "hh", "hh"}, vals(haps))
}
