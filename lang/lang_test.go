package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phonon-lang/phonon/graph"
)

type fakeBank struct{}

func (fakeBank) Lookup(name string, index int) ([]float32, int, float64, bool) {
	return []float32{0.5, 0.5}, 1, 44100, true
}

func TestParseTempoAndOut(t *testing.T) {
	stmts, err := Parse("tempo: 0.5\nout: sine 440\n")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, TempoStmt{CPS: 0.5}, stmts[0])
	out, ok := stmts[1].(OutStmt)
	require.True(t, ok)
	apply, ok := out.Expr.(Apply)
	require.True(t, ok)
	assert.Equal(t, "sine", apply.Func)
}

func TestParseBusDefAndDollarOut(t *testing.T) {
	stmts, err := Parse("~d1: s \"bd sn\"\nout $ ~d1\n")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	bus, ok := stmts[0].(BusDefStmt)
	require.True(t, ok)
	assert.Equal(t, "d1", bus.Name)
}

func TestParseChainOperator(t *testing.T) {
	stmts, err := Parse(`out: s "bd*4" # gain 0.5 # pan 0`)
	require.NoError(t, err)
	out := stmts[0].(OutStmt)
	chain, ok := out.Expr.(Chain)
	require.True(t, ok)
	links := flattenChain(chain)
	require.Len(t, links, 3)
	base := links[0].(Apply)
	assert.Equal(t, "s", base.Func)
}

func TestLowerSineToOutput(t *testing.T) {
	g := graph.NewGraph(44100, 1)
	stmts, err := Parse("out: sine 440")
	require.NoError(t, err)
	lw := NewLowerer(g, fakeBank{}, nil)
	require.NoError(t, lw.Lower(stmts))

	s1 := g.ProcessSample()
	s2 := g.ProcessSample()
	assert.NotEqual(t, s1, s2)
}

func TestLowerSampleWithModifiers(t *testing.T) {
	g := graph.NewGraph(44100, 1)
	stmts, err := Parse(`out: s "bd*2" # gain 0.8 # pan 0.5`)
	require.NoError(t, err)
	lw := NewLowerer(g, fakeBank{}, nil)
	require.NoError(t, lw.Lower(stmts))

	var sawNonZero bool
	for i := 0; i < 44100; i++ {
		if g.ProcessSample() != 0 {
			sawNonZero = true
		}
	}
	assert.True(t, sawNonZero)
}

func TestLowerBusForwardReference(t *testing.T) {
	g := graph.NewGraph(44100, 1)
	stmts, err := Parse("~a: sine 220\n~b: ~a + 1\nout: ~b\n")
	require.NoError(t, err)
	lw := NewLowerer(g, fakeBank{}, nil)
	require.NoError(t, lw.Lower(stmts))
	assert.NotPanics(t, func() { g.ProcessSample() })
}

func TestUndefinedBusIsCompileError(t *testing.T) {
	g := graph.NewGraph(44100, 1)
	stmts, err := Parse("out: ~nope\n")
	require.NoError(t, err)
	lw := NewLowerer(g, fakeBank{}, nil)
	assert.Error(t, lw.Lower(stmts))
}

func TestParseNumericTokenHandlesNoteNames(t *testing.T) {
	assert.Equal(t, float32(0), parseNumericToken("c5"))
	assert.Equal(t, float32(12), parseNumericToken("c6"))
	assert.Equal(t, float32(4), parseNumericToken("e5"))
	assert.Equal(t, float32(3.5), parseNumericToken("3.5"))
}
