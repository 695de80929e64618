package frac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduction(t *testing.T) {
	f := New(2, 4)
	assert.Equal(t, int64(1), f.Num)
	assert.Equal(t, uint64(2), f.Den)
}

func TestArithmetic(t *testing.T) {
	a := New(1, 2)
	b := New(1, 3)

	assert.True(t, Eq(Add(a, b), New(5, 6)))
	assert.True(t, Eq(Sub(a, b), New(1, 6)))
	assert.True(t, Eq(Mul(a, b), New(1, 6)))
	assert.True(t, Eq(Div(a, b), New(3, 2)))
}

func TestNegativeDenominatorNormalized(t *testing.T) {
	f := New(3, -4)
	assert.Equal(t, int64(-3), f.Num)
	assert.Equal(t, uint64(4), f.Den)
}

func TestComparisons(t *testing.T) {
	a := New(1, 2)
	b := New(2, 3)
	assert.True(t, Lt(a, b))
	assert.True(t, Gt(b, a))
	assert.True(t, Lte(a, a))
	assert.True(t, Gte(a, a))
}

func TestFloorCeilCyc(t *testing.T) {
	f := New(7, 2) // 3.5
	assert.Equal(t, int64(3), f.Floor())
	assert.Equal(t, int64(4), f.Ceil())
	assert.True(t, Eq(f.Cyc(), New(1, 2)))

	neg := New(-1, 2) // -0.5
	assert.Equal(t, int64(-1), neg.Floor())
	assert.True(t, Eq(neg.Cyc(), New(1, 2)))
}

func TestFloat(t *testing.T) {
	assert.InDelta(t, 0.75, New(3, 4).Float(), 1e-9)
}

func TestFromFloat(t *testing.T) {
	f := FromFloat(0.25)
	assert.InDelta(t, 0.25, f.Float(), 1e-6)
}
