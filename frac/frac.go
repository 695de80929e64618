// Package frac implements exact rational arithmetic used for all pattern
// time in Phonon. Every Fraction is kept in lowest terms with a positive,
// nonzero denominator.
package frac

import "fmt"

// Fraction is a signed rational number Num/Den, always stored in lowest
// terms with Den > 0.
type Fraction struct {
	Num int64
	Den uint64
}

// New returns num/den reduced to lowest terms. Panics if den is zero.
func New(num int64, den int64) Fraction {
	if den == 0 {
		panic("frac: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	return reduce(Fraction{Num: num, Den: uint64(den)})
}

// FromInt returns the Fraction equal to n.
func FromInt(n int64) Fraction { return Fraction{Num: n, Den: 1} }

// FromFloat approximates f as a Fraction with a fixed denominator of
// 1,000,000, then reduces. Good enough for user-facing constants like
// `@1.5` elongation or `0.25` cycle offsets; not used on any hot path.
func FromFloat(f float64) Fraction {
	const scale = 1_000_000
	return New(int64(f*scale+sign(f)*0.5), scale)
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(n int64) uint64 {
	if n < 0 {
		return uint64(-n)
	}
	return uint64(n)
}

func reduce(f Fraction) Fraction {
	if f.Num == 0 {
		return Fraction{Num: 0, Den: 1}
	}
	g := gcd(abs64(f.Num), f.Den)
	if g > 1 {
		f.Num /= int64(g)
		f.Den /= g
	}
	return f
}

// Add returns a+b.
func Add(a, b Fraction) Fraction {
	return New(a.Num*int64(b.Den)+b.Num*int64(a.Den), int64(a.Den*b.Den))
}

// Sub returns a-b.
func Sub(a, b Fraction) Fraction {
	return New(a.Num*int64(b.Den)-b.Num*int64(a.Den), int64(a.Den*b.Den))
}

// Mul returns a*b.
func Mul(a, b Fraction) Fraction {
	return New(a.Num*b.Num, int64(a.Den*b.Den))
}

// Div returns a/b. Panics if b is zero.
func Div(a, b Fraction) Fraction {
	if b.Num == 0 {
		panic("frac: division by zero")
	}
	return New(a.Num*int64(b.Den), int64(a.Den)*b.Num)
}

// Neg returns -a.
func Neg(a Fraction) Fraction { return Fraction{Num: -a.Num, Den: a.Den} }

// Cmp returns -1, 0 or 1 as a<b, a==b, a>b.
func Cmp(a, b Fraction) int {
	lhs := a.Num * int64(b.Den)
	rhs := b.Num * int64(a.Den)
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

func Lt(a, b Fraction) bool  { return Cmp(a, b) < 0 }
func Lte(a, b Fraction) bool { return Cmp(a, b) <= 0 }
func Gt(a, b Fraction) bool  { return Cmp(a, b) > 0 }
func Gte(a, b Fraction) bool { return Cmp(a, b) >= 0 }
func Eq(a, b Fraction) bool  { return Cmp(a, b) == 0 }

// Min returns the smaller of a, b.
func Min(a, b Fraction) Fraction {
	if Lte(a, b) {
		return a
	}
	return b
}

// Max returns the larger of a, b.
func Max(a, b Fraction) Fraction {
	if Gte(a, b) {
		return a
	}
	return b
}

// Float returns a lossless-enough float64 approximation, used only when
// sampling time into the audio domain.
func (f Fraction) Float() float64 {
	return float64(f.Num) / float64(f.Den)
}

// Floor returns the greatest integer cycle <= f, i.e. floor(f).
func (f Fraction) Floor() int64 {
	q := f.Num / int64(f.Den)
	if f.Num%int64(f.Den) != 0 && f.Num < 0 {
		q--
	}
	return q
}

// Ceil returns the smallest integer >= f.
func (f Fraction) Ceil() int64 {
	fl := f.Floor()
	if Eq(f, FromInt(fl)) {
		return fl
	}
	return fl + 1
}

// Cyc returns the fractional part of f within its cycle, i.e. f - floor(f),
// always in [0, 1).
func (f Fraction) Cyc() Fraction {
	return Sub(f, FromInt(f.Floor()))
}

// SamCycle returns floor(f) as a Fraction (the start-of-cycle sample point).
func (f Fraction) SamCycle() Fraction {
	return FromInt(f.Floor())
}

// NextSamCycle returns floor(f)+1 as a Fraction.
func (f Fraction) NextSamCycle() Fraction {
	return FromInt(f.Floor() + 1)
}

func (f Fraction) String() string {
	if f.Den == 1 {
		return fmt.Sprintf("%d", f.Num)
	}
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// IsInteger reports whether f has denominator 1.
func (f Fraction) IsInteger() bool { return f.Den == 1 }
