package patt

import "github.com/phonon-lang/phonon/frac"

// TimeSpan is a half-open interval [Begin, End) of cycle positions.
// Invariant: End >= Begin.
type TimeSpan struct {
	Begin, End frac.Fraction
}

// NewSpan builds a TimeSpan, panicking if end < begin (a programmer error:
// no combinator should ever construct an inverted span).
func NewSpan(begin, end frac.Fraction) TimeSpan {
	if frac.Lt(end, begin) {
		panic("patt: TimeSpan end before begin")
	}
	return TimeSpan{Begin: begin, End: end}
}

// Width returns End-Begin.
func (s TimeSpan) Width() frac.Fraction { return frac.Sub(s.End, s.Begin) }

// WithTime maps f over both endpoints, returning a new span.
func (s TimeSpan) WithTime(f func(frac.Fraction) frac.Fraction) TimeSpan {
	return NewSpan(f(s.Begin), f(s.End))
}

// Intersect returns the overlap of s and o, and false if they do not
// overlap (an empty intersection with Begin==End counts as overlapping
// only when the two spans touch AND at least one has zero width).
func (s TimeSpan) Intersect(o TimeSpan) (TimeSpan, bool) {
	begin := frac.Max(s.Begin, o.Begin)
	end := frac.Min(s.End, o.End)
	if frac.Gt(begin, end) {
		return TimeSpan{}, false
	}
	if frac.Eq(begin, end) && !frac.Eq(s.Begin, s.End) && !frac.Eq(o.Begin, o.End) {
		// Two nonzero-width spans touching at a single point don't overlap.
		return TimeSpan{}, false
	}
	return TimeSpan{Begin: begin, End: end}, true
}

// Subtract removes the portion of s covered by o, returning up to two
// remaining pieces (it can split s into a left and a right remainder).
func (s TimeSpan) Subtract(o TimeSpan) []TimeSpan {
	overlap, ok := s.Intersect(o)
	if !ok {
		return []TimeSpan{s}
	}
	var out []TimeSpan
	if frac.Lt(s.Begin, overlap.Begin) {
		out = append(out, TimeSpan{Begin: s.Begin, End: overlap.Begin})
	}
	if frac.Lt(overlap.End, s.End) {
		out = append(out, TimeSpan{Begin: overlap.End, End: s.End})
	}
	return out
}

// SplitCycles breaks s into one TimeSpan per cycle it touches, so that no
// returned span crosses a whole-number cycle boundary. A zero-width span
// is returned unsplit.
func (s TimeSpan) SplitCycles() []TimeSpan {
	if frac.Eq(s.Begin, s.End) {
		return []TimeSpan{s}
	}
	var out []TimeSpan
	begin := s.Begin
	for frac.Lt(begin, s.End) {
		nextBoundary := begin.NextSamCycle()
		end := frac.Min(nextBoundary, s.End)
		out = append(out, TimeSpan{Begin: begin, End: end})
		begin = end
	}
	return out
}

// Cycle returns the integer cycle this span's Begin falls in.
func (s TimeSpan) Cycle() int64 { return s.Begin.Floor() }
