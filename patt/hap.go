package patt

import "github.com/phonon-lang/phonon/frac"

// Hap ("happening") is a single timed, valued event yielded by a pattern
// query. Whole is the event's full logical extent; it is absent
// (HasWhole==false) for continuous (signal-like) patterns, and present for
// discrete ones even when Part has been clipped by the query window.
// Invariant: when HasWhole, Part must be a subset of Whole.
type Hap[T any] struct {
	Whole    TimeSpan
	HasWhole bool
	Part     TimeSpan
	Value    T
}

// WholeOrPart returns Whole if present, otherwise Part — the span to use
// when onset/offset timing (rather than visible-window clipping) matters.
func (h Hap[T]) WholeOrPart() TimeSpan {
	if h.HasWhole {
		return h.Whole
	}
	return h.Part
}

// HasOnset reports whether Part.Begin is the start of Whole, i.e. this
// query returned the moment the event began (not merely a fragment of an
// event that started earlier). Continuous haps never have an onset.
func (h Hap[T]) HasOnset() bool {
	return h.HasWhole && frac.Eq(h.Whole.Begin, h.Part.Begin)
}

// WithValue returns a copy of h with a replacement value (used by Pattern
// combinators that transform values without touching timing).
func WithValue[T, U any](h Hap[T], v U) Hap[U] {
	return Hap[U]{Whole: h.Whole, HasWhole: h.HasWhole, Part: h.Part, Value: v}
}

// MapHapTime maps f over every time field of h (whole and part).
func MapHapTime[T any](h Hap[T], f func(frac.Fraction) frac.Fraction) Hap[T] {
	out := h
	out.Part = h.Part.WithTime(f)
	if h.HasWhole {
		out.Whole = h.Whole.WithTime(f)
	}
	return out
}
