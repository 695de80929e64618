// Package patt implements the pattern algebra: a lazy, time-queryable
// representation of events (Pattern[T]) together with the combinators that
// build TidalCycles-style rhythms out of them. A Pattern is a value — cheap
// to copy, since it wraps a closure captured by reference — and query is a
// pure function of (pattern, State): identical inputs always produce
// identical output events (spec.md §4.1.1).
package patt

import "github.com/phonon-lang/phonon/frac"

// State is the query context passed to a Pattern: the window of cycle time
// being asked about, plus any named control values in scope (used by
// pattern-level parameter references, e.g. sampling a graph control).
type State struct {
	Span     TimeSpan
	Controls map[string]float64
}

// WithSpan returns a copy of s with a different query span.
func (s State) WithSpan(span TimeSpan) State {
	return State{Span: span, Controls: s.Controls}
}

// QueryFunc is the shape every Pattern wraps: given a State, return every
// Hap whose Part intersects State.Span.
type QueryFunc[T any] func(State) []Hap[T]

// Pattern is an immutable, cloneable handle around a QueryFunc. The zero
// value is not usable; construct with Pure, Silence, FromEvents or one of
// the combinators.
type Pattern[T any] struct {
	query QueryFunc[T]
}

// New wraps a raw query function as a Pattern.
func New[T any](f QueryFunc[T]) Pattern[T] {
	return Pattern[T]{query: f}
}

// Query runs the pattern's query function over the given state.
func (p Pattern[T]) Query(s State) []Hap[T] {
	if p.query == nil {
		return nil
	}
	return p.query(s)
}

// QuerySpan is a convenience that builds a State with no controls.
func (p Pattern[T]) QuerySpan(span TimeSpan) []Hap[T] {
	return p.Query(State{Span: span})
}

// Silence is the pattern with no events, ever.
func Silence[T any]() Pattern[T] {
	return New(func(State) []Hap[T] { return nil })
}

// Pure returns a pattern with one event per unit cycle, [n, n+1), carrying
// value for every integer n.
func Pure[T any](value T) Pattern[T] {
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, span := range s.Span.SplitCycles() {
			whole := TimeSpan{Begin: span.SamCycle(), End: span.NextSamCycle()}
			out = append(out, Hap[T]{Whole: whole, HasWhole: true, Part: span, Value: value})
		}
		return out
	})
}

func (s TimeSpan) SamCycle() frac.Fraction     { return s.Begin.SamCycle() }
func (s TimeSpan) NextSamCycle() frac.Fraction { return s.Begin.NextSamCycle() }

// FromEvents builds a pattern directly from an explicit list of
// (begin, end, value) triples, each treated as a discrete whole event
// repeating every cycle only if the caller repeats it; typically used for
// one-shot or already-fully-expanded event lists.
func FromEvents[T any](events []struct {
	Begin, End frac.Fraction
	Value      T
}) Pattern[T] {
	haps := make([]Hap[T], len(events))
	for i, e := range events {
		whole := TimeSpan{Begin: e.Begin, End: e.End}
		haps[i] = Hap[T]{Whole: whole, HasWhole: true, Part: whole, Value: e.Value}
	}
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, h := range haps {
			if overlap, ok := h.Part.Intersect(s.Span); ok {
				out = append(out, Hap[T]{Whole: h.Whole, HasWhole: h.HasWhole, Part: overlap, Value: h.Value})
			}
		}
		return out
	})
}

// Signal returns a continuous (whole-less) pattern whose value at any
// instant is f(cyclePosition); used for oscillator-like number patterns
// (e.g. a sine LFO expressed as a Pattern[float64]).
func Signal[T any](f func(frac.Fraction) T) Pattern[T] {
	return New(func(s State) []Hap[T] {
		mid := frac.Div(frac.Add(s.Span.Begin, s.Span.End), frac.FromInt(2))
		return []Hap[T]{{Part: s.Span, HasWhole: false, Value: f(mid)}}
	})
}

// Map transforms every event's value with f.
func Map[T, U any](p Pattern[T], f func(T) U) Pattern[U] {
	return New(func(s State) []Hap[U] {
		in := p.Query(s)
		out := make([]Hap[U], len(in))
		for i, h := range in {
			out[i] = WithValue(h, f(h.Value))
		}
		return out
	})
}

// Filter keeps only events whose value satisfies pred.
func Filter[T any](p Pattern[T], pred func(T) bool) Pattern[T] {
	return New(func(s State) []Hap[T] {
		in := p.Query(s)
		out := make([]Hap[T], 0, len(in))
		for _, h := range in {
			if pred(h.Value) {
				out = append(out, h)
			}
		}
		return out
	})
}

// FilterHaps keeps only events for which pred(hap) holds, e.g. onset-only
// filtering via h.HasOnset().
func FilterHaps[T any](p Pattern[T], pred func(Hap[T]) bool) Pattern[T] {
	return New(func(s State) []Hap[T] {
		in := p.Query(s)
		out := make([]Hap[T], 0, len(in))
		for _, h := range in {
			if pred(h) {
				out = append(out, h)
			}
		}
		return out
	})
}

// WithQuerySpan adapts the incoming query span with f before handing it to
// p, without touching the resulting events' timing. Used internally by
// time-domain combinators together with WithResultTime.
func WithQuerySpan[T any](p Pattern[T], f func(TimeSpan) TimeSpan) Pattern[T] {
	return New(func(s State) []Hap[T] {
		return p.Query(s.WithSpan(f(s.Span)))
	})
}

// WithResultTime maps f over every returned Hap's time fields.
func WithResultTime[T any](p Pattern[T], f func(frac.Fraction) frac.Fraction) Pattern[T] {
	return New(func(s State) []Hap[T] {
		in := p.Query(s)
		out := make([]Hap[T], len(in))
		for i, h := range in {
			out[i] = MapHapTime(h, f)
		}
		return out
	})
}
