package patt

import (
	"sort"

	"github.com/phonon-lang/phonon/frac"
)

// Fast scales time so that n cycles' worth of p plays in one cycle
// (spec.md §4.1.3 fast(n)).
func Fast[T any](n frac.Fraction, p Pattern[T]) Pattern[T] {
	if n.Num == 0 {
		return Silence[T]()
	}
	if frac.Eq(n, frac.FromInt(1)) {
		return p
	}
	inv := frac.Div(frac.FromInt(1), n)
	return WithResultTime(
		WithQuerySpan(p, func(sp TimeSpan) TimeSpan { return sp.WithTime(func(f frac.Fraction) frac.Fraction { return frac.Mul(f, n) }) }),
		func(f frac.Fraction) frac.Fraction { return frac.Mul(f, inv) },
	)
}

// Slow is Fast(1/n, p) (spec.md §4.1.3 slow(n)).
func Slow[T any](n frac.Fraction, p Pattern[T]) Pattern[T] {
	if n.Num == 0 {
		return Silence[T]()
	}
	return Fast(frac.Div(frac.FromInt(1), n), p)
}

// Rev mirrors each cycle of p about its own midpoint (spec.md §4.1.3 rev()).
func Rev[T any](p Pattern[T]) Pattern[T] {
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, span := range s.Span.SplitCycles() {
			cyc := span.Cycle()
			reflect := func(f frac.Fraction) frac.Fraction {
				// map [k, k+1) onto itself reversed: k+1-(f-k)
				return frac.Sub(frac.FromInt(cyc+1), frac.Sub(f, frac.FromInt(cyc)))
			}
			qSpan := TimeSpan{Begin: reflect(span.End), End: reflect(span.Begin)}
			for _, h := range p.Query(s.WithSpan(qSpan)) {
				// reflecting swaps each span's ends, so map End to Begin
				h.Part = TimeSpan{Begin: reflect(h.Part.End), End: reflect(h.Part.Begin)}
				if h.HasWhole {
					h.Whole = TimeSpan{Begin: reflect(h.Whole.End), End: reflect(h.Whole.Begin)}
				}
				out = append(out, h)
			}
		}
		return out
	})
}

// Stack plays every pattern in ps simultaneously; the result is the union
// of all their events under the same query (spec.md §4.1.3 stack(ps)).
func Stack[T any](ps ...Pattern[T]) Pattern[T] {
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, p := range ps {
			out = append(out, p.Query(s)...)
		}
		return out
	})
}

// Cat concatenates patterns across cycles: cycle i plays ps[i mod
// len(ps)], queried in its own local [0,1) frame then mapped back onto the
// absolute cycle (spec.md §4.1.3 cat(ps)).
func Cat[T any](ps ...Pattern[T]) Pattern[T] {
	n := int64(len(ps))
	if n == 0 {
		return Silence[T]()
	}
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, span := range s.Span.SplitCycles() {
			cyc := span.Cycle()
			idx := cyc % n
			if idx < 0 {
				idx += n
			}
			child := ps[idx]
			offset := frac.Sub(frac.FromInt(cyc), frac.FromInt(0))
			toLocal := func(f frac.Fraction) frac.Fraction { return frac.Sub(f, offset) }
			toAbs := func(f frac.Fraction) frac.Fraction { return frac.Add(f, offset) }
			localSpan := span.WithTime(toLocal)
			for _, h := range child.Query(s.WithSpan(localSpan)) {
				out = append(out, MapHapTime(h, toAbs))
			}
		}
		return out
	})
}

// Every applies the transform f on every n-th cycle (cycle index divisible
// by n), passing the pattern through unchanged otherwise (spec.md §4.1.3
// every(n, f)).
func Every[T any](n int64, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	if n <= 0 {
		return p
	}
	transformed := f(p)
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, span := range s.Span.SplitCycles() {
			cyc := span.Cycle()
			mod := cyc % n
			if mod < 0 {
				mod += n
			}
			src := p
			if mod == 0 {
				src = transformed
			}
			out = append(out, src.Query(s.WithSpan(span))...)
		}
		return out
	})
}

// DegradeBy removes each event with probability amount (0..1), using a
// deterministic hash of the event's onset time so the same pattern+state
// always degrades the same way (spec.md §4.1.3 degrade_by(amount)).
func DegradeBy[T any](amount float64, p Pattern[T]) Pattern[T] {
	return FilterHaps(p, func(h Hap[T]) bool {
		return hashAt(h.WholeOrPart().Begin.Float(), 0) >= amount
	})
}

// UndegradeBy is the complement of DegradeBy: it keeps exactly the events
// DegradeBy would have removed. Useful for splitting a pattern into two
// probabilistic halves with `sometimesBy`-style constructs.
func UndegradeBy[T any](amount float64, p Pattern[T]) Pattern[T] {
	return FilterHaps(p, func(h Hap[T]) bool {
		return hashAt(h.WholeOrPart().Begin.Float(), 0) < amount
	})
}

// Stutter repeats each event n times within its own span (spec.md §4.1.3
// stutter(n)).
func Stutter[T any](n int, p Pattern[T]) Pattern[T] {
	if n <= 1 {
		return p
	}
	return New(func(s State) []Hap[T] {
		in := p.Query(s)
		var out []Hap[T]
		for _, h := range in {
			whole := h.WholeOrPart()
			width := frac.Div(whole.Width(), frac.FromInt(int64(n)))
			for i := 0; i < n; i++ {
				off := frac.Mul(width, frac.FromInt(int64(i)))
				sub := TimeSpan{Begin: frac.Add(whole.Begin, off), End: frac.Add(whole.Begin, frac.Add(off, width))}
				part, ok := sub.Intersect(h.Part)
				if !ok {
					part, ok = sub.Intersect(s.Span)
					if !ok {
						continue
					}
				}
				out = append(out, Hap[T]{Whole: sub, HasWhole: h.HasWhole, Part: part, Value: h.Value})
			}
		}
		return out
	})
}

// Ply compresses each event to 1/n of its span and repeats it n times
// within that span — the audible difference from Stutter is that ply is
// typically applied to already-sequenced single-hit events to create fast
// rolls (spec.md §4.1.3 ply(n)).
func Ply[T any](n int, p Pattern[T]) Pattern[T] {
	return Stutter(n, p)
}

// Chop slices each event's span into n equal pieces, all carrying the same
// value (the mini-notation-level sample-slicing semantics of spec.md
// §4.1.3 chop(n) are realized at the Sample-node level where the value
// string gains a `:i` suffix; this generic version provides the timing
// half of that contract).
func Chop[T any](n int, p Pattern[T]) Pattern[T] {
	if n <= 1 {
		return p
	}
	return New(func(s State) []Hap[T] {
		in := p.Query(s)
		var out []Hap[T]
		for _, h := range in {
			whole := h.WholeOrPart()
			width := frac.Div(whole.Width(), frac.FromInt(int64(n)))
			for i := 0; i < n; i++ {
				off := frac.Mul(width, frac.FromInt(int64(i)))
				sub := TimeSpan{Begin: frac.Add(whole.Begin, off), End: frac.Add(whole.Begin, frac.Add(off, width))}
				part, ok := sub.Intersect(s.Span)
				if !ok {
					continue
				}
				out = append(out, Hap[T]{Whole: sub, HasWhole: true, Part: part, Value: h.Value})
			}
		}
		return out
	})
}

// Scramble partitions each cycle into n equal slots and plays them back in
// an order permuted by a deterministic hash of the cycle number (spec.md
// §4.1.3 scramble(n)).
func Scramble[T any](n int, p Pattern[T]) Pattern[T] {
	if n <= 1 {
		return p
	}
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, span := range s.Span.SplitCycles() {
			cyc := span.Cycle()
			width := frac.New(1, int64(n))
			// Fisher-Yates shuffle of the slot indices seeded by the cycle
			perm := make([]int, n)
			for i := range perm {
				perm[i] = i
			}
			for i := n - 1; i > 0; i-- {
				j := int(hashAt(float64(cyc), int64(i)) * float64(i+1))
				perm[i], perm[j] = perm[j], perm[i]
			}
			for slot := 0; slot < n; slot++ {
				slotBegin := frac.Add(frac.FromInt(cyc), frac.Mul(width, frac.FromInt(int64(slot))))
				slotSpan := TimeSpan{Begin: slotBegin, End: frac.Add(slotBegin, width)}
				winPart, ok := slotSpan.Intersect(span)
				if !ok {
					continue
				}
				srcSlot := perm[slot]
				srcBegin := frac.Add(frac.FromInt(cyc), frac.Mul(width, frac.FromInt(int64(srcSlot))))
				srcSpan := TimeSpan{Begin: srcBegin, End: frac.Add(srcBegin, width)}
				shift := frac.Sub(slotSpan.Begin, srcSpan.Begin)
				for _, h := range p.Query(s.WithSpan(TimeSpan{Begin: frac.Sub(winPart.Begin, shift), End: frac.Sub(winPart.End, shift)})) {
					out = append(out, MapHapTime(h, func(f frac.Fraction) frac.Fraction { return frac.Add(f, shift) }))
				}
			}
		}
		return out
	})
}

// Zoom queries p over the absolute window [b,e) of every cycle and
// stretches that window back out to fill [0,1) (spec.md §4.1.3 zoom(b,e)).
func Zoom[T any](b, e frac.Fraction, p Pattern[T]) Pattern[T] {
	width := frac.Sub(e, b)
	if width.Num == 0 {
		return Silence[T]()
	}
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, span := range s.Span.SplitCycles() {
			cyc := frac.FromInt(span.Cycle())
			toSrc := func(f frac.Fraction) frac.Fraction {
				return frac.Add(cyc, frac.Add(frac.Mul(frac.Sub(f, cyc), width), b))
			}
			toDst := func(f frac.Fraction) frac.Fraction {
				return frac.Add(cyc, frac.Div(frac.Sub(frac.Sub(f, cyc), b), width))
			}
			for _, h := range p.Query(s.WithSpan(span.WithTime(toSrc))) {
				out = append(out, MapHapTime(h, toDst))
			}
		}
		return out
	})
}

// Compress is the inverse of Zoom: it places cycle k of p into the
// sub-window [k+b, k+e) of cycle k (spec.md §4.1.3 compress(b,e)).
func Compress[T any](b, e frac.Fraction, p Pattern[T]) Pattern[T] {
	width := frac.Sub(e, b)
	if width.Num <= 0 {
		return Silence[T]()
	}
	if frac.Eq(b, frac.FromInt(0)) && frac.Eq(e, frac.FromInt(1)) {
		return p
	}
	toSrc := func(f frac.Fraction) frac.Fraction { return frac.Div(frac.Sub(f, b), width) }
	toDst := func(f frac.Fraction) frac.Fraction { return frac.Add(frac.Mul(f, width), b) }
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, span := range s.Span.SplitCycles() {
			cyc := frac.FromInt(span.Cycle())
			winBegin, winEnd := frac.Add(cyc, b), frac.Add(cyc, e)
			win := TimeSpan{Begin: winBegin, End: winEnd}
			visible, ok := win.Intersect(span)
			if !ok {
				continue
			}
			localToSrc := func(f frac.Fraction) frac.Fraction { return frac.Add(cyc, toSrc(frac.Sub(f, cyc))) }
			localToDst := func(f frac.Fraction) frac.Fraction { return frac.Add(toDst(frac.Sub(f, cyc)), cyc) }
			qSpan := visible.WithTime(localToSrc)
			for _, h := range p.Query(s.WithSpan(qSpan)) {
				out = append(out, MapHapTime(h, localToDst))
			}
		}
		return out
	})
}

// Inside applies f to p after zooming into [b,e) per cycle, then zooms
// back out — i.e. f only "sees" and affects the sub-window (spec.md
// §4.1.3 inside(b,e,f)).
func Inside[T any](b, e frac.Fraction, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return Compress(b, e, f(Zoom(b, e, p)))
}

// Outside applies f to everything outside [b,e) within the cycle, passing
// the inside window through unchanged (spec.md §4.1.3 outside(b,e,f)).
func Outside[T any](b, e frac.Fraction, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	one := frac.FromInt(1)
	before := Compress(frac.FromInt(0), b, f(Zoom(frac.FromInt(0), b, p)))
	after := Compress(e, one, f(Zoom(e, one, p)))
	inside := Compress(b, e, Zoom(b, e, p))
	return Stack(before, inside, after)
}

// Late shifts every event of p later in time by x cycles (spec.md §4.1.3
// late(x)).
func Late[T any](x frac.Fraction, p Pattern[T]) Pattern[T] {
	return WithResultTime(
		WithQuerySpan(p, func(sp TimeSpan) TimeSpan { return sp.WithTime(func(f frac.Fraction) frac.Fraction { return frac.Sub(f, x) }) }),
		func(f frac.Fraction) frac.Fraction { return frac.Add(f, x) },
	)
}

// Early shifts every event of p earlier in time by x cycles (spec.md
// §4.1.3 early(x)).
func Early[T any](x frac.Fraction, p Pattern[T]) Pattern[T] {
	return Late(frac.Neg(x), p)
}

// Superimpose stacks p with f(p) (spec.md §4.1.3 superimpose(f)).
func Superimpose[T any](f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	return Stack(p, f(p))
}

// Palindrome (a.k.a. Mirror) alternates p forward then reversed, one per
// cycle: cat([p, rev(p)]) (spec.md §4.1.3 palindrome/mirror; §8.1 law 8).
func Palindrome[T any](p Pattern[T]) Pattern[T] {
	return Cat(p, Rev(p))
}

// Mirror is an alias for Palindrome, matching the DSL surface's naming of
// both spellings (spec.md §6.1).
func Mirror[T any](p Pattern[T]) Pattern[T] { return Palindrome(p) }

// Linger stretches the first x cycles' worth of p (x may be fractional, or
// negative to linger on the tail) so that it fills the whole queried range
// (spec.md §4.1.3 linger(x)).
func Linger[T any](x frac.Fraction, p Pattern[T]) Pattern[T] {
	if x.Num == 0 {
		return p
	}
	if frac.Lt(x, frac.FromInt(0)) {
		one := frac.FromInt(1)
		return Fast(frac.Div(one, frac.Neg(x)), Zoom(frac.Add(one, x), one, p))
	}
	return Fast(frac.Div(frac.FromInt(1), x), Zoom(frac.FromInt(0), x, p))
}

// Segment re-samples a continuous pattern n times per cycle, producing n
// discrete events per cycle each carrying the source's instantaneous value
// (spec.md §4.1.3 segment(n)).
func Segment[T any](n frac.Fraction, p Pattern[T]) Pattern[T] {
	grid := Fast(n, Pure(struct{}{}))
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, slot := range grid.Query(s) {
			whole := slot.WholeOrPart()
			mid := frac.Div(frac.Add(whole.Begin, whole.End), frac.FromInt(2))
			vals := p.Query(s.WithSpan(TimeSpan{Begin: mid, End: mid}))
			if len(vals) == 0 {
				continue
			}
			out = append(out, Hap[T]{Whole: whole, HasWhole: true, Part: slot.Part, Value: vals[0].Value})
		}
		return out
	})
}

// Mask keeps only events of p whose part overlaps a `true` event of
// boolPat; a first-order stand-in for the higher-order `mask` transform
// noted as an Open Question in spec.md §9.
func Mask[T any](p Pattern[T], boolPat Pattern[bool]) Pattern[T] {
	return New(func(s State) []Hap[T] {
		gates := boolPat.Query(s)
		var out []Hap[T]
		for _, h := range p.Query(s) {
			keep := false
			for _, g := range gates {
				if !g.Value {
					continue
				}
				if _, ok := h.Part.Intersect(g.Part); ok {
					keep = true
					break
				}
			}
			if keep {
				out = append(out, h)
			}
		}
		return out
	})
}

// Spin stacks n copies of p, the i-th rotated early by i/n cycles — a
// first-order stand-in for the higher-order `spin` transform of spec.md
// §4.1.3/§9.
func Spin[T any](n int, p Pattern[T]) Pattern[T] {
	if n <= 1 {
		return p
	}
	copies := make([]Pattern[T], n)
	for i := 0; i < n; i++ {
		copies[i] = Early(frac.New(int64(i), int64(n)), p)
	}
	return Stack(copies...)
}

// Euclid produces a Bjorklund/Euclidean rhythm of `pulses` onsets evenly
// distributed over `steps` slots, rotated by `rotation` (spec.md §4.1.3
// euclid(pulses,steps,rotation)). Each onset slot carries `true`, each
// rest slot is absent from the output entirely (queryable as a bool
// pattern suitable for Mask, or reinterpreted by the mini-notation
// compiler as string-valued Euclidean rhythms).
func Euclid(pulses, steps, rotation int) Pattern[bool] {
	mask := bjorklund(pulses, steps)
	if steps > 0 {
		rotation = ((rotation % steps) + steps) % steps
		mask = append(mask[rotation:], mask[:rotation]...)
	}
	return New(func(s State) []Hap[bool] {
		var out []Hap[bool]
		for _, span := range s.Span.SplitCycles() {
			cyc := frac.FromInt(span.Cycle())
			width := frac.New(1, int64(steps))
			for i, on := range mask {
				if !on {
					continue
				}
				begin := frac.Add(cyc, frac.Mul(width, frac.FromInt(int64(i))))
				whole := TimeSpan{Begin: begin, End: frac.Add(begin, width)}
				part, ok := whole.Intersect(span)
				if !ok {
					continue
				}
				out = append(out, Hap[bool]{Whole: whole, HasWhole: true, Part: part, Value: true})
			}
		}
		return out
	})
}

// EuclidOf applies a Euclidean rhythm directly to a value-carrying
// pattern: every onset slot produced by Euclid(pulses,steps,rotation)
// becomes an event whose value is p sampled at that slot (mini-notation
// `a(p,k,r)`, spec.md §4.1.4).
func EuclidOf[T any](pulses, steps, rotation int, p Pattern[T]) Pattern[T] {
	mask := Euclid(pulses, steps, rotation)
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, g := range mask.Query(s) {
			vals := p.Query(s.WithSpan(g.Whole))
			if len(vals) == 0 {
				continue
			}
			out = append(out, Hap[T]{Whole: g.Whole, HasWhole: true, Part: g.Part, Value: vals[0].Value})
		}
		return out
	})
}

// bjorklund implements the Bjorklund algorithm producing a boolean mask of
// length steps with pulses onsets as evenly spaced as possible.
func bjorklund(pulses, steps int) []bool {
	if steps <= 0 {
		return nil
	}
	if pulses <= 0 {
		return make([]bool, steps)
	}
	if pulses >= steps {
		out := make([]bool, steps)
		for i := range out {
			out[i] = true
		}
		return out
	}

	groupsA := make([][]bool, pulses)
	for i := range groupsA {
		groupsA[i] = []bool{true}
	}
	groupsB := make([][]bool, steps-pulses)
	for i := range groupsB {
		groupsB[i] = []bool{false}
	}

	for len(groupsB) > 1 {
		n := len(groupsA)
		if len(groupsB) < n {
			n = len(groupsB)
		}
		var newA [][]bool
		for i := 0; i < n; i++ {
			newA = append(newA, append(append([]bool{}, groupsA[i]...), groupsB[i]...))
		}
		var newB [][]bool
		if len(groupsA) > n {
			newB = groupsA[n:]
		} else {
			newB = groupsB[n:]
		}
		groupsA, groupsB = newA, newB
		if len(groupsA) <= 1 {
			break
		}
	}

	var out []bool
	for _, g := range groupsA {
		out = append(out, g...)
	}
	for _, g := range groupsB {
		out = append(out, g...)
	}
	return out
}

// Choice picks one of ps per cycle, deterministically chosen by a hash of
// the cycle number (mini-notation `a|b`, spec.md §4.1.4).
func Choice[T any](ps ...Pattern[T]) Pattern[T] {
	n := len(ps)
	if n == 0 {
		return Silence[T]()
	}
	return New(func(s State) []Hap[T] {
		var out []Hap[T]
		for _, span := range s.Span.SplitCycles() {
			cyc := span.Cycle()
			idx := int(hashAt(float64(cyc), 777) * float64(n))
			if idx >= n {
				idx = n - 1
			}
			out = append(out, ps[idx].Query(s.WithSpan(span))...)
		}
		return out
	})
}

// --- Numeric pattern arithmetic (spec.md §4.1.3 "Number patterns
// additionally support arithmetic") ---

// Combine pointwise-combines two patterns over their intersecting parts,
// using op to merge values. The resulting event's structure is taken from
// whichever input event intersects (both contribute a Hap for every
// overlapping pair), matching Tidal's pointwise-application semantics for
// plain arithmetic (distinct from the `#`-operator's structure-dominance
// rule used by the Sample dispatcher, spec.md §4.3).
func Combine[A, B, C any](a Pattern[A], b Pattern[B], op func(A, B) C) Pattern[C] {
	return New(func(s State) []Hap[C] {
		as := a.Query(s)
		bs := b.Query(s)
		var out []Hap[C]
		for _, ha := range as {
			for _, hb := range bs {
				part, ok := ha.Part.Intersect(hb.Part)
				if !ok {
					continue
				}
				whole := ha.Whole
				hasWhole := ha.HasWhole
				if hasWhole && hb.HasWhole {
					if w, ok := ha.Whole.Intersect(hb.Whole); ok {
						whole = w
					}
				}
				out = append(out, Hap[C]{Whole: whole, HasWhole: hasWhole && hb.HasWhole, Part: part, Value: op(ha.Value, hb.Value)})
			}
		}
		return out
	})
}

// AddF adds two float64 patterns pointwise.
func AddF(a, b Pattern[float64]) Pattern[float64] {
	return Combine(a, b, func(x, y float64) float64 { return x + y })
}

// SubF subtracts two float64 patterns pointwise.
func SubF(a, b Pattern[float64]) Pattern[float64] {
	return Combine(a, b, func(x, y float64) float64 { return x - y })
}

// MulF multiplies two float64 patterns pointwise.
func MulF(a, b Pattern[float64]) Pattern[float64] {
	return Combine(a, b, func(x, y float64) float64 { return x * y })
}

// DivF divides two float64 patterns pointwise.
func DivF(a, b Pattern[float64]) Pattern[float64] {
	return Combine(a, b, func(x, y float64) float64 {
		if y == 0 {
			return 0
		}
		return x / y
	})
}

// ScaleF multiplies every event's value by a plain scalar.
func ScaleF(p Pattern[float64], scalar float64) Pattern[float64] {
	return Map(p, func(v float64) float64 { return v * scalar })
}

// SortHaps orders haps by onset then part-begin, the canonical ordering
// used when rendering a cycle's worth of query results for display or
// dispatch (spec.md §5 "samples are produced in strictly increasing time
// order" applies at the audio-thread level; this helper gives pattern
// consumers the matching event-level ordering).
func SortHaps[T any](haps []Hap[T]) []Hap[T] {
	out := append([]Hap[T]{}, haps...)
	sort.SliceStable(out, func(i, j int) bool {
		return frac.Lt(out[i].Part.Begin, out[j].Part.Begin)
	})
	return out
}
