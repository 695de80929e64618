// Package graph implements the unified signal graph (spec.md §3, §4.2): a
// block-rate DAG where every node produces a sample stream and every
// parameter of every node can be driven by a scalar, another node, or a
// sampled pattern, at audio rate.
package graph

import (
	"github.com/phonon-lang/phonon/frac"
	"github.com/phonon-lang/phonon/patt"
)

func cyclePosToFraction(at float64) frac.Fraction { return frac.FromFloat(at) }

// NumPattern is a numeric (non-sample) pattern used to drive a control
// signal at audio rate, e.g. a filter cutoff modulated by "0 2 4 7".
type NumPattern = patt.Pattern[float32]

// NodeId is a value-type index into a Graph's node arena. Copies are
// cheap; ownership of the underlying SignalNode belongs solely to the
// Graph (spec.md §3 "NodeId").
type NodeId uint32

// invalidNode marks a Signal or field that has not been wired yet.
const invalidNode NodeId = ^NodeId(0)

// SignalKind discriminates the union carried by a Signal value (spec.md
// §3 "Signal").
type SignalKind uint8

const (
	SignalValue SignalKind = iota
	SignalNodeRef
	SignalPattern
	SignalBus
)

// Signal is a node input: a constant, a reference to another node, a
// sampled pattern, or (before finalisation) a late-bound bus name.
type Signal struct {
	Kind    SignalKind
	Value   float32
	Node    NodeId
	Pattern patt.Pattern[float32]
	Bus     string
}

// Const builds a constant Signal.
func Const(v float32) Signal { return Signal{Kind: SignalValue, Value: v} }

// FromNode builds a Signal referencing another node's output.
func FromNode(id NodeId) Signal { return Signal{Kind: SignalNodeRef, Node: id} }

// FromPattern builds a Signal sampled from a Pattern[float32] at the
// current cycle position.
func FromPattern(p patt.Pattern[float32]) Signal { return Signal{Kind: SignalPattern, Pattern: p} }

// FromBus builds a late-bound Signal resolved during graph finalisation
// (spec.md §4.2.3).
func FromBus(name string) Signal { return Signal{Kind: SignalBus, Bus: name} }

// resolve reads a Signal's instantaneous value given an evaluation
// context. Node references recurse into the graph; pattern references
// sample the pattern at the current cycle position.
func (g *Graph) resolveSignal(sig Signal, tick uint64) float32 {
	switch sig.Kind {
	case SignalValue:
		return sig.Value
	case SignalNodeRef:
		return g.evalNode(sig.Node, tick)
	case SignalPattern:
		return g.samplePatternAt(sig.Pattern, g.CyclePosition())
	case SignalBus:
		// Should have been resolved away by Finalize; treat as silence
		// rather than panicking on the audio thread (spec.md §7 "the audio
		// thread never surfaces errors").
		return 0
	default:
		return 0
	}
}

// resolveSignalAt is resolveSignal's counterpart for modifiers that must
// be sampled at a specific cycle instant rather than the graph's live
// transport position — used by the Sample node dispatcher to read each
// `#`-chained modifier at the onset time of the event driving it (spec.md
// §4.3 "each modifier Signal is sampled at the event time").
func (g *Graph) resolveSignalAt(sig Signal, at float64, tick uint64) float32 {
	switch sig.Kind {
	case SignalValue:
		return sig.Value
	case SignalNodeRef:
		return g.evalNode(sig.Node, tick)
	case SignalPattern:
		return g.samplePatternAt(sig.Pattern, at)
	case SignalBus:
		return 0
	default:
		return 0
	}
}

// samplePatternAt queries p at a single instant (a zero-width span at
// cycle position `at`) and returns the value of the last event in the
// query result, or 0 if the pattern has no event at that instant. The
// Pattern node (processPatternNode) additionally holds its last sampled
// value where the pattern has no event; this helper only performs the
// query.
func (g *Graph) samplePatternAt(p patt.Pattern[float32], at float64) float32 {
	f := cyclePosToFraction(at)
	span := patt.TimeSpan{Begin: f, End: f}
	haps := p.QuerySpan(span)
	if len(haps) == 0 {
		return 0
	}
	return haps[len(haps)-1].Value
}
