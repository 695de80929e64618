package graph

import "github.com/phonon-lang/phonon/patt"

// processNode is the single dispatch point every node's per-sample
// output is computed through: a flat switch over NodeKind rather than
// an interface method call, so the compiler can keep this monomorphic
// and branch-predictable (spec.md §9's design note against run-time
// polymorphism here).
func (g *Graph) processNode(id NodeId) float32 {
	n := &g.nodes[id]
	switch n.Kind {
	case KindConstant:
		return g.resolveSignal(n.Input, g.curTick)
	case KindOscillator:
		return g.processOscillator(n)
	case KindLowPass, KindHighPass, KindBandPass, KindNotch:
		return g.processBiquad(n)
	case KindMoogLadder:
		return g.processMoogLadder(n)
	case KindEnvelope:
		return g.processEnvelope(n)
	case KindSample:
		return g.processSample(n)
	case KindAdd, KindSub, KindMul, KindDiv:
		return g.processArith(n)
	case KindDelay:
		return g.processDelay(n)
	case KindReverb:
		return g.processReverb(n)
	case KindPlate:
		return g.processPlate(n)
	case KindChorus:
		return g.processChorus(n)
	case KindFlanger:
		return g.processFlanger(n)
	case KindPhaser:
		return g.processPhaser(n)
	case KindTremolo:
		return g.processTremolo(n)
	case KindVibrato:
		return g.processVibrato(n)
	case KindCompressor, KindLimiter:
		return g.processCompressor(n)
	case KindBitCrush:
		return g.processBitCrush(n)
	case KindDistortion:
		return g.processDistortion(n)
	case KindRingMod:
		return g.processRingMod(n)
	case KindVocoder:
		return g.processVocoder(n)
	case KindPluck:
		return g.processPluck(n)
	case KindGranular:
		return g.processGranular(n)
	case KindAdditive:
		return g.processAdditive(n)
	case KindPatternNode:
		return g.processPatternNode(n)
	case KindMidiInput:
		return g.processMidiInput(n)
	case KindWhen:
		return g.processWhen(n)
	case KindSampleAndHold:
		return g.processSampleAndHold(n)
	case KindSchmidt:
		return g.processSchmidt(n)
	case KindRMS:
		return g.processRMS(n)
	case KindPeakFollower:
		return g.processPeakFollower(n)
	case KindAmpFollower:
		return g.processAmpFollower(n)
	case KindTimer:
		return g.processTimer(n)
	case KindLatch:
		return g.processLatch(n)
	case KindClamp:
		return g.processClamp(n)
	case KindScale:
		return g.processScale(n)
	case KindNote:
		return g.processNote(n)
	case KindMax:
		return g.processMax(n)
	case KindLessThan:
		return g.processLessThan(n)
	case KindSqrt:
		return g.processSqrt(n)
	case KindSin:
		return g.processSin(n)
	case KindTan:
		return g.processTan(n)
	default:
		return 0
	}
}

// NewConstant builds a pass-through node wrapping a bare Signal,
// useful when a bus needs a stable NodeId to refer to before its real
// producer is known (spec.md §4.2.3 "forward bus references").
func NewConstant(sig Signal) SignalNode {
	return SignalNode{Kind: KindConstant, Input: sig}
}

// NewPatternNode samples a Pattern[float32] directly onto a node's
// output, for numeric (non-sample) patterns used as control signals,
// e.g. `"0 2 4 7"` driving a filter cutoff (spec.md §4.2.2 "Pattern").
func NewPatternNode(p NumPattern) SignalNode {
	return SignalNode{Kind: KindPatternNode, NumPattern: p}
}

func (g *Graph) processPatternNode(n *SignalNode) float32 {
	f := cyclePosToFraction(g.CyclePosition())
	haps := n.NumPattern.QuerySpan(patt.TimeSpan{Begin: f, End: f})
	if len(haps) == 0 {
		return n.lastPatValue
	}
	n.lastPatValue = haps[len(haps)-1].Value
	return n.lastPatValue
}
