package graph

import "math"

// NewAdd, NewSub, NewMul and NewDiv build the arithmetic nodes (spec.md
// §4.2.2 "arithmetic"), letting DSL expressions like `freq * 2` compile
// to ordinary graph nodes rather than a special-cased AST evaluator.
func NewAdd(a, b Signal) SignalNode { return SignalNode{Kind: KindAdd, A: a, B: b} }
func NewSub(a, b Signal) SignalNode { return SignalNode{Kind: KindSub, A: a, B: b} }
func NewMul(a, b Signal) SignalNode { return SignalNode{Kind: KindMul, A: a, B: b} }
func NewDiv(a, b Signal) SignalNode { return SignalNode{Kind: KindDiv, A: a, B: b} }

func (g *Graph) processArith(n *SignalNode) float32 {
	a := g.resolveSignal(n.A, g.curTick)
	b := g.resolveSignal(n.B, g.curTick)
	switch n.Kind {
	case KindAdd:
		return a + b
	case KindSub:
		return a - b
	case KindMul:
		return a * b
	case KindDiv:
		if b == 0 {
			return 0
		}
		return a / b
	default:
		return 0
	}
}

// NewClamp bounds Input between A (low) and B (high).
func NewClamp(input, lo, hi Signal) SignalNode {
	return SignalNode{Kind: KindClamp, Input: input, A: lo, B: hi}
}

func (g *Graph) processClamp(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	lo := g.resolveSignal(n.A, g.curTick)
	hi := g.resolveSignal(n.B, g.curTick)
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// NewSampleAndHold samples Input each time Trigger rises and holds the
// value until the next rising edge (spec.md §4.2.2 "SampleAndHold").
func NewSampleAndHold(input, trigger Signal) SignalNode {
	return SignalNode{Kind: KindSampleAndHold, Input: input, Trigger: trigger}
}

func (g *Graph) processSampleAndHold(n *SignalNode) float32 {
	trig := float64(g.resolveSignal(n.Trigger, g.curTick))
	if trig > 0 && n.sahLastTrig <= 0 {
		n.sahHeld = g.resolveSignal(n.Input, g.curTick)
	}
	n.sahLastTrig = trig
	return n.sahHeld
}

// NewLatch samples Input while GateIn is high and holds the last value
// once it drops, distinct from SampleAndHold's edge-triggered single
// sample (spec.md §4.2.2 "Latch").
func NewLatch(input, gate Signal) SignalNode {
	return SignalNode{Kind: KindLatch, Input: input, GateIn: gate}
}

func (g *Graph) processLatch(n *SignalNode) float32 {
	gate := g.resolveSignal(n.GateIn, g.curTick)
	if gate > 0 {
		n.latchHeld = g.resolveSignal(n.Input, g.curTick)
	}
	return n.latchHeld
}

// NewSchmidt builds a Schmidt trigger: outputs 1 once Input rises above
// HiThresh, 0 once it falls below LoThresh, holding state in between
// (spec.md §4.2.2 "Schmidt").
func NewSchmidt(input, hiThresh, loThresh Signal) SignalNode {
	return SignalNode{Kind: KindSchmidt, Input: input, HiThresh: hiThresh, LoThresh: loThresh}
}

func (g *Graph) processSchmidt(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	hi := g.resolveSignal(n.HiThresh, g.curTick)
	lo := g.resolveSignal(n.LoThresh, g.curTick)
	if !n.schmidtState && x >= hi {
		n.schmidtState = true
	} else if n.schmidtState && x <= lo {
		n.schmidtState = false
	}
	if n.schmidtState {
		return 1
	}
	return 0
}

// NewWhen selects between Then and Else based on whether Condition is
// positive (spec.md §4.2.2 "When").
func NewWhen(condition, then, els Signal) SignalNode {
	return SignalNode{Kind: KindWhen, Condition: condition, Then: then, Else: els}
}

func (g *Graph) processWhen(n *SignalNode) float32 {
	if g.resolveSignal(n.Condition, g.curTick) > 0 {
		return g.resolveSignal(n.Then, g.curTick)
	}
	return g.resolveSignal(n.Else, g.curTick)
}

// NewTimer outputs the number of seconds elapsed since Trigger last
// rose (spec.md §4.2.2 "Timer").
func NewTimer(trigger Signal) SignalNode {
	return SignalNode{Kind: KindTimer, Trigger: trigger}
}

func (g *Graph) processTimer(n *SignalNode) float32 {
	trig := float64(g.resolveSignal(n.Trigger, g.curTick))
	if trig > 0 && n.timerLast <= 0 {
		n.timerElapsed = 0
	}
	n.timerLast = trig
	out := n.timerElapsed
	n.timerElapsed += 1 / g.SampleRate
	return float32(out)
}

// NewRMS tracks Input's root-mean-square level over a Window-second
// sliding average (spec.md §4.2.2 "RMS").
func NewRMS(input, window Signal) SignalNode {
	return SignalNode{Kind: KindRMS, Input: input, Window: window}
}

func (g *Graph) processRMS(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	window := math.Max(float64(g.resolveSignal(n.Window, g.curTick)), 1e-3)
	coeff := 1 - math.Exp(-1/(window*g.SampleRate))
	sq := float64(x) * float64(x)
	n.followState += (sq - n.followState) * coeff
	return float32(math.Sqrt(math.Max(n.followState, 0)))
}

// NewPeakFollower tracks Input's absolute peak, decaying exponentially
// (spec.md §4.2.2 "PeakFollower").
func NewPeakFollower(input, window Signal) SignalNode {
	return SignalNode{Kind: KindPeakFollower, Input: input, Window: window}
}

func (g *Graph) processPeakFollower(n *SignalNode) float32 {
	x := math.Abs(float64(g.resolveSignal(n.Input, g.curTick)))
	window := math.Max(float64(g.resolveSignal(n.Window, g.curTick)), 1e-3)
	decay := math.Exp(-1 / (window * g.SampleRate))
	if x > n.followState {
		n.followState = x
	} else {
		n.followState *= decay
	}
	return float32(n.followState)
}

// NewAmpFollower is an asymmetric attack/release envelope follower
// (spec.md §4.2.2 "AmpFollower"), the general case PeakFollower's pure
// decay is a special case of.
func NewAmpFollower(input, attack, release Signal) SignalNode {
	return SignalNode{Kind: KindAmpFollower, Input: input, Attack: attack, Release: release}
}

func (g *Graph) processAmpFollower(n *SignalNode) float32 {
	x := math.Abs(float64(g.resolveSignal(n.Input, g.curTick)))
	attack := math.Max(float64(g.resolveSignal(n.Attack, g.curTick)), 1e-4)
	release := math.Max(float64(g.resolveSignal(n.Release, g.curTick)), 1e-4)

	var coeff float64
	if x > n.followState {
		coeff = 1 - math.Exp(-1/(attack*g.SampleRate))
	} else {
		coeff = 1 - math.Exp(-1/(release*g.SampleRate))
	}
	n.followState += (x - n.followState) * coeff
	return float32(n.followState)
}

// scaleSemitones maps scale degree offsets onto semitone offsets for a
// handful of common scales (spec.md §4.1.3 "scale quantization");
// degrees beyond one octave wrap with an octave shift, matching the
// mod-then-divide shape schollz-221e's modulation.go uses for its own
// scale quantizer.
var scaleSemitones = map[string][]int{
	"major":       {0, 2, 4, 5, 7, 9, 11},
	"minor":       {0, 2, 3, 5, 7, 8, 10},
	"dorian":      {0, 2, 3, 5, 7, 9, 10},
	"phrygian":    {0, 1, 3, 5, 7, 8, 10},
	"lydian":      {0, 2, 4, 6, 7, 9, 11},
	"mixolydian":  {0, 2, 4, 5, 7, 9, 10},
	"locrian":     {0, 1, 3, 5, 6, 8, 10},
	"majPentatonic": {0, 2, 4, 7, 9},
	"minPentatonic": {0, 3, 5, 7, 10},
	"chromatic":   {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

// NewScale quantizes Input (a scale degree) onto ScaleName relative to
// Root, returning a semitone offset (spec.md §4.1.3 "scale").
func NewScale(input, root Signal, scaleName string) SignalNode {
	return SignalNode{Kind: KindScale, Input: input, Root: root, ScaleName: scaleName}
}

func (g *Graph) processScale(n *SignalNode) float32 {
	degree := int(math.Round(float64(g.resolveSignal(n.Input, g.curTick))))
	root := g.resolveSignal(n.Root, g.curTick)

	steps, ok := scaleSemitones[n.ScaleName]
	if !ok || len(steps) == 0 {
		steps = scaleSemitones["major"]
	}
	octave := degree / len(steps)
	idx := degree % len(steps)
	if idx < 0 {
		idx += len(steps)
		octave--
	}
	return root + float32(steps[idx]+octave*12)
}

// NewNote converts a semitone offset relative to A4 (MIDI 69) to a
// frequency in Hz (spec.md §4.1.3 "note -> Hz").
func NewNote(input Signal) SignalNode {
	return SignalNode{Kind: KindNote, Input: input}
}

func (g *Graph) processNote(n *SignalNode) float32 {
	semitone := g.resolveSignal(n.Input, g.curTick)
	return float32(440 * math.Pow(2, float64(semitone)/12))
}

func (g *Graph) processMax(n *SignalNode) float32 {
	a, b := g.resolveSignal(n.A, g.curTick), g.resolveSignal(n.B, g.curTick)
	if a > b {
		return a
	}
	return b
}

func (g *Graph) processLessThan(n *SignalNode) float32 {
	if g.resolveSignal(n.A, g.curTick) < g.resolveSignal(n.B, g.curTick) {
		return 1
	}
	return 0
}

func (g *Graph) processSqrt(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	if x < 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}

func (g *Graph) processSin(n *SignalNode) float32 {
	return float32(math.Sin(float64(g.resolveSignal(n.Input, g.curTick))))
}

func (g *Graph) processTan(n *SignalNode) float32 {
	return float32(math.Tan(float64(g.resolveSignal(n.Input, g.curTick))))
}
