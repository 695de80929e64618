package graph

import "math"

// NewLowPass, NewHighPass, NewBandPass and NewNotch build RBJ Audio
// Cookbook biquad filters (spec.md §4.2.2 "Biquad filters"): direct
// form II transposed, coefficients recomputed every sample since Cutoff
// and Q are themselves Signals and may move at audio rate.
func NewLowPass(input, cutoff, q Signal) SignalNode {
	return SignalNode{Kind: KindLowPass, Input: input, Cutoff: cutoff, Q: q}
}

func NewHighPass(input, cutoff, q Signal) SignalNode {
	return SignalNode{Kind: KindHighPass, Input: input, Cutoff: cutoff, Q: q}
}

func NewBandPass(input, cutoff, q Signal) SignalNode {
	return SignalNode{Kind: KindBandPass, Input: input, Cutoff: cutoff, Q: q}
}

func NewNotch(input, cutoff, q Signal) SignalNode {
	return SignalNode{Kind: KindNotch, Input: input, Cutoff: cutoff, Q: q}
}

// NewMoogLadder builds a 4-pole Moog-style ladder filter (spec.md
// §4.2.2 "Moog ladder"), a nonlinear topology distinct from the RBJ
// biquads above.
func NewMoogLadder(input, cutoff, q Signal) SignalNode {
	return SignalNode{Kind: KindMoogLadder, Input: input, Cutoff: cutoff, Q: q}
}

// biquadCoeffs computes the RBJ cookbook coefficients for one of the
// four biquad kinds at the current cutoff/Q.
func biquadCoeffs(kind NodeKind, cutoff, q, sampleRate float64) (b0, b1, b2, a1, a2 float64) {
	if cutoff <= 0 {
		cutoff = 1
	}
	if cutoff > sampleRate/2-1 {
		cutoff = sampleRate/2 - 1
	}
	if q <= 0 {
		q = 0.01
	}
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw0, sinw0 := math.Cos(w0), math.Sin(w0)
	alpha := sinw0 / (2 * q)

	var a0, rb0, rb1, rb2, ra1, ra2 float64
	switch kind {
	case KindLowPass:
		rb0 = (1 - cosw0) / 2
		rb1 = 1 - cosw0
		rb2 = (1 - cosw0) / 2
		a0 = 1 + alpha
		ra1 = -2 * cosw0
		ra2 = 1 - alpha
	case KindHighPass:
		rb0 = (1 + cosw0) / 2
		rb1 = -(1 + cosw0)
		rb2 = (1 + cosw0) / 2
		a0 = 1 + alpha
		ra1 = -2 * cosw0
		ra2 = 1 - alpha
	case KindBandPass:
		rb0 = alpha
		rb1 = 0
		rb2 = -alpha
		a0 = 1 + alpha
		ra1 = -2 * cosw0
		ra2 = 1 - alpha
	case KindNotch:
		rb0 = 1
		rb1 = -2 * cosw0
		rb2 = 1
		a0 = 1 + alpha
		ra1 = -2 * cosw0
		ra2 = 1 - alpha
	}
	return rb0 / a0, rb1 / a0, rb2 / a0, ra1 / a0, ra2 / a0
}

func (g *Graph) processBiquad(n *SignalNode) float32 {
	x := float64(g.resolveSignal(n.Input, g.curTick))
	cutoff := float64(g.resolveSignal(n.Cutoff, g.curTick))
	q := float64(g.resolveSignal(n.Q, g.curTick))
	b0, b1, b2, a1, a2 := biquadCoeffs(n.Kind, cutoff, q, g.SampleRate)

	y := b0*x + n.biquad.z1
	n.biquad.z1 = b1*x - a1*y + n.biquad.z2
	n.biquad.z2 = b2*x - a2*y
	return float32(y)
}

// processMoogLadder implements the classic Huovilainen-free, simplified
// 4-pole ladder with a tanh-saturating feedback path (spec.md §4.2.2
// "nonlinear self-resonance").
func (g *Graph) processMoogLadder(n *SignalNode) float32 {
	x := float64(g.resolveSignal(n.Input, g.curTick))
	cutoff := float64(g.resolveSignal(n.Cutoff, g.curTick))
	resonance := float64(g.resolveSignal(n.Q, g.curTick))
	if cutoff <= 0 {
		cutoff = 1
	}

	fc := cutoff / (g.SampleRate / 2)
	if fc > 0.99 {
		fc = 0.99
	}
	f := fc * 1.16
	fb := resonance * (1 - 0.15*f*f)

	input := x - fb*n.ladderZ[3]
	n.ladderZ[0] += f * (math.Tanh(input) - math.Tanh(n.ladderZ[0]))
	n.ladderZ[1] += f * (math.Tanh(n.ladderZ[0]) - math.Tanh(n.ladderZ[1]))
	n.ladderZ[2] += f * (math.Tanh(n.ladderZ[1]) - math.Tanh(n.ladderZ[2]))
	n.ladderZ[3] += f * (math.Tanh(n.ladderZ[2]) - math.Tanh(n.ladderZ[3]))
	return float32(n.ladderZ[3])
}
