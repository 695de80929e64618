package graph

import "math"

// NewEnvelope builds an ADSR envelope node, retriggered whenever Trigger
// crosses from <=0 to >0 (spec.md §4.2.2 "Envelope"). Gate-following
// sustain (held until GateIn drops to <=0) applies whenever GateIn is
// anything other than the constant 0. NewEnvelope sets GateIn to the
// constant 0, so a bare Trigger-only envelope goes straight from Decay
// into Release.
func NewEnvelope(trigger, attack, decay, sustain, release Signal) SignalNode {
	return SignalNode{
		Kind: KindEnvelope, Trigger: trigger,
		Attack: attack, Decay2: decay, Sustain: sustain, Release: release,
		GateIn: Const(0),
	}
}

// NewGatedEnvelope is NewEnvelope but holding the sustain stage until
// gate drops, rather than timing out on its own (spec.md §4.2.2 "AR /
// gated ADSR").
func NewGatedEnvelope(gate, attack, decay, sustain, release Signal) SignalNode {
	return SignalNode{
		Kind: KindEnvelope, GateIn: gate,
		Attack: attack, Decay2: decay, Sustain: sustain, Release: release,
		Trigger: Const(0),
	}
}

// NewLine builds a one-shot ramp from StartLevel to EndLevel over
// Duration seconds, linear or exponential per Shape (spec.md §4.2.2
// "line / xline / curve").
func NewLine(start, end, duration Signal, shape EnvShape) SignalNode {
	return SignalNode{Kind: KindEnvelope, StartLevel: start, EndLevel: end, Duration: duration, Shape: shape, LineMode: true}
}

func (g *Graph) processEnvelope(n *SignalNode) float32 {
	if n.LineMode {
		return g.processLine(n)
	}
	trig := float64(g.resolveSignal(n.Trigger, g.curTick))
	gate := float64(g.resolveSignal(n.GateIn, g.curTick))
	dt := 1.0 / g.SampleRate

	retriggered := trig > 0 && n.env.lastTrig <= 0
	n.env.lastTrig = trig

	attack := math.Max(float64(g.resolveSignal(n.Attack, g.curTick)), 1e-6)
	decay := math.Max(float64(g.resolveSignal(n.Decay2, g.curTick)), 1e-6)
	sustain := float64(g.resolveSignal(n.Sustain, g.curTick))
	release := math.Max(float64(g.resolveSignal(n.Release, g.curTick)), 1e-6)

	usesGate := n.GateIn.Kind != SignalValue || n.GateIn.Value != 0

	if retriggered || (usesGate && gate > 0 && (n.env.stage == EnvIdle || n.env.stage == EnvRelease)) {
		n.env.stage = EnvAttack
		n.env.stageStart = n.env.level
		n.env.progress = 0
	}

	switch n.env.stage {
	case EnvIdle:
		n.env.level = 0
	case EnvAttack:
		n.env.progress += dt / attack
		if n.env.progress >= 1 {
			n.env.level = 1
			n.env.stage = EnvDecay
			n.env.stageStart = 1
			n.env.progress = 0
		} else {
			n.env.level = n.env.stageStart + (1-n.env.stageStart)*n.env.progress
		}
	case EnvDecay:
		n.env.progress += dt / decay
		if n.env.progress >= 1 {
			n.env.level = sustain
			n.env.progress = 0
			if usesGate {
				n.env.stage = EnvSustain
			} else {
				// No gate to hold sustain: an AD-style envelope releases
				// immediately once decay finishes.
				n.env.stage = EnvRelease
				n.env.stageStart = sustain
			}
		} else {
			n.env.level = n.env.stageStart + (sustain-n.env.stageStart)*n.env.progress
		}
	case EnvSustain:
		n.env.level = sustain
		if usesGate && gate <= 0 {
			n.env.stage = EnvRelease
			n.env.stageStart = n.env.level
			n.env.progress = 0
		}
	case EnvRelease:
		n.env.progress += dt / release
		if n.env.progress >= 1 {
			n.env.level = 0
			n.env.stage = EnvIdle
			n.env.progress = 0
		} else {
			n.env.level = n.env.stageStart * (1 - n.env.progress)
		}
	}

	return float32(n.env.level)
}

// processLine runs a one-shot ramp: linear or exponential interpolation
// from StartLevel to EndLevel over Duration seconds, holding EndLevel
// once elapsed (spec.md §4.2.2 "line / xline").
func (g *Graph) processLine(n *SignalNode) float32 {
	start := float64(g.resolveSignal(n.StartLevel, g.curTick))
	end := float64(g.resolveSignal(n.EndLevel, g.curTick))
	dur := math.Max(float64(g.resolveSignal(n.Duration, g.curTick)), 1e-9)

	t := math.Min(n.lineElapsed/dur, 1)
	n.lineElapsed += 1 / g.SampleRate

	if n.Shape == ShapeExponential {
		if start <= 0 {
			start = 1e-6
		}
		if end <= 0 {
			end = 1e-6
		}
		return float32(start * math.Pow(end/start, t))
	}
	return float32(start + (end-start)*t)
}
