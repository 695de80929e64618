package graph

import "math"

// NewOscillator builds an Oscillator node (spec.md §4.2.2 "Oscillator"):
// sine/saw/square/triangle plus noise family and impulse/pulse, with
// Freq driven by any Signal.
func NewOscillator(wave Waveform, freq Signal) SignalNode {
	return SignalNode{Kind: KindOscillator, Waveform: wave, Freq: freq, Q: Const(0.5), rngState: 0x9e3779b97f4a7c15}
}

// NewPulse builds a pulse-wave Oscillator with an explicit duty cycle
// width (0..1), separate from the plain WavePulse default of 0.5.
func NewPulse(freq, width Signal) SignalNode {
	return SignalNode{Kind: KindOscillator, Waveform: WavePulse, Freq: freq, pulseW: width}
}

func (g *Graph) processOscillator(n *SignalNode) float32 {
	freq := float64(g.resolveSignal(n.Freq, g.curTick))
	step := freq / g.SampleRate

	var out float64
	switch n.Waveform {
	case WaveSine:
		out = math.Sin(2 * math.Pi * n.phase)
	case WaveSaw:
		out = 2*n.phase - 1
	case WaveSquare:
		if n.phase < 0.5 {
			out = 1
		} else {
			out = -1
		}
	case WaveTriangle:
		out = 4*math.Abs(n.phase-0.5) - 1
	case WavePulse:
		width := float64(g.resolveSignal(n.pulseW, g.curTick))
		if width <= 0 {
			width = 0.5
		}
		if n.phase < width {
			out = 1
		} else {
			out = -1
		}
	case WaveImpulse:
		if n.phase+step >= 1 {
			out = 1
		} else {
			out = 0
		}
	case WaveNoise:
		out = 2*xorshiftFloat(&n.rngState) - 1
	case WavePink:
		out = pinkSample(&n.rngState)
	case WaveBrown:
		out = brownSample(&n.rngState, &n.phaseAccum)
	default:
		out = math.Sin(2 * math.Pi * n.phase)
	}

	n.phase += step
	if n.phase >= 1 {
		n.phase -= math.Floor(n.phase)
	}
	return float32(out)
}

// xorshiftFloat advances a 64-bit xorshift generator and returns a value
// in [0,1). Deterministic given the same seed, avoiding a shared global
// PRNG (mirrors the no-global-state discipline patt/hash.go uses for
// pattern randomness).
func xorshiftFloat(state *uint64) float64 {
	x := *state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	*state = x
	return float64(x>>11) / (1 << 53)
}

// pinkSample returns white noise from the node's rngState scaled by 0.5;
// no 1/f (pink) filtering is applied.
func pinkSample(state *uint64) float64 {
	white := 2*xorshiftFloat(state) - 1
	return white * 0.5
}

func brownSample(state *uint64, accum *float64) float64 {
	white := 2*xorshiftFloat(state) - 1
	*accum += white * 0.02
	if *accum > 1 {
		*accum = 1
	}
	if *accum < -1 {
		*accum = -1
	}
	return *accum
}
