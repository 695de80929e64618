package lang

import (
	"fmt"

	"github.com/phonon-lang/phonon/graph"
)

// arg returns args[i], or def if there aren't enough arguments — every
// DSL function has sensible defaults for trailing parameters, mirroring
// how the mini-notation parser defaults a missing euclid rotation to 0.
func arg(args []graph.Signal, i int, def graph.Signal) graph.Signal {
	if i < len(args) {
		return args[i]
	}
	return def
}

// buildNode maps a DSL function name onto the graph.SignalNode it
// constructs (spec.md §6.1's full oscillator/filter/effect/envelope/
// utility catalogue). Every case is a thin argument-reordering wrapper
// around a graph.NewXxx constructor; unknown names are a compile error
// (spec.md §7 "unknown function").
func (lw *Lowerer) buildNode(name string, args []graph.Signal) (graph.SignalNode, error) {
	one, half, zero := graph.Const(1), graph.Const(0.5), graph.Const(0)

	switch name {
	// Oscillators
	case "sine":
		return graph.NewOscillator(graph.WaveSine, arg(args, 0, graph.Const(440))), nil
	case "saw":
		return graph.NewOscillator(graph.WaveSaw, arg(args, 0, graph.Const(440))), nil
	case "square":
		return graph.NewOscillator(graph.WaveSquare, arg(args, 0, graph.Const(440))), nil
	case "tri":
		return graph.NewOscillator(graph.WaveTriangle, arg(args, 0, graph.Const(440))), nil
	case "noise":
		return graph.NewOscillator(graph.WaveNoise, zero), nil
	case "pink":
		return graph.NewOscillator(graph.WavePink, zero), nil
	case "brown":
		return graph.NewOscillator(graph.WaveBrown, zero), nil
	case "impulse":
		return graph.NewOscillator(graph.WaveImpulse, arg(args, 0, graph.Const(1))), nil
	case "pulse":
		return graph.NewPulse(arg(args, 0, graph.Const(440)), arg(args, 1, half)), nil
	case "supersaw":
		return lw.buildSupersaw(args)
	case "superkick", "supersnare", "superhat", "superpwm", "superchip", "superfm":
		return lw.buildSuperPercussive(name, args)
	case "pluck":
		return graph.NewPluck(one, arg(args, 0, graph.Const(220)), arg(args, 1, graph.Const(0.995))), nil
	case "organ_hz":
		return graph.NewAdditive(arg(args, 0, graph.Const(220)), 6), nil
	case "additive":
		return graph.NewAdditive(arg(args, 0, graph.Const(220)), 8), nil

	// Filters
	case "lpf":
		return graph.NewLowPass(arg(args, 0, zero), arg(args, 1, graph.Const(1000)), arg(args, 2, graph.Const(0.71))), nil
	case "hpf":
		return graph.NewHighPass(arg(args, 0, zero), arg(args, 1, graph.Const(500)), arg(args, 2, graph.Const(0.71))), nil
	case "bpf":
		return graph.NewBandPass(arg(args, 0, zero), arg(args, 1, graph.Const(1000)), arg(args, 2, graph.Const(1))), nil
	case "notch":
		return graph.NewNotch(arg(args, 0, zero), arg(args, 1, graph.Const(1000)), arg(args, 2, graph.Const(1))), nil
	case "moog_ladder":
		return graph.NewMoogLadder(arg(args, 0, zero), arg(args, 1, graph.Const(1000)), arg(args, 2, graph.Const(0.5))), nil

	// Effects
	case "reverb":
		return graph.NewReverb(arg(args, 0, zero), arg(args, 1, half), arg(args, 2, half), arg(args, 3, graph.Const(0.3))), nil
	case "plate":
		return graph.NewPlate(arg(args, 0, zero), arg(args, 1, half), arg(args, 2, half), arg(args, 3, graph.Const(0.3))), nil
	case "delay":
		return graph.NewDelay(arg(args, 0, zero), arg(args, 1, graph.Const(0.25)), arg(args, 2, half), arg(args, 3, graph.Const(0.3))), nil
	case "chorus":
		return graph.NewChorus(arg(args, 0, zero), arg(args, 1, graph.Const(0.5)), arg(args, 2, half)), nil
	case "flanger":
		return graph.NewFlanger(arg(args, 0, zero), arg(args, 1, graph.Const(0.2)), arg(args, 2, half)), nil
	case "phaser":
		return graph.NewPhaser(arg(args, 0, zero), arg(args, 1, graph.Const(0.5)), arg(args, 2, half), 4), nil
	case "tremolo":
		return graph.NewTremolo(arg(args, 0, zero), arg(args, 1, graph.Const(5)), arg(args, 2, half)), nil
	case "vibrato":
		return graph.NewVibrato(arg(args, 0, zero), arg(args, 1, graph.Const(5)), arg(args, 2, half)), nil
	case "bitcrush":
		return graph.NewBitCrush(arg(args, 0, zero), arg(args, 1, graph.Const(8)), arg(args, 2, one)), nil
	case "distortion":
		return graph.NewDistortion(arg(args, 0, zero), arg(args, 1, half)), nil
	case "ring_mod":
		return graph.NewRingMod(arg(args, 0, zero), arg(args, 1, zero)), nil
	case "vocoder":
		return graph.NewVocoder(arg(args, 0, zero), arg(args, 1, zero), 16), nil
	case "compressor":
		return graph.NewCompressor(arg(args, 0, zero), arg(args, 1, graph.Const(-20)), arg(args, 2, graph.Const(4))), nil
	case "limiter":
		return graph.NewLimiter(arg(args, 0, zero), arg(args, 1, graph.Const(-3))), nil

	// Envelopes
	case "adsr":
		return graph.NewEnvelope(one, arg(args, 0, graph.Const(0.01)), arg(args, 1, graph.Const(0.1)), arg(args, 2, graph.Const(0.7)), arg(args, 3, graph.Const(0.2))), nil
	case "ar":
		return graph.NewEnvelope(one, arg(args, 0, graph.Const(0.01)), zero, zero, arg(args, 1, graph.Const(0.2))), nil
	case "asr":
		return graph.NewGatedEnvelope(arg(args, 0, one), arg(args, 1, graph.Const(0.01)), zero, one, arg(args, 2, graph.Const(0.2))), nil
	case "line":
		return graph.NewLine(arg(args, 0, zero), arg(args, 1, one), arg(args, 2, graph.Const(1)), graph.ShapeLinear), nil
	case "xline":
		return graph.NewLine(arg(args, 0, graph.Const(0.001)), arg(args, 1, one), arg(args, 2, graph.Const(1)), graph.ShapeExponential), nil
	case "curve":
		return graph.NewLine(arg(args, 0, zero), arg(args, 1, one), arg(args, 2, graph.Const(1)), graph.ShapeExponential), nil
	case "envelope":
		return graph.NewEnvelope(arg(args, 0, one), arg(args, 1, graph.Const(0.01)), zero, one, arg(args, 2, graph.Const(0.1))), nil

	// Utility
	case "sample_hold":
		return graph.NewSampleAndHold(arg(args, 0, zero), arg(args, 1, zero)), nil
	case "schmidt":
		return graph.NewSchmidt(arg(args, 0, zero), arg(args, 1, graph.Const(0.5)), arg(args, 2, graph.Const(0.1))), nil
	case "rms":
		return graph.NewRMS(arg(args, 0, zero), arg(args, 1, graph.Const(0.1))), nil
	case "peak_follower":
		return graph.NewPeakFollower(arg(args, 0, zero), arg(args, 1, graph.Const(0.1))), nil
	case "amp_follower":
		return graph.NewAmpFollower(arg(args, 0, zero), arg(args, 1, graph.Const(0.01)), arg(args, 2, graph.Const(0.1))), nil
	case "timer":
		return graph.NewTimer(arg(args, 0, zero)), nil
	case "latch":
		return graph.NewLatch(arg(args, 0, zero), arg(args, 1, zero)), nil
	case "when":
		return graph.NewWhen(arg(args, 0, zero), arg(args, 1, one), arg(args, 2, zero)), nil
	case "clamp":
		return graph.NewClamp(arg(args, 0, zero), arg(args, 1, graph.Const(-1)), arg(args, 2, one)), nil
	case "max":
		return graph.SignalNode{Kind: graph.KindMax, A: arg(args, 0, zero), B: arg(args, 1, zero)}, nil
	case "less_than":
		return graph.SignalNode{Kind: graph.KindLessThan, A: arg(args, 0, zero), B: arg(args, 1, zero)}, nil
	case "gain":
		return graph.NewMul(arg(args, 0, zero), arg(args, 1, one)), nil
	case "sqrt":
		return graph.SignalNode{Kind: graph.KindSqrt, Input: arg(args, 0, zero)}, nil
	case "sin":
		return graph.SignalNode{Kind: graph.KindSin, Input: arg(args, 0, zero)}, nil
	case "tan":
		return graph.SignalNode{Kind: graph.KindTan, Input: arg(args, 0, zero)}, nil
	case "note":
		return graph.NewNote(arg(args, 0, zero)), nil
	}

	return graph.SignalNode{}, fmt.Errorf("lang: unknown function %q", name)
}
