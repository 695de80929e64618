package lang

import "github.com/phonon-lang/phonon/graph"

// buildSupersaw stacks several detuned saws into one additive-ish
// texture, the classic "supersaw" sound (spec.md §6.1 oscillator
// catalogue): since a SignalNode can have only one Freq input, detuning
// is modeled by summing N saw nodes whose frequencies are offset by
// Detune*i around the base, built here and returned as a single Add
// chain rather than a dedicated node kind.
func (lw *Lowerer) buildSupersaw(args []graph.Signal) (graph.SignalNode, error) {
	freq := arg(args, 0, graph.Const(110))
	detune := arg(args, 1, graph.Const(0.02))
	voices := 5
	return lw.stackDetunedOscillators(graph.WaveSaw, freq, detune, voices), nil
}

// stackDetunedOscillators builds `voices` saw/square oscillators spread
// symmetrically around freq by multiples of detune (as a frequency
// ratio), summing them, and returns the sum node itself (so buildNode's
// caller can AddNode it like any other single-node builtin).
func (lw *Lowerer) stackDetunedOscillators(wave graph.Waveform, freq, detuneRatio graph.Signal, voices int) graph.SignalNode {
	var ids []graph.NodeId
	mid := voices / 2
	for i := 0; i < voices; i++ {
		offset := i - mid
		voiceFreq := freq
		if offset != 0 {
			ratioNode := lw.g.AddNode(graph.NewMul(detuneRatio, graph.Const(float32(offset))))
			shiftNode := lw.g.AddNode(graph.NewMul(freq, graph.FromNode(ratioNode)))
			voiceFreq = graph.FromNode(lw.g.AddNode(graph.NewAdd(freq, graph.FromNode(shiftNode))))
		}
		ids = append(ids, lw.g.AddNode(graph.NewOscillator(wave, voiceFreq)))
	}
	sum := ids[0]
	for _, id := range ids[1:] {
		sum = lw.g.AddNode(graph.NewAdd(graph.FromNode(sum), graph.FromNode(id)))
	}
	scaled := lw.g.AddNode(graph.NewMul(graph.FromNode(sum), graph.Const(1/float32(voices))))
	return graph.NewConstant(graph.FromNode(scaled))
}

// buildSuperPercussive implements the `super*` drum-synthesis family
// (superkick/supersnare/superhat/superpwm/superchip/superfm) as thin
// combinations of an oscillator plus a fast envelope, matching their
// one-line Tidal/SuperDirt analogues rather than dedicated node kinds
// (spec.md §6.1).
func (lw *Lowerer) buildSuperPercussive(name string, args []graph.Signal) (graph.SignalNode, error) {
	freq := arg(args, 0, graph.Const(60))
	decay := arg(args, 1, graph.Const(0.2))

	var osc graph.NodeId
	switch name {
	case "superkick":
		pitchEnv := lw.g.AddNode(graph.NewLine(graph.Const(4), graph.Const(1), decay, graph.ShapeExponential))
		sweptFreq := lw.g.AddNode(graph.NewMul(freq, graph.FromNode(pitchEnv)))
		osc = lw.g.AddNode(graph.NewOscillator(graph.WaveSine, graph.FromNode(sweptFreq)))
	case "supersnare":
		noise := lw.g.AddNode(graph.NewOscillator(graph.WaveNoise, graph.Const(0)))
		tone := lw.g.AddNode(graph.NewOscillator(graph.WaveTriangle, freq))
		osc = lw.g.AddNode(graph.NewAdd(graph.FromNode(noise), graph.FromNode(tone)))
	case "superhat":
		osc = lw.g.AddNode(graph.NewOscillator(graph.WaveNoise, graph.Const(0)))
		osc = lw.g.AddNode(graph.NewHighPass(graph.FromNode(osc), graph.Const(7000), graph.Const(0.7)))
	case "superpwm":
		width := arg(args, 1, graph.Const(0.3))
		osc = lw.g.AddNode(graph.NewPulse(freq, width))
	case "superchip":
		osc = lw.g.AddNode(graph.NewOscillator(graph.WaveSquare, freq))
	case "superfm":
		ratio := arg(args, 1, graph.Const(2))
		index := arg(args, 2, graph.Const(4))
		modFreq := lw.g.AddNode(graph.NewMul(freq, ratio))
		modOsc := lw.g.AddNode(graph.NewOscillator(graph.WaveSine, graph.FromNode(modFreq)))
		modDepth := lw.g.AddNode(graph.NewMul(graph.FromNode(modOsc), index))
		carrierFreq := lw.g.AddNode(graph.NewAdd(freq, graph.FromNode(modDepth)))
		osc = lw.g.AddNode(graph.NewOscillator(graph.WaveSine, graph.FromNode(carrierFreq)))
	}

	env := lw.g.AddNode(graph.NewEnvelope(graph.Const(1), graph.Const(0.001), decay, graph.Const(0), decay))
	shaped := lw.g.AddNode(graph.NewMul(graph.FromNode(osc), graph.FromNode(env)))
	return graph.NewConstant(graph.FromNode(shaped)), nil
}
