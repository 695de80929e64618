// Package render drives a compiled graph.Graph at the block rate used
// by every output path (offline WAV file, live audio callback, or
// test harness): advance the transport one sample at a time, collecting
// output into fixed-size blocks, and support swapping the whole graph
// out from under a running engine without a click (spec.md §4.5
// "live-reload/swap").
package render

import (
	"fmt"
	"sync/atomic"

	"github.com/phonon-lang/phonon/graph"
)

// BlockSize is the engine's default callback/render chunk, matching
// the teacher's GenerateAudio buffer granularity (mixer.go) rather than
// processing one sample at a time all the way out to I/O.
const BlockSize = 512

// crossfadeSamples is how long a hot-swap blends the old and new graph's
// output before fully switching over (spec.md §4.5 "~5ms crossfade").
const crossfadeSamples = 220 // ~5ms at 44.1kHz

// Engine owns the currently-live graph and generates stereo float32
// audio from it. Swap installs a new graph for the next ProcessBlock
// call to pick up, crossfading briefly so an edit never clicks.
type Engine struct {
	current atomic.Pointer[graph.Graph]
	pending atomic.Pointer[graph.Graph]

	fading     bool
	fadeFrom   *graph.Graph
	fadeTo     *graph.Graph
	fadeRemain int
}

// NewEngine wraps an already-Finalize'd graph.
func NewEngine(g *graph.Graph) *Engine {
	e := &Engine{}
	e.current.Store(g)
	return e
}

// Swap installs a new graph to take over on the next samples processed,
// crossfading from the graph currently playing (spec.md §4.5 "the old
// graph keeps running until the new one has faded in"). g must already
// be Finalize'd.
func (e *Engine) Swap(g *graph.Graph) {
	e.pending.Store(g)
}

// beginPendingSwap promotes a pending graph into an active crossfade,
// called lazily the next time a sample is pulled so Swap itself never
// blocks the audio thread.
func (e *Engine) beginPendingSwap() {
	if p := e.pending.Swap(nil); p != nil {
		e.fadeFrom = e.current.Load()
		e.fadeTo = p
		e.fadeRemain = crossfadeSamples
		e.fading = true
		e.current.Store(p)
	}
}

// ProcessSample advances the engine by one sample, returning a stereo
// pair. The graph core is mono per node (spec.md Open Question: stereo
// panning is resolved inside Sample nodes' own voice mixdown, per
// DESIGN.md); the master bus is duplicated to both channels here.
func (e *Engine) ProcessSample() (left, right float32) {
	e.beginPendingSwap()

	if e.fading {
		from := e.fadeFrom.ProcessSample()
		to := e.fadeTo.ProcessSample()
		t := 1 - float32(e.fadeRemain)/float32(crossfadeSamples)
		v := from*(1-t) + to*t
		e.fadeRemain--
		if e.fadeRemain <= 0 {
			e.fading = false
			e.fadeFrom = nil
		}
		return v, v
	}

	v := e.current.Load().ProcessSample()
	return v, v
}

// ProcessBlock fills left/right (equal length) with consecutive stereo
// samples, the unit the live portaudio callback pulls in.
func (e *Engine) ProcessBlock(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		left[i], right[i] = e.ProcessSample()
	}
}

// Graph returns the currently active graph, e.g. for transport control
// (ResetCycles/SetCycle/Nudge/SetCPS) issued from a CLI or OSC handler.
func (e *Engine) Graph() *graph.Graph {
	return e.current.Load()
}

// RenderSeconds runs the engine for `seconds` of audio at sampleRate,
// as fast as it can, emitting interleaved stereo samples through emit. An offline,
// deterministic counterpart to live ProcessBlock playback (spec.md
// §6.2 "phonon render input.ph output.wav --duration <seconds>").
func RenderSeconds(e *Engine, sampleRate float64, seconds float64, emit func(l, r float32)) error {
	if seconds <= 0 {
		return fmt.Errorf("render: duration must be positive, got %v", seconds)
	}
	total := int64(seconds * sampleRate)
	for i := int64(0); i < total; i++ {
		l, r := e.ProcessSample()
		emit(l, r)
	}
	return nil
}
