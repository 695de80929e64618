package graph

import (
	"math"
	"strings"

	"github.com/phonon-lang/phonon/frac"
	"github.com/phonon-lang/phonon/patt"
	"github.com/phonon-lang/phonon/voice"
)

// sampleDispatchState bridges pattern query time (rational, per-cycle)
// and audio sample time (continuous, per-sample): spec.md §4.3's
// hardest piece. It caches the onset instants due in the current cycle
// so the dispatcher only re-queries the governing pattern once per
// cycle boundary rather than once per sample.
type sampleDispatchState struct {
	cachedCycle    int64
	onsets         []frac.Fraction // onset positions due this cycle, sorted
	firedThisCycle map[int]bool    // index into onsets already dispatched
}

// SampleBank resolves a sample name (optionally with an index, e.g.
// `bd:2`) to playable PCM frames. Implemented by the samplebank package;
// declared here so graph does not import it directly (graph must stay
// usable headless, without any file I/O dependency).
type SampleBank interface {
	Lookup(name string, index int) (frames []float32, channels int, sampleRate float64, ok bool)
}

// NewSample builds a Sample node: `s "bd sn"`-style pattern-triggered
// playback with `#`-chained modifiers (spec.md §4.3 "Sample"). sampleRate
// paces the voice pool's per-voice envelope.
func NewSample(patternStr string, p patt.Pattern[string], bank SampleBank, sampleRate float64) SignalNode {
	return SignalNode{
		Kind: KindSample, PatternStr: patternStr, Pattern: p,
		Mods: DefaultSampleModifiers(),
		sampleState: sampleDispatchState{
			cachedCycle:    -1,
			firedThisCycle: make(map[int]bool),
		},
		voiceManager: voice.NewManager(bank, 32, sampleRate),
	}
}

// onsetSpans queries p over span and returns the whole-or-part span of
// every event that actually starts (has an onset) within it. Generic
// over the event's value type so it serves both the base sample-name
// pattern (Pattern[string]) and numeric `#`-chained modifiers
// (Pattern[float32]) with one implementation.
func onsetSpans[T any](p patt.Pattern[T], span patt.TimeSpan) []patt.TimeSpan {
	haps := patt.SortHaps(p.QuerySpan(span))
	var out []patt.TimeSpan
	for _, h := range haps {
		if !h.HasOnset() {
			continue
		}
		out = append(out, h.WholeOrPart())
	}
	return out
}

// dominantStructure implements spec.md §4.3 "combining structure from
// multiple modifiers": when a Sample node has several `#`-chained
// pattern-valued modifiers, the effective event structure for the cycle
// comes from the rightmost one that actually has events this cycle, not
// from the base sample pattern. The base pattern is the fallback when no
// chained modifier contributes any events (e.g. plain `s "bd sn"`).
func (g *Graph) dominantStructure(n *SignalNode, span patt.TimeSpan) []patt.TimeSpan {
	for i := len(n.Mods.ChainOrder) - 1; i >= 0; i-- {
		sig := n.Mods.bySlot(n.Mods.ChainOrder[i])
		if sig.Kind != SignalPattern {
			continue
		}
		if spans := onsetSpans(sig.Pattern, span); len(spans) > 0 {
			return spans
		}
	}
	return onsetSpans(n.Pattern, span)
}

// refreshCycleOnsets re-derives the dominant event structure for
// whichever cycle the current transport position falls in, once per
// cycle rather than once per sample (spec.md §4.3 "cycle-boundary
// caching").
func (g *Graph) refreshCycleOnsets(n *SignalNode, cyclePos float64) {
	cycle := int64(math.Floor(cyclePos))
	if n.sampleState.cachedCycle == cycle {
		return
	}
	span := patt.TimeSpan{Begin: frac.FromInt(cycle), End: frac.FromInt(cycle + 1)}
	spans := g.dominantStructure(n, span)
	onsets := make([]frac.Fraction, len(spans))
	for i, s := range spans {
		onsets[i] = s.Begin
	}
	n.sampleState.onsets = onsets
	n.sampleState.cachedCycle = cycle
	n.sampleState.firedThisCycle = make(map[int]bool)
}

// processSample advances the Sample node's voice manager by one sample:
// detects onsets due at the current instant under the dominant
// structure, triggers new voices with every modifier (including the base
// sample name) sampled at that onset's own time, and mixes down every
// active voice (spec.md §4.3 full flow).
func (g *Graph) processSample(n *SignalNode) float32 {
	vm := n.voiceManager
	cyclePos := g.CyclePosition()
	g.refreshCycleOnsets(n, cyclePos)

	cycleFrac := frac.FromFloat(cyclePos)
	for i, onset := range n.sampleState.onsets {
		if n.sampleState.firedThisCycle[i] {
			continue
		}
		if frac.Gte(cycleFrac, onset) {
			n.sampleState.firedThisCycle[i] = true
			g.triggerSampleHap(n, vm, onset)
		}
	}

	if vm == nil {
		return 0
	}
	left, right := vm.ProcessStereo()
	return float32((left + right) / 2)
}

// triggerSampleHap samples the base sample pattern and every `#`-chained
// modifier at the onset's own position (not the block's), so that fast
// modulation of e.g. `pan`, `speed` or `note` patterns lands on the
// correct value per onset (spec.md §4.3 "structure dominance"). When the
// base pattern has no event at that exact instant (the dominant
// structure came from a chained modifier whose onset falls on a rest of
// the base pattern), nothing fires.
func (g *Graph) triggerSampleHap(n *SignalNode, vm *voice.Manager, at frac.Fraction) {
	if vm == nil {
		return
	}
	rawName, ok := sampleNameAt(n.Pattern, at)
	if !ok {
		return
	}
	name, index := splitSampleName(rawName)

	atFloat := at.Float()
	tick := g.curTick
	gain := float64(g.resolveSignalAt(n.Mods.Gain, atFloat, tick))
	pan := float64(g.resolveSignalAt(n.Mods.Pan, atFloat, tick))
	speed := float64(g.resolveSignalAt(n.Mods.Speed, atFloat, tick))
	note := float64(g.resolveSignalAt(n.Mods.Note, atFloat, tick))
	begin := float64(g.resolveSignalAt(n.Mods.Begin, atFloat, tick))
	end := float64(g.resolveSignalAt(n.Mods.End, atFloat, tick))
	cut := int(g.resolveSignalAt(n.Mods.Cut, atFloat, tick))
	attack := float64(g.resolveSignalAt(n.Mods.Attack, atFloat, tick))
	release := float64(g.resolveSignalAt(n.Mods.Release, atFloat, tick))
	envType := g.resolveSignalAt(n.Mods.EnvType, atFloat, tick)

	if nIdx := int(g.resolveSignalAt(n.Mods.N, atFloat, tick)); nIdx != 0 {
		index = nIdx
	}
	if speed == 1 && note >= 0 {
		speed = noteToRatio(note)
	}

	vm.Trigger(voice.TriggerSpec{
		SampleName:  name,
		SampleIdx:   index,
		Gain:        gain,
		Pan:         pan,
		Speed:       speed,
		Begin:       begin,
		End:         end,
		CutGroup:    cut,
		Loop:        n.Mods.Loop,
		Attack:      attack,
		Release:     release,
		Exponential: envType != 0,
	})
}

// sampleNameAt samples the base sample-name pattern at a precise
// instant, matching spec.md §4.3 "the left operand is sampled at the
// event time" for structure-dominance dispatch.
func sampleNameAt(p patt.Pattern[string], at frac.Fraction) (string, bool) {
	span := patt.TimeSpan{Begin: at, End: at}
	haps := p.QuerySpan(span)
	if len(haps) == 0 {
		return "", false
	}
	return haps[len(haps)-1].Value, true
}

// splitSampleName parses `bd:2` into ("bd", 2); a bare name defaults to
// index 0.
func splitSampleName(s string) (string, int) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		idx := 0
		for _, r := range s[i+1:] {
			if r < '0' || r > '9' {
				return s[:i], 0
			}
			idx = idx*10 + int(r-'0')
		}
		return s[:i], idx
	}
	return s, 0
}

// noteToRatio converts a note number (semitones relative to middle C)
// to a playback-speed ratio, so `note 12` plays a sample an octave up
// (spec.md §4.3 "note -> speed").
func noteToRatio(note float64) float64 {
	return math.Pow(2, note/12)
}
