package render

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phonon-lang/phonon/graph"
	"github.com/phonon-lang/phonon/lang"
)

func buildGraph(t *testing.T, src string) *graph.Graph {
	t.Helper()
	return buildGraphWithBank(t, src, nil)
}

func buildGraphWithBank(t *testing.T, src string, bank graph.SampleBank) *graph.Graph {
	t.Helper()
	g := graph.NewGraph(44100, 1)
	stmts, err := lang.Parse(src)
	require.NoError(t, err)
	lw := lang.NewLowerer(g, bank, nil)
	require.NoError(t, lw.Lower(stmts))
	return g
}

// countingBank is a graph.SampleBank fixture for the §8.3 scenario tests:
// it serves fixed PCM frames per sample name and counts how many times
// each name was looked up, which (since VoiceManager.Trigger looks a
// name up exactly once per fire) doubles as a voice-trigger counter.
type countingBank struct {
	frames  map[string][]float32
	lookups int
}

func (b *countingBank) Lookup(name string, index int) (frames []float32, channels int, sampleRate float64, ok bool) {
	f, found := b.frames[name]
	if !found {
		return nil, 0, 0, false
	}
	b.lookups++
	return f, 1, 44100, true
}

// decayingClick synthesizes a short exponentially-decaying transient, a
// stand-in for a percussive one-shot sample (kick/hat) that's sharp
// enough for onset detection without needing a real audio asset.
func decayingClick(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Exp(-8 * float64(i) / float64(n)))
	}
	return out
}

// detectOnsets finds rising edges of |buf| crossing threshold, at least
// minGap samples apart, approximating a percussive transient detector.
func detectOnsets(buf []float32, threshold float32, minGap int) []int {
	var onsets []int
	wasAbove := false
	last := -minGap - 1
	for i, s := range buf {
		above := float32(math.Abs(float64(s))) >= threshold
		if above && !wasAbove && i-last >= minGap {
			onsets = append(onsets, i)
			last = i
		}
		wasAbove = above
	}
	return onsets
}

func energy(buf []float32) float64 {
	sum := 0.0
	for _, s := range buf {
		sum += float64(s) * float64(s)
	}
	return sum
}

// goertzelMag estimates the magnitude of samples at freq via the
// Goertzel algorithm, a standard single-frequency DFT term used here
// instead of a full FFT since the spectral-shift tests only need a
// handful of target frequencies.
func goertzelMag(samples []float32, sampleRate, freq float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	coeff := 2 * math.Cos(w)
	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	re := s1 - s2*math.Cos(w)
	im := s2 * math.Sin(w)
	return math.Hypot(re, im) / float64(len(samples))
}

// spectralCentroid is a magnitude-weighted average of freqs, evaluated
// with goertzelMag; a crude but adequate centroid estimate over a fixed
// set of probe frequencies rather than a full spectrum.
func spectralCentroid(samples []float32, sampleRate float64, freqs []float64) float64 {
	var num, den float64
	for _, f := range freqs {
		mag := goertzelMag(samples, sampleRate, f)
		num += f * mag
		den += mag
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func TestEngineProcessBlockProducesStereo(t *testing.T) {
	e := NewEngine(buildGraph(t, "out: sine 440"))
	left := make([]float32, BlockSize)
	right := make([]float32, BlockSize)
	e.ProcessBlock(left, right)

	var nonZero bool
	for i := range left {
		assert.Equal(t, left[i], right[i], "mono master bus duplicated to both channels")
		if left[i] != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero)
}

func TestEngineSwapCrossfadesWithoutPanic(t *testing.T) {
	e := NewEngine(buildGraph(t, "out: sine 440"))
	for i := 0; i < 100; i++ {
		e.ProcessSample()
	}
	next := buildGraph(t, "out: saw 220")
	e.Swap(next)

	assert.NotPanics(t, func() {
		for i := 0; i < crossfadeSamples+10; i++ {
			e.ProcessSample()
		}
	})
	assert.Same(t, next, e.Graph()) // post-swap graph took over
}

func TestRenderToFileWritesValidWavHeader(t *testing.T) {
	e := NewEngine(buildGraph(t, "out: sine 440"))
	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, RenderToFile(e, 44100, 1, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
}

func TestRenderSecondsRejectsNonPositiveDuration(t *testing.T) {
	e := NewEngine(buildGraph(t, "out: sine 440"))
	err := RenderSeconds(e, 44100, 0, func(l, r float32) {})
	assert.Error(t, err)
}

// The following pin the §8.3 worked scenarios E1-E7: structure dominance,
// cut-group stealing, and the envelope advance all live in graph/voice,
// but only an end-to-end render surfaces whether they actually wire
// together.

// E1: a 440Hz sine at 0.2 gain has RMS = 0.2/sqrt(2) ≈ 0.141, peak ≈ 0.2,
// and its energy concentrated at 440Hz.
func TestSineRMSPeakAndFrequency(t *testing.T) {
	const sr = 44100.0
	e := NewEngine(buildGraph(t, "tempo: 1\nout: sine 440 * 0.2"))

	total := int(sr)
	buf := make([]float32, total)
	var peak float32
	for i := range buf {
		l, _ := e.ProcessSample()
		buf[i] = l
		if abs := float32(math.Abs(float64(l))); abs > peak {
			peak = abs
		}
	}

	rms := math.Sqrt(energy(buf) / float64(len(buf)))
	assert.InDelta(t, 0.2/math.Sqrt2, rms, 0.01, "RMS of a 0.2-gain sine should be ~0.141")
	assert.InDelta(t, 0.2, peak, 0.01, "peak amplitude should be ~0.2")

	mag440 := goertzelMag(buf, sr, 440)
	mag220 := goertzelMag(buf, sr, 220)
	mag880 := goertzelMag(buf, sr, 880)
	assert.Greater(t, mag440, mag220*5, "energy should concentrate at 440Hz, not its neighbors")
	assert.Greater(t, mag440, mag880*5, "energy should concentrate at 440Hz, not its neighbors")
}

// E6: setCycle jumps the transport immediately, with no ramp or lag.
func TestSetCycleJumpsTransportImmediately(t *testing.T) {
	e := NewEngine(buildGraph(t, "tempo: 1\nsetCycle 5.0\nout: sine 440"))
	assert.Equal(t, 5.0, e.Graph().CyclePosition(),
		"cycle position should read 5.0 immediately after setCycle, before any sample is processed")
}

// E2: "bd ~ bd ~" at 2 cycles/s fires on two of every cycle's four
// equal steps, twice per second; each onset's energy should sit mostly
// in the first half of its quarter-second slot since the click decays
// fast relative to the step length.
func TestFourDistinctOnsetsInOneSecond(t *testing.T) {
	const sr = 44100.0
	bank := &countingBank{frames: map[string][]float32{"bd": decayingClick(2000)}}
	e := NewEngine(buildGraphWithBank(t, "tempo: 2\n~d1: s \"bd ~ bd ~\"", bank))

	total := int(sr)
	buf := make([]float32, total)
	for i := range buf {
		l, _ := e.ProcessSample()
		buf[i] = l
	}

	onsets := detectOnsets(buf, 0.3, int(0.02*sr))
	assert.Len(t, onsets, 4, "bd ~ bd ~ at 2 cycles/s fires twice per cycle, twice per second")

	slot := total / 4
	for s := 0; s < 4; s++ {
		seg := buf[s*slot : (s+1)*slot]
		mid := len(seg) / 2
		firstHalf := energy(seg[:mid])
		secondHalf := energy(seg[mid:])
		assert.Greater(t, firstHalf, secondHalf,
			"slot %d: onset energy should be concentrated in the first half of the quarter-second slot", s)
	}
}

// E3: the lpf cutoff pattern sweeps 500 -> 2000 Hz once across the whole
// render (one cps=1 cycle), so the spectral centroid of the second half
// should sit above the first half's as the filter opens.
func TestSpectralCentroidRisesAsFilterOpens(t *testing.T) {
	const sr = 44100.0
	e := NewEngine(buildGraph(t, "tempo: 1\nout: saw 110 # lpf \"500 2000\" 0.8"))

	total := int(sr)
	buf := make([]float32, total)
	for i := range buf {
		l, _ := e.ProcessSample()
		buf[i] = l
	}

	half := total / 2
	freqs := []float64{110, 220, 440, 880, 1320, 1760, 2200, 2640}
	before := spectralCentroid(buf[:half], sr, freqs)
	after := spectralCentroid(buf[half:], sr, freqs)
	assert.Greater(t, after, before, "lpf cutoff opening from 500Hz to 2000Hz should raise the spectral centroid")
}

// E4: cut group 1 on every "hh" event must keep at most one voice
// actively driving that group at any sample, even though "hh*8" at
// 4 cycles/s fires onsets closer together than the click's own decay.
func TestCutGroupKeepsActiveVoiceCountAtMostOne(t *testing.T) {
	const sr = 44100.0
	bank := &countingBank{frames: map[string][]float32{"hh": decayingClick(3000)}}
	e := NewEngine(buildGraphWithBank(t, "tempo: 4\nout: s \"hh*8\" # cut 1", bank))

	total := int(sr)
	for i := 0; i < total; i++ {
		e.ProcessSample()
		require.LessOrEqual(t, e.Graph().ActiveVoiceCount(), 1,
			"cut group 1 must keep active_voice_count <= 1 at sample %d", i)
	}
}

// E5: "note \"c4 e4 g4\"" is the rightmost pattern-valued modifier and
// has 3 events per cycle, so it (not the single-event "bd" base
// pattern) sets the trigger structure: 3 triggers in the half-second
// (one full cps=2 cycle) rendered.
func TestStructureDominanceFromRightmostPatternModifier(t *testing.T) {
	const sr = 44100.0
	bank := &countingBank{frames: map[string][]float32{"bd": decayingClick(200)}}
	e := NewEngine(buildGraphWithBank(t, "tempo: 2\nout: s \"bd\" # note \"c4 e4 g4\"", bank))

	total := int(0.5 * sr)
	for i := 0; i < total; i++ {
		e.ProcessSample()
	}
	assert.Equal(t, 3, bank.lookups,
		"note \"c4 e4 g4\" has 3 onsets per cycle and must drive triggering even though bd has only one")
}

// E7: a Karplus-Strong pluck's amplitude decays, so the RMS of the
// second second of a 2s render should be below the first second's.
func TestPluckDecaysOverTwoSeconds(t *testing.T) {
	const sr = 44100.0
	e := NewEngine(buildGraph(t, "out: pluck 220 0.5"))

	total := int(2 * sr)
	buf := make([]float32, total)
	for i := range buf {
		l, _ := e.ProcessSample()
		buf[i] = l
	}

	half := total / 2
	rms := func(seg []float32) float64 { return math.Sqrt(energy(seg) / float64(len(seg))) }
	firstSecond := rms(buf[:half])
	secondSecond := rms(buf[half:])
	assert.Greater(t, firstSecond, secondSecond, "pluck amplitude should decay over the render")
}
