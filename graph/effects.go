package graph

import "math"

// combFilter and allpassFilter are the two building blocks of the
// Freeverb-style reverb (spec.md §4.2.2 "Reverb"), adapted from the
// teacher's batch int16 CombAdd (internal/comb/comb.go) into a
// streaming float32 feedback comb plus, for the allpass stage, the
// classic Schroeder allpass.
type combFilter struct {
	buf   []float32
	pos   int
	store float32
}

func newCombFilter(delaySamples int) combFilter {
	if delaySamples < 1 {
		delaySamples = 1
	}
	return combFilter{buf: make([]float32, delaySamples)}
}

func (c *combFilter) process(x, feedback, damp float32) float32 {
	out := c.buf[c.pos]
	c.store = out*(1-damp) + c.store*damp
	c.buf[c.pos] = x + c.store*feedback
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

type allpassFilter struct {
	buf []float32
	pos int
}

func newAllpassFilter(delaySamples int) allpassFilter {
	if delaySamples < 1 {
		delaySamples = 1
	}
	return allpassFilter{buf: make([]float32, delaySamples)}
}

func (a *allpassFilter) process(x, feedback float32) float32 {
	bufOut := a.buf[a.pos]
	out := -x + bufOut
	a.buf[a.pos] = x + bufOut*feedback
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

// Comb delays are Freeverb's stock tuning; the allpass delays are shorter
// than Freeverb's. Both are scaled to sample rate at construction time.
var combTuningMs = []float64{25.31, 26.94, 28.96, 30.75, 32.24, 33.81, 35.31, 36.67}
var allpassTuningMs = []float64{5.0, 1.7, 1.31, 0.45}

// NewReverb builds a Freeverb-style reverb: a bank of parallel combs
// feeding a chain of series allpasses (spec.md §4.2.2 "Reverb").
func NewReverb(input, roomSize, damping, wet Signal) SignalNode {
	return SignalNode{Kind: KindReverb, Input: input, RoomSize: roomSize, Damping: damping, Wet: wet}
}

func (g *Graph) ensureReverbState(n *SignalNode) {
	if n.reverbCombs != nil {
		return
	}
	n.reverbCombs = make([]combFilter, len(combTuningMs))
	for i, ms := range combTuningMs {
		n.reverbCombs[i] = newCombFilter(int(ms * g.SampleRate / 1000))
	}
	n.reverbAllpasses = make([]allpassFilter, len(allpassTuningMs))
	for i, ms := range allpassTuningMs {
		n.reverbAllpasses[i] = newAllpassFilter(int(ms * g.SampleRate / 1000))
	}
}

func (g *Graph) processReverb(n *SignalNode) float32 {
	g.ensureReverbState(n)
	x := g.resolveSignal(n.Input, g.curTick)
	roomSize := g.resolveSignal(n.RoomSize, g.curTick)
	damping := g.resolveSignal(n.Damping, g.curTick)
	wet := g.resolveSignal(n.Wet, g.curTick)

	feedback := 0.28 + roomSize*0.7

	var sum float32
	for i := range n.reverbCombs {
		sum += n.reverbCombs[i].process(x, feedback, damping)
	}
	sum /= float32(len(n.reverbCombs))
	for i := range n.reverbAllpasses {
		sum = n.reverbAllpasses[i].process(sum, 0.5)
	}
	return x*(1-wet) + sum*wet
}

// plateState holds a simplified Dattorro-style tank: four unmodulated
// input allpass diffusers feeding a cross-coupled pair of delay lines
// (spec.md §4.2.2 "Plate reverb", offered alongside the lighter
// Freeverb-derived Reverb). There is no delay modulation, no decay
// diffusion inside the tank and no multi-tap output; the wet signal is
// the average of the two tank delay reads.
type plateState struct {
	predelay    []float32
	predelayPos int
	diffusers   []allpassFilter
	tankA       []float32
	tankB       []float32
	tankAPos    int
	tankBPos    int
}

// NewPlate builds a Dattorro plate reverb node.
func NewPlate(input, roomSize, damping, wet Signal) SignalNode {
	return SignalNode{Kind: KindPlate, Input: input, RoomSize: roomSize, Damping: damping, Wet: wet}
}

func (g *Graph) ensurePlateState(n *SignalNode) {
	if n.plateState != nil {
		return
	}
	sr := g.SampleRate
	st := &plateState{
		predelay: make([]float32, int(0.01*sr)+1),
		tankA:    make([]float32, int(0.0947*sr)+1),
		tankB:    make([]float32, int(0.0896*sr)+1),
	}
	diffMs := []float64{4.771, 3.595, 12.73, 9.307}
	for _, ms := range diffMs {
		st.diffusers = append(st.diffusers, newAllpassFilter(int(ms*sr/1000)+1))
	}
	n.plateState = st
}

func (g *Graph) processPlate(n *SignalNode) float32 {
	g.ensurePlateState(n)
	st := n.plateState
	x := g.resolveSignal(n.Input, g.curTick)
	damping := g.resolveSignal(n.Damping, g.curTick)
	wet := g.resolveSignal(n.Wet, g.curTick)
	decay := 0.5 + g.resolveSignal(n.RoomSize, g.curTick)*0.49

	st.predelay[st.predelayPos] = x
	st.predelayPos = (st.predelayPos + 1) % len(st.predelay)
	pre := st.predelay[st.predelayPos]

	diffused := pre
	for i := range st.diffusers {
		diffused = st.diffusers[i].process(diffused, 0.7)
	}

	a := st.tankA[st.tankAPos]
	b := st.tankB[st.tankBPos]

	st.tankA[st.tankAPos] = diffused + b*decay*(1-damping)
	st.tankB[st.tankBPos] = diffused + a*decay*(1-damping)
	st.tankAPos = (st.tankAPos + 1) % len(st.tankA)
	st.tankBPos = (st.tankBPos + 1) % len(st.tankB)

	wetSum := (a + b) / 2
	return x*(1-wet) + wetSum*wet
}

// NewDelay builds a feedback delay line (spec.md §4.2.2 "Delay").
func NewDelay(input, delayTime, feedback, mix Signal) SignalNode {
	return SignalNode{Kind: KindDelay, Input: input, DelayTime: delayTime, Feedback: feedback, Mix: mix}
}

func (g *Graph) processDelay(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	delayTime := g.resolveSignal(n.DelayTime, g.curTick)
	feedback := g.resolveSignal(n.Feedback, g.curTick)
	mix := g.resolveSignal(n.Mix, g.curTick)

	delaySamples := int(delayTime * float32(g.SampleRate))
	if delaySamples < 1 {
		delaySamples = 1
	}
	if len(n.ringBuf) != delaySamples {
		n.ringBuf = make([]float32, delaySamples)
		n.ringPos = 0
	}

	delayed := n.ringBuf[n.ringPos]
	n.ringBuf[n.ringPos] = x + delayed*feedback
	n.ringPos++
	if n.ringPos >= len(n.ringBuf) {
		n.ringPos = 0
	}
	return x*(1-mix) + delayed*mix
}

// modulatedDelayProcess is shared by Chorus, Flanger and Vibrato: an LFO
// modulates a short delay line's read position.
func (g *Graph) modulatedDelayProcess(n *SignalNode, baseDelayMs, depthMs float64, mixDry bool) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	rate := float64(g.resolveSignal(n.Rate, g.curTick))
	depth := float64(g.resolveSignal(n.Depth, g.curTick))

	maxDelay := int((baseDelayMs + depthMs) * g.SampleRate / 1000) + 2
	if len(n.modDelayBuf) != maxDelay {
		n.modDelayBuf = make([]float32, maxDelay)
		n.modDelayPos = 0
	}

	n.modDelayBuf[n.modDelayPos] = x
	lfo := math.Sin(2 * math.Pi * n.lfoPhase)
	n.lfoPhase += rate / g.SampleRate
	if n.lfoPhase >= 1 {
		n.lfoPhase -= math.Floor(n.lfoPhase)
	}

	delayMs := baseDelayMs + depth*depthMs*lfo
	delaySamples := delayMs * g.SampleRate / 1000

	readPos := float64(n.modDelayPos) - delaySamples
	for readPos < 0 {
		readPos += float64(len(n.modDelayBuf))
	}
	i0 := int(readPos) % len(n.modDelayBuf)
	i1 := (i0 + 1) % len(n.modDelayBuf)
	frac := readPos - math.Floor(readPos)
	interp := float64(n.modDelayBuf[i0])*(1-frac) + float64(n.modDelayBuf[i1])*frac

	n.modDelayPos++
	if n.modDelayPos >= len(n.modDelayBuf) {
		n.modDelayPos = 0
	}

	if mixDry {
		return float32(float64(x)*0.5 + interp*0.5)
	}
	return float32(interp)
}

// NewChorus, NewFlanger and NewVibrato build modulated-delay effects
// that share modulatedDelayProcess, differing in base delay time, in how
// far the depth input swings the delay, and in whether the dry signal is
// mixed back in (spec.md §4.2.2).
func NewChorus(input, rate, depth Signal) SignalNode {
	return SignalNode{Kind: KindChorus, Input: input, Rate: rate, Depth: depth}
}
func NewFlanger(input, rate, depth Signal) SignalNode {
	return SignalNode{Kind: KindFlanger, Input: input, Rate: rate, Depth: depth}
}
func NewVibrato(input, rate, depth Signal) SignalNode {
	return SignalNode{Kind: KindVibrato, Input: input, Rate: rate, Depth: depth}
}

func (g *Graph) processChorus(n *SignalNode) float32  { return g.modulatedDelayProcess(n, 20, 10, true) }
func (g *Graph) processFlanger(n *SignalNode) float32 { return g.modulatedDelayProcess(n, 1, 1, true) }
func (g *Graph) processVibrato(n *SignalNode) float32 { return g.modulatedDelayProcess(n, 5, 5, false) }

// NewPhaser builds a cascaded-allpass phaser, with LFO-modulated corner
// frequency across Stages allpass sections (spec.md §4.2.2 "Phaser").
func NewPhaser(input, rate, depth Signal, stages int) SignalNode {
	if stages <= 0 {
		stages = 4
	}
	return SignalNode{Kind: KindPhaser, Input: input, Rate: rate, Depth: depth, Stages: stages}
}

func (g *Graph) processPhaser(n *SignalNode) float32 {
	x := float64(g.resolveSignal(n.Input, g.curTick))
	rate := float64(g.resolveSignal(n.Rate, g.curTick))
	depth := float64(g.resolveSignal(n.Depth, g.curTick))

	if len(n.apState) != n.Stages {
		n.apState = make([]float64, n.Stages)
	}

	lfo := (math.Sin(2*math.Pi*n.lfoPhase) + 1) / 2
	n.lfoPhase += rate / g.SampleRate
	if n.lfoPhase >= 1 {
		n.lfoPhase -= math.Floor(n.lfoPhase)
	}

	freq := 200 + lfo*depth*2000
	coeff := (math.Tan(math.Pi*freq/g.SampleRate) - 1) / (math.Tan(math.Pi*freq/g.SampleRate) + 1)

	out := x
	for i := range n.apState {
		y := coeff*out + n.apState[i]
		n.apState[i] = out - coeff*y
		out = y
	}
	return float32((x + out) / 2)
}

// NewTremolo amplitude-modulates Input by an LFO (spec.md §4.2.2
// "Tremolo").
func NewTremolo(input, rate, depth Signal) SignalNode {
	return SignalNode{Kind: KindTremolo, Input: input, Rate: rate, Depth: depth}
}

func (g *Graph) processTremolo(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	rate := float64(g.resolveSignal(n.Rate, g.curTick))
	depth := float64(g.resolveSignal(n.Depth, g.curTick))

	lfo := (math.Sin(2*math.Pi*n.lfoPhase) + 1) / 2
	n.lfoPhase += rate / g.SampleRate
	if n.lfoPhase >= 1 {
		n.lfoPhase -= math.Floor(n.lfoPhase)
	}
	gain := 1 - depth*lfo
	return x * float32(gain)
}

// NewCompressor and NewLimiter share a feed-forward peak-envelope
// gain-reduction stage, differing only in ratio (a Limiter is a
// Compressor with a fixed 20:1 ratio above threshold; spec.md §4.2.2
// "Compressor / Limiter").
func NewCompressor(input, threshold, ratio Signal) SignalNode {
	return SignalNode{Kind: KindCompressor, Input: input, Threshold: threshold, Ratio: ratio}
}

func NewLimiter(input, threshold Signal) SignalNode {
	return SignalNode{Kind: KindLimiter, Input: input, Threshold: threshold, Ratio: Const(20)}
}

func (g *Graph) processCompressor(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	threshold := float64(g.resolveSignal(n.Threshold, g.curTick))
	ratio := float64(g.resolveSignal(n.Ratio, g.curTick))
	if ratio < 1 {
		ratio = 1
	}

	const attackCoeff, releaseCoeff = 0.01, 0.0005
	level := math.Abs(float64(x))
	if level > n.envFollow {
		n.envFollow += (level - n.envFollow) * attackCoeff
	} else {
		n.envFollow += (level - n.envFollow) * releaseCoeff
	}

	dB := 20 * math.Log10(math.Max(n.envFollow, 1e-9))
	if dB <= threshold {
		return x
	}
	reducedDB := threshold + (dB-threshold)/ratio
	gain := math.Pow(10, (reducedDB-dB)/20)
	return x * float32(gain)
}

// NewBitCrush rounds amplitude to steps of 2^-Bits and decimates the
// sample rate by SampleRateDiv (spec.md §4.2.2 "BitCrush").
func NewBitCrush(input, bits, sampleRateDiv Signal) SignalNode {
	return SignalNode{Kind: KindBitCrush, Input: input, Bits: bits, SampleRateDiv: sampleRateDiv}
}

func (g *Graph) processBitCrush(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	div := int(g.resolveSignal(n.SampleRateDiv, g.curTick))
	if div < 1 {
		div = 1
	}
	if n.sampleHoldPos%div == 0 {
		bits := g.resolveSignal(n.Bits, g.curTick)
		if bits < 1 {
			bits = 1
		}
		levels := float32(math.Pow(2, float64(bits)))
		n.sampleHoldVal = float32(math.Round(float64(x*levels))) / levels
	}
	n.sampleHoldPos++
	return n.sampleHoldVal
}

// NewDistortion applies a tanh soft-clip waveshaper, with Drive scaling
// the pre-gain (spec.md §4.2.2 "Distortion").
func NewDistortion(input, drive Signal) SignalNode {
	return SignalNode{Kind: KindDistortion, Input: input, Drive: drive}
}

func (g *Graph) processDistortion(n *SignalNode) float32 {
	x := float64(g.resolveSignal(n.Input, g.curTick))
	drive := math.Max(float64(g.resolveSignal(n.Drive, g.curTick)), 0)
	return float32(math.Tanh(x * (1 + drive*10)))
}

// NewRingMod multiplies two signals, producing sum-and-difference
// sidebands (spec.md §4.2.2 "RingMod").
func NewRingMod(a, b Signal) SignalNode {
	return SignalNode{Kind: KindRingMod, A: a, B: b}
}

func (g *Graph) processRingMod(n *SignalNode) float32 {
	return g.resolveSignal(n.A, g.curTick) * g.resolveSignal(n.B, g.curTick)
}

// vocoderState holds one envelope-follower band of the vocoder. Each
// band band-passes both the modulator and carrier at the same centre
// frequency, follows the modulator's envelope, and applies it to the
// filtered carrier (spec.md §4.2.2 "Vocoder").
type vocoderState struct {
	modBands     []biquadState
	carrierBands []biquadState
	envelopes    []float64
	centres      []float64
}

// NewVocoder builds a Bands-band vocoder imposing ModInput's spectral
// envelope onto CarrierInput.
func NewVocoder(modInput, carrierInput Signal, bands int) SignalNode {
	if bands <= 0 {
		bands = 16
	}
	return SignalNode{Kind: KindVocoder, ModInput: modInput, CarrierInput: carrierInput, Bands: bands}
}

func (g *Graph) ensureVocoderState(n *SignalNode) {
	if n.vocoderState != nil {
		return
	}
	st := &vocoderState{
		modBands:     make([]biquadState, n.Bands),
		carrierBands: make([]biquadState, n.Bands),
		envelopes:    make([]float64, n.Bands),
		centres:      make([]float64, n.Bands),
	}
	loHz, hiHz := 100.0, 8000.0
	for i := 0; i < n.Bands; i++ {
		t := float64(i) / float64(n.Bands-1)
		st.centres[i] = loHz * math.Pow(hiHz/loHz, t)
	}
	n.vocoderState = st
}

func (g *Graph) processVocoder(n *SignalNode) float32 {
	g.ensureVocoderState(n)
	st := n.vocoderState
	mod := float64(g.resolveSignal(n.ModInput, g.curTick))
	carrier := float64(g.resolveSignal(n.CarrierInput, g.curTick))

	var out float64
	for i := 0; i < n.Bands; i++ {
		b0, b1, b2, a1, a2 := biquadCoeffs(KindBandPass, st.centres[i], 4, g.SampleRate)

		modFiltered := biquadStep(&st.modBands[i], mod, b0, b1, b2, a1, a2)
		carrierFiltered := biquadStep(&st.carrierBands[i], carrier, b0, b1, b2, a1, a2)

		level := math.Abs(modFiltered)
		if level > st.envelopes[i] {
			st.envelopes[i] += (level - st.envelopes[i]) * 0.3
		} else {
			st.envelopes[i] += (level - st.envelopes[i]) * 0.02
		}
		out += carrierFiltered * st.envelopes[i]
	}
	return float32(out / float64(n.Bands) * 4)
}

func biquadStep(z *biquadState, x, b0, b1, b2, a1, a2 float64) float64 {
	y := b0*x + z.z1
	z.z1 = b1*x - a1*y + z.z2
	z.z2 = b2*x - a2*y
	return y
}

// NewPluck builds a Karplus-Strong plucked string: a noise burst seeded
// into a delay line of length SampleRate/Freq, fed back through a
// one-pole lowpass to model string damping (spec.md §4.2.2 "Pluck").
func NewPluck(trigger, freq, decay Signal) SignalNode {
	return SignalNode{Kind: KindPluck, Trigger: trigger, Freq: freq, Decay: decay, rngState: 0xcafef00dd15ea5e5}
}

func (g *Graph) processPluck(n *SignalNode) float32 {
	trig := float64(g.resolveSignal(n.Trigger, g.curTick))
	freq := float64(g.resolveSignal(n.Freq, g.curTick))
	decay := float64(g.resolveSignal(n.Decay, g.curTick))
	if decay <= 0 || decay >= 1 {
		decay = 0.995
	}

	retriggered := trig > 0 && n.lastTrigKS <= 0
	n.lastTrigKS = trig

	size := int(g.SampleRate / math.Max(freq, 20))
	if retriggered || len(n.pluckBuf) != size {
		n.pluckBuf = make([]float32, size)
		for i := range n.pluckBuf {
			n.pluckBuf[i] = float32(2*xorshiftFloat(&n.rngState) - 1)
		}
		n.pluckPos = 0
	}

	cur := n.pluckBuf[n.pluckPos]
	next := n.pluckBuf[(n.pluckPos+1)%len(n.pluckBuf)]
	avg := (cur + next) / 2 * float32(decay)
	n.pluckBuf[n.pluckPos] = avg
	n.pluckPos = (n.pluckPos + 1) % len(n.pluckBuf)
	return cur
}

// grain is one active playback window of a Granular node.
type grain struct {
	pos, rate, amp, remaining float64
}

// NewGranular builds a granular synthesis node scattering overlapping
// grains of Input over a ring buffer at Rate grains/sec (spec.md
// §4.2.2 "Granular"). Kept deliberately simple: grains read straight
// from a recent-history ring of Input rather than from a sample bank,
// so Granular can sit anywhere in the graph (not just downstream of a
// Sample node).
func NewGranular(input, rate, depth Signal) SignalNode {
	return SignalNode{Kind: KindGranular, Input: input, Rate: rate, Depth: depth}
}

func (g *Graph) processGranular(n *SignalNode) float32 {
	x := g.resolveSignal(n.Input, g.curTick)
	rate := float64(g.resolveSignal(n.Rate, g.curTick))
	grainLenSec := math.Max(float64(g.resolveSignal(n.Depth, g.curTick)), 0.01)

	histLen := int(grainLenSec*g.SampleRate) + 2
	if len(n.ringHist) != histLen {
		n.ringHist = make([]float32, histLen)
		n.ringHistPos = 0
	}
	n.ringHist[n.ringHistPos] = x
	n.ringHistPos = (n.ringHistPos + 1) % len(n.ringHist)

	n.lfoPhase += rate / g.SampleRate
	if n.lfoPhase >= 1 {
		n.lfoPhase -= math.Floor(n.lfoPhase)
		n.grains = append(n.grains, grain{pos: 0, rate: 1, amp: 1, remaining: grainLenSec * g.SampleRate})
	}

	var out float32
	live := n.grains[:0]
	for _, gr := range n.grains {
		idx := (n.ringHistPos - histLen + int(gr.pos) + histLen) % histLen
		window := float32(math.Sin(math.Pi * (1 - gr.remaining/(grainLenSec*g.SampleRate))))
		out += n.ringHist[idx] * window * float32(gr.amp)
		gr.pos++
		gr.remaining--
		if gr.remaining > 0 {
			live = append(live, gr)
		}
	}
	n.grains = live
	return out
}

// NewAdditive sums Bands harmonically related sine partials, partial h
// at amplitude 1/h, and halves the sum (spec.md §4.2.2 "Additive"). It
// takes no amplitude pattern input; partial amplitudes are fixed.
func NewAdditive(freq Signal, bands int) SignalNode {
	if bands <= 0 {
		bands = 8
	}
	return SignalNode{Kind: KindAdditive, Freq: freq, Bands: bands}
}

func (g *Graph) processAdditive(n *SignalNode) float32 {
	freq := float64(g.resolveSignal(n.Freq, g.curTick))
	var out float64
	for h := 1; h <= n.Bands; h++ {
		partialFreq := freq * float64(h)
		if partialFreq >= g.SampleRate/2 {
			break
		}
		out += math.Sin(2*math.Pi*n.phase*float64(h)) / float64(h)
	}
	n.phase += freq / g.SampleRate
	if n.phase >= 1 {
		n.phase -= math.Floor(n.phase)
	}
	return float32(out / 2)
}
