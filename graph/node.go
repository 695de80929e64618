package graph

import (
	"github.com/phonon-lang/phonon/patt"
	"github.com/phonon-lang/phonon/voice"
)

// NodeKind discriminates the SignalNode tagged union (spec.md §3
// "SignalNode"). Dispatch on Kind is a flat switch in Graph.processNode
// rather than interface-based virtual dispatch, matching spec.md §9's
// design note that per-sample dispatch must stay inlinable and
// branch-predictable.
type NodeKind uint8

const (
	KindConstant NodeKind = iota
	KindOscillator
	KindLowPass
	KindHighPass
	KindBandPass
	KindNotch
	KindMoogLadder
	KindComb
	KindEnvelope
	KindSample
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindDelay
	KindReverb
	KindPlate
	KindChorus
	KindFlanger
	KindPhaser
	KindTremolo
	KindVibrato
	KindCompressor
	KindLimiter
	KindBitCrush
	KindDistortion
	KindRingMod
	KindVocoder
	KindPluck
	KindGranular
	KindAdditive
	KindPatternNode
	KindMidiInput
	KindWhen
	KindSampleAndHold
	KindSchmidt
	KindRMS
	KindPeakFollower
	KindAmpFollower
	KindTimer
	KindLatch
	KindClamp
	KindMax
	KindLessThan
	KindScale
	KindNote
	KindSqrt
	KindSin
	KindTan
	KindGain
)

// Waveform selects an Oscillator's shape (spec.md §4.2.2).
type Waveform uint8

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
	WaveNoise
	WavePink
	WaveBrown
	WaveImpulse
	WavePulse
)

// EnvShape selects the curve an Envelope/line node uses to move between
// levels.
type EnvShape uint8

const (
	ShapeLinear EnvShape = iota
	ShapeExponential
)

// biquadState holds the two delay elements of a direct-form-II-transposed
// biquad (spec.md §4.2.2 "Biquad filters").
type biquadState struct {
	z1, z2 float64
}

// envStage is the ADSR/AR state machine's current phase (spec.md §4.2.2
// "Envelope").
type envStage uint8

const (
	EnvIdle envStage = iota
	EnvAttack
	EnvDecay
	EnvSustain
	EnvRelease
)

type envelopeState struct {
	stage      envStage
	level      float64
	lastTrig   float64
	stageStart float64 // level when the current stage began, for click-free retrigger
	progress   float64 // 0..1 through the current stage
}

// ModSlot names one field of sampleModifiers, used to record the written
// order of a `#`-chain (spec.md §4.3 "combining structure from multiple
// modifiers") so the dispatcher can find the rightmost pattern-valued
// modifier with events in a cycle.
type ModSlot uint8

const (
	ModGain ModSlot = iota
	ModPan
	ModSpeed
	ModN
	ModNote
	ModAttack
	ModRelease
	ModBegin
	ModEnd
	ModCut
	ModEnvType
)

// sampleModifiers holds the per-trigger parameter Signals of a Sample
// node (spec.md §3 "Sample" variant, §4.3).
type sampleModifiers struct {
	Gain, Pan, Speed, N, Note, Attack, Release, Begin, End, Cut, EnvType Signal
	Loop, UnitMode bool

	// ChainOrder records each `#`-chained modifier in the order it was
	// written, rightmost last. Structure dominance (spec.md §4.3) walks
	// this in reverse looking for the first pattern-valued modifier with
	// events in the current cycle.
	ChainOrder []ModSlot
}

// DefaultSampleModifiers returns the modifier set a bare `s "..."` uses
// before any `#`-chained modifier overrides it.
func DefaultSampleModifiers() sampleModifiers {
	return sampleModifiers{
		Gain: Const(1), Pan: Const(0), Speed: Const(1), N: Const(0),
		Note: Const(-1), Attack: Const(0.001), Release: Const(0.05),
		Begin: Const(0), End: Const(1), Cut: Const(0), EnvType: Const(0),
	}
}

// bySlot returns the current value of the modifier field named by s. It
// reads the live field rather than a cached copy, so it stays correct
// after Graph.Finalize resolves bus references in place.
func (m *sampleModifiers) bySlot(s ModSlot) Signal {
	switch s {
	case ModGain:
		return m.Gain
	case ModPan:
		return m.Pan
	case ModSpeed:
		return m.Speed
	case ModN:
		return m.N
	case ModNote:
		return m.Note
	case ModAttack:
		return m.Attack
	case ModRelease:
		return m.Release
	case ModBegin:
		return m.Begin
	case ModEnd:
		return m.End
	case ModCut:
		return m.Cut
	case ModEnvType:
		return m.EnvType
	default:
		return Const(0)
	}
}

// SignalNode is the closed tagged union of processing units described in
// spec.md §3 and §4.2.2. Every kind's state lives as plain fields on this
// one struct (rather than behind an interface), per the design note in
// spec.md §9.
type SignalNode struct {
	Kind NodeKind

	// Generic single/dual signal inputs, reused by many kinds (Add/Sub/
	// Mul/Div, RingMod, When's condition/branches, comparisons, etc).
	A, B  Signal
	Input Signal

	// Oscillator
	Freq     Signal
	Waveform Waveform
	phase    float64
	pulseW   Signal
	detune   Signal
	voices   int
	rngState uint64
	phaseAccum float64

	// Filters
	Cutoff, Q Signal
	biquad    biquadState
	ladderZ   [4]float64

	// Comb (utility building block also used by Reverb/Plate)
	Decay      Signal
	DelayMs    Signal
	combBuf    []float32
	combPos    int

	// Envelope / line family
	Trigger                  Signal
	Attack, Decay2, Sustain, Release Signal
	env                      envelopeState
	Shape                    EnvShape
	GateIn                   Signal
	StartLevel, EndLevel, Duration Signal
	LineMode                 bool
	lineElapsed              float64
	curveK                   Signal

	// Sample node (spec.md §4.3)
	PatternStr string
	Pattern    patt.Pattern[string]
	Mods       sampleModifiers
	sampleState sampleDispatchState
	voiceManager *voice.Manager

	// Pattern node (audio-rate pattern sampling, spec.md §4.2.2)
	lastPatValue      float32
	lastPatTrigTime   float64
	NumPattern        patt.Pattern[float32]

	// Delay line
	DelayTime, Feedback, Mix Signal
	ringBuf                  []float32
	ringPos                  int

	// Reverb / Plate
	RoomSize, Damping, Wet Signal
	reverbCombs            []combFilter
	reverbAllpasses        []allpassFilter
	plateState             *plateState

	// Chorus/Flanger/Phaser/Tremolo/Vibrato (modulated delay/LFO family)
	Rate, Depth Signal
	lfoPhase    float64
	modDelayBuf []float32
	modDelayPos int
	Stages      int
	apState     []float64

	// Compressor/Limiter
	Threshold, Ratio Signal
	envFollow        float64
	Gain             Signal

	// BitCrush/Distortion
	Bits, SampleRateDiv Signal
	Drive               Signal
	sampleHoldPos       int
	sampleHoldVal       float32

	// Vocoder
	ModInput, CarrierInput Signal
	Bands                  int
	vocoderState           *vocoderState

	// Pluck (Karplus-Strong)
	pluckBuf   []float32
	pluckPos   int
	lastTrigKS float64

	// Granular / Additive
	AmpPattern patt.Pattern[float32]
	grains     []grain

	// MIDI input
	ChannelFilter int
	midiState     midiInputState

	// When / SampleAndHold / Schmidt / Latch / Timer
	Condition, Then, Else Signal
	HiThresh, LoThresh    Signal
	schmidtState          bool
	sahHeld               float32
	sahLastTrig           float64
	latchHeld             float32
	latchLastGate         float64
	timerLast             float64
	timerElapsed          float64

	// RMS / envelope followers
	Window            Signal
	followState       float64
	ringHist          []float32
	ringHistPos       int

	// Scale / Note quantization
	ScaleName string
	Root      Signal
}

// signalFields returns every Signal-valued field on the node, used by
// Graph.Finalize to resolve bus references and to walk edges for cycle
// detection. Not every field is meaningful for every Kind; resolving or
// visiting an unused zero-value Signal is harmless (its Kind is
// SignalValue).
func (n *SignalNode) signalFields() []*Signal {
	return []*Signal{
		&n.A, &n.B, &n.Input,
		&n.Freq, &n.pulseW, &n.detune,
		&n.Cutoff, &n.Q,
		&n.Decay, &n.DelayMs,
		&n.Trigger, &n.Attack, &n.Decay2, &n.Sustain, &n.Release,
		&n.GateIn, &n.StartLevel, &n.EndLevel, &n.Duration, &n.curveK,
		&n.Mods.Gain, &n.Mods.Pan, &n.Mods.Speed, &n.Mods.N, &n.Mods.Note,
		&n.Mods.Attack, &n.Mods.Release, &n.Mods.Begin, &n.Mods.End,
		&n.Mods.Cut, &n.Mods.EnvType,
		&n.DelayTime, &n.Feedback, &n.Mix,
		&n.RoomSize, &n.Damping, &n.Wet,
		&n.Rate, &n.Depth,
		&n.Threshold, &n.Ratio, &n.Gain,
		&n.Bits, &n.SampleRateDiv, &n.Drive,
		&n.ModInput, &n.CarrierInput,
		&n.Condition, &n.Then, &n.Else,
		&n.HiThresh, &n.LoThresh,
		&n.Window, &n.Root,
	}
}
