// Package voice implements the polyphonic sample-voice manager (spec.md
// §4.4 "Voice manager"): a pool of concurrently playing sample voices
// with cut-group stealing, a per-voice AR envelope, and equal-power
// stereo panning. It mirrors the teacher's scalar per-sample stereo
// mixing (mixer_scalar.go) but generalized from fixed tracker channels
// to an arbitrary, dynamically triggered voice pool.
package voice

import "math"

// SampleSource resolves a sample name/index pair to PCM frames,
// satisfied by graph.SampleBank (voice does not import graph, to avoid
// a cycle; the two share this shape by convention).
type SampleSource interface {
	Lookup(name string, index int) (frames []float32, channels int, sampleRate float64, ok bool)
}

// TriggerSpec describes one onset's playback parameters, sampled once
// at trigger time (spec.md §4.3 "modifiers sampled at onset").
type TriggerSpec struct {
	SampleName string
	SampleIdx  int
	Gain       float64
	Pan        float64 // -1 (left) .. +1 (right)
	Speed      float64 // playback rate multiplier; negative reverses
	Begin, End float64 // fractional start/stop within the sample, 0..1
	CutGroup   int     // 0 = no cut group
	Loop       bool

	// Envelope (spec.md §3 Voice data model "envelope_state"). Attack and
	// Release are in seconds; Exponential selects the curve shape (the
	// `envType`/`ar` sample modifiers), linear otherwise.
	Attack      float64
	Release     float64
	Exponential bool
}

// envStage is a voice's AR envelope phase.
type envStage uint8

const (
	envAttack envStage = iota
	envSustain
	envRelease
)

// fastRelease is the retune applied to a stolen cut-group voice (spec.md
// §4.4 "set its envelope to fast-release (5 ms) and mark it for
// retirement") so the steal fades out instead of clicking.
const fastRelease = 0.005

// Voice is one playing instance of a triggered sample.
type Voice struct {
	frames     []float32
	channels   int
	pos        float64
	speed      float64
	gain       float64
	panL, panR float64
	endFrame   float64
	cutGroup   int
	loop       bool
	active     bool

	// envelope_state (spec.md §3 Voice data model).
	stage       envStage
	level       float64
	attackSec   float64
	releaseSec  float64
	releaseFrom float64
	progress    float64
	exponential bool
}

// Manager holds the pool of active voices. MaxVoices bounds polyphony;
// a new trigger takes the first inactive slot, and once the pool is full
// it takes slots in round-robin order, which is not necessarily the
// oldest voice.
type Manager struct {
	bank       SampleSource
	voices     []Voice
	maxVoices  int
	nextSlot   int
	sampleRate float64
}

// NewManager builds a voice pool backed by bank, with room for
// maxVoices simultaneous voices. sampleRate paces the per-voice envelope
// (attack/release times are specified in seconds).
func NewManager(bank SampleSource, maxVoices int, sampleRate float64) *Manager {
	if maxVoices <= 0 {
		maxVoices = 32
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &Manager{bank: bank, voices: make([]Voice, maxVoices), maxVoices: maxVoices, sampleRate: sampleRate}
}

// Trigger starts a new voice for spec, first stealing any voice sharing
// spec's non-zero cut group (spec.md §4.4 "cut groups"): rather than
// silencing it outright, the stolen voice is retargeted to a fast (5 ms)
// release and marked for retirement once that release completes, so the
// steal fades out instead of clicking.
func (m *Manager) Trigger(spec TriggerSpec) {
	if m.bank == nil {
		return
	}
	frames, channels, _, ok := m.bank.Lookup(spec.SampleName, spec.SampleIdx)
	if !ok || len(frames) == 0 {
		return
	}

	if spec.CutGroup != 0 {
		for i := range m.voices {
			v := &m.voices[i]
			if v.active && v.cutGroup == spec.CutGroup {
				v.stage = envRelease
				v.releaseFrom = v.level
				v.releaseSec = fastRelease
				v.progress = 0
			}
		}
	}

	slot := m.findFreeSlot()
	panL, panR := equalPowerPan(spec.Pan)

	begin := clamp01(spec.Begin)
	end := clamp01(spec.End)
	if end <= begin {
		end = 1
	}
	frameCount := float64(len(frames) / maxInt(channels, 1))

	speed := spec.Speed
	if speed == 0 {
		speed = 1
	}

	attack := spec.Attack
	if attack <= 0 {
		attack = 0.001
	}
	release := spec.Release
	if release <= 0 {
		release = 0.05
	}

	m.voices[slot] = Voice{
		frames:     frames,
		channels:   maxInt(channels, 1),
		pos:        begin * frameCount,
		speed:      speed,
		gain:       spec.Gain,
		panL:       panL,
		panR:       panR,
		endFrame:   end * frameCount,
		cutGroup:   spec.CutGroup,
		loop:       spec.Loop,
		active:     true,
		stage:      envAttack,
		attackSec:  attack,
		releaseSec: release,
		exponential: spec.Exponential,
	}
}

func (m *Manager) findFreeSlot() int {
	for i := range m.voices {
		if !m.voices[i].active {
			return i
		}
	}
	slot := m.nextSlot
	m.nextSlot = (m.nextSlot + 1) % m.maxVoices
	return slot
}

// ProcessStereo advances every active voice by one sample (both its
// playback position and its AR envelope) and returns the summed stereo
// output. Voices past their end point (or past the end of the
// underlying sample, for non-looping playback) are retired immediately;
// voices whose release stage has fully decayed are retired once their
// envelope reaches zero.
func (m *Manager) ProcessStereo() (left, right float64) {
	for i := range m.voices {
		v := &m.voices[i]
		if !v.active {
			continue
		}

		frameIdx := int(v.pos)
		if v.speed >= 0 {
			if v.pos >= v.endFrame {
				if v.loop {
					v.pos = 0
				} else {
					v.active = false
					continue
				}
			}
		} else if v.pos < 0 {
			if v.loop {
				v.pos = v.endFrame
			} else {
				v.active = false
				continue
			}
		}

		v.advanceEnvelope(m.sampleRate)
		if v.stage == envRelease && v.level <= 0 {
			v.active = false
			continue
		}

		s := sampleAt(v.frames, v.channels, frameIdx)
		env := v.level
		left += s * v.gain * v.panL * env
		right += s * v.gain * v.panR * env

		v.pos += v.speed
	}
	return left, right
}

// advanceEnvelope steps the voice's AR state machine by one sample.
func (v *Voice) advanceEnvelope(sampleRate float64) {
	dt := 1.0 / sampleRate
	switch v.stage {
	case envAttack:
		if v.attackSec <= 0 {
			v.level = 1
			v.stage = envSustain
			v.progress = 0
			return
		}
		v.progress += dt / v.attackSec
		if v.progress >= 1 {
			v.level = 1
			v.stage = envSustain
			v.progress = 0
			return
		}
		v.level = curve(v.progress, v.exponential)
	case envSustain:
		v.level = 1
	case envRelease:
		if v.releaseSec <= 0 {
			v.level = 0
			return
		}
		v.progress += dt / v.releaseSec
		if v.progress >= 1 {
			v.level = 0
			return
		}
		v.level = v.releaseFrom * (1 - curve(v.progress, v.exponential))
	}
}

// curve maps progress (0..1) to an eased 0..1 ramp, linear or
// exponential depending on the `envType`/`ar` modifier.
func curve(progress float64, exponential bool) float64 {
	if progress <= 0 {
		return 0
	}
	if progress >= 1 {
		return 1
	}
	if !exponential {
		return progress
	}
	const floor = 1e-3
	return (math.Pow(1/floor, progress) - 1) / (1/floor - 1)
}

// ActiveCount reports how many voices are currently sounding, including
// ones mid-release after a cut-group steal, useful for diagnostics/
// metering.
func (m *Manager) ActiveCount() int {
	n := 0
	for i := range m.voices {
		if m.voices[i].active {
			n++
		}
	}
	return n
}

// ActiveVoiceCount reports how many voices are actively driving a cut
// group slot — i.e. excluding ones a steal has already marked for
// retirement and put into their fast release. This is the count spec.md
// §4.4's invariant "at most one active voice per positive cut-group at
// any instant" is stated against; a stolen voice's brief fade-out is
// retiring, not active.
func (m *Manager) ActiveVoiceCount() int {
	n := 0
	for i := range m.voices {
		if m.voices[i].active && m.voices[i].stage != envRelease {
			n++
		}
	}
	return n
}

func sampleAt(frames []float32, channels, frameIdx int) float64 {
	base := frameIdx * channels
	if base < 0 || base >= len(frames) {
		return 0
	}
	if channels == 1 {
		return float64(frames[base])
	}
	sum := 0.0
	for c := 0; c < channels; c++ {
		if base+c < len(frames) {
			sum += float64(frames[base+c])
		}
	}
	return sum / float64(channels)
}

// equalPowerPan implements the constant-power panning law: pan in
// [-1,1] maps to a quarter-turn of a sine/cosine crossfade so summed
// power stays constant across the stereo field (spec.md §4.4
// "equal-power panning").
func equalPowerPan(pan float64) (left, right float64) {
	pan = math.Max(-1, math.Min(1, pan))
	theta := (pan + 1) * math.Pi / 4
	return math.Cos(theta), math.Sin(theta)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
