package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBank struct {
	frames []float32
}

func (f *fakeBank) Lookup(name string, index int) ([]float32, int, float64, bool) {
	if name == "missing" {
		return nil, 0, 0, false
	}
	return f.frames, 1, 44100, true
}

func TestTriggerAndDrainMono(t *testing.T) {
	bank := &fakeBank{frames: []float32{1, 1, 1, 1}}
	m := NewManager(bank, 4, 44100)
	m.Trigger(TriggerSpec{SampleName: "bd", Gain: 1, Pan: 0, Speed: 1, End: 1})

	l, r := m.ProcessStereo()
	assert.InDelta(t, l, r, 1e-9)
	assert.Greater(t, l, 0.0)
}

func TestUnknownSampleIsNoOp(t *testing.T) {
	bank := &fakeBank{frames: []float32{1, 1}}
	m := NewManager(bank, 4, 44100)
	m.Trigger(TriggerSpec{SampleName: "missing"})
	l, r := m.ProcessStereo()
	assert.Equal(t, 0.0, l)
	assert.Equal(t, 0.0, r)
}

// TestCutGroupStealsVoice pins spec.md §4.4's cut-group steal: the
// stolen voice is not silenced instantly, it is retargeted to a fast
// (5 ms) release and keeps sounding until that release completes, so
// both voices are briefly active together.
func TestCutGroupStealsVoice(t *testing.T) {
	bank := &fakeBank{frames: make([]float32, 2000)}
	for i := range bank.frames {
		bank.frames[i] = 1
	}
	m := NewManager(bank, 4, 44100)
	m.Trigger(TriggerSpec{SampleName: "hh", Gain: 1, Speed: 1, End: 1, CutGroup: 1})
	assert.Equal(t, 1, m.ActiveCount())

	m.Trigger(TriggerSpec{SampleName: "hh", Gain: 1, Speed: 1, End: 1, CutGroup: 1})
	assert.Equal(t, 2, m.ActiveCount(), "stolen voice keeps sounding through its fast release")

	for i := 0; i < 300; i++ {
		m.ProcessStereo()
	}
	assert.Equal(t, 1, m.ActiveCount(), "stolen voice retires once its 5ms release completes")
}

func TestEqualPowerPanSumsToConstantPower(t *testing.T) {
	l1, r1 := equalPowerPan(-1)
	l2, r2 := equalPowerPan(1)
	assert.InDelta(t, 1.0, l1*l1+r1*r1, 1e-9)
	assert.InDelta(t, 1.0, l2*l2+r2*r2, 1e-9)
	assert.InDelta(t, 1.0, l1, 1e-9)
	assert.InDelta(t, 1.0, r2, 1e-9)
}

func TestVoiceRetiresAtEnd(t *testing.T) {
	bank := &fakeBank{frames: []float32{1}}
	m := NewManager(bank, 2, 44100)
	m.Trigger(TriggerSpec{SampleName: "bd", Gain: 1, Speed: 1, End: 1})
	m.ProcessStereo()
	m.ProcessStereo()
	assert.Equal(t, 0, m.ActiveCount())
}
