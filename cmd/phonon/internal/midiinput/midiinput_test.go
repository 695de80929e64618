package midiinput

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gomidi "gitlab.com/gomidi/midi/v2"

	phmidi "github.com/phonon-lang/phonon/midi"
)

func TestHandleMessageNoteOn(t *testing.T) {
	q := phmidi.NewQueue(8)
	handleMessage(gomidi.NoteOn(2, 60, 100), q)

	events := q.DrainAll()
	assert.Len(t, events, 1)
	assert.Equal(t, phmidi.NoteOn, events[0].Kind)
	assert.Equal(t, 2, events[0].Channel)
	assert.Equal(t, 60, events[0].Note)
	assert.Equal(t, 100, events[0].Velocity)
}

func TestHandleMessageNoteOff(t *testing.T) {
	q := phmidi.NewQueue(8)
	handleMessage(gomidi.NoteOff(1, 64), q)

	events := q.DrainAll()
	assert.Len(t, events, 1)
	assert.Equal(t, phmidi.NoteOff, events[0].Kind)
	assert.Equal(t, 1, events[0].Channel)
	assert.Equal(t, 64, events[0].Note)
}

func TestHandleMessageControlChange(t *testing.T) {
	q := phmidi.NewQueue(8)
	handleMessage(gomidi.ControlChange(0, 74, 127), q)

	events := q.DrainAll()
	assert.Len(t, events, 1)
	assert.Equal(t, phmidi.ControlChange, events[0].Kind)
	assert.Equal(t, 74, events[0].Control)
	assert.Equal(t, 127, events[0].Value)
}

func TestFindInPortRejectsUnknownName(t *testing.T) {
	_, err := findInPort("a device name nothing will ever match")
	assert.Error(t, err)
}
