// Package midiinput bridges a real MIDI controller into the shared
// midi.Queue that graph.MidiInput nodes read from (spec.md §6.4). It
// mirrors the device-lookup-by-name style of the rest of the corpus's
// MIDI connectors but listens instead of sending.
package midiinput

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	phmidi "github.com/phonon-lang/phonon/midi"
)

// Listener owns an open input port and stops it on Close.
type Listener struct {
	stopFn func()
}

// Open finds an input port whose name contains name (case-insensitive;
// empty name picks the first available port) and starts forwarding its
// messages onto queue. Call Close to release the port.
func Open(name string, queue *phmidi.Queue) (*Listener, error) {
	in, err := findInPort(name)
	if err != nil {
		return nil, err
	}

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		handleMessage(msg, queue)
	})
	if err != nil {
		return nil, fmt.Errorf("midiinput: listening on %s: %w", in, err)
	}
	return &Listener{stopFn: stop}, nil
}

// Close stops the listener and releases the underlying port.
func (l *Listener) Close() {
	if l != nil && l.stopFn != nil {
		l.stopFn()
	}
}

func findInPort(name string) (drivers.In, error) {
	if name == "" {
		ins := midi.GetInPorts()
		if len(ins) == 0 {
			return nil, fmt.Errorf("midiinput: no MIDI input ports available")
		}
		return ins[0], nil
	}
	for _, in := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(name)) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("midiinput: no input port matching %q", name)
}

func handleMessage(msg midi.Message, queue *phmidi.Queue) {
	var ch, note, vel, ctrl, val uint8
	var bendRel, bendAbs int16
	switch {
	case msg.GetNoteOn(&ch, &note, &vel):
		queue.Push(phmidi.Event{
			Kind:     phmidi.NoteOn,
			Channel:  int(ch),
			Note:     int(note),
			Velocity: int(vel),
		})
	case msg.GetNoteOff(&ch, &note, &vel):
		queue.Push(phmidi.Event{
			Kind:    phmidi.NoteOff,
			Channel: int(ch),
			Note:    int(note),
		})
	case msg.GetControlChange(&ch, &ctrl, &val):
		queue.Push(phmidi.Event{
			Kind:    phmidi.ControlChange,
			Channel: int(ch),
			Control: int(ctrl),
			Value:   int(val),
		})
	case msg.GetPitchBend(&ch, &bendRel, &bendAbs):
		queue.Push(phmidi.Event{
			Kind:    phmidi.PitchBend,
			Channel: int(ch),
			Value:   int(bendAbs),
		})
	}
}
