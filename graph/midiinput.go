package graph

import (
	"math"

	"github.com/phonon-lang/phonon/midi"
)

// midiInputState tracks the most recent values a MidiInput node has
// derived from the shared midi.Queue: the last held note (as a
// frequency), gate (1 while any note on ChannelFilter is held, else 0),
// and velocity (0..1).
type midiInputState struct {
	queue      *midi.Queue
	heldNotes  []int
	freq, gate, velocity float32
}

// NewMidiInput builds a node that drains a shared midi.Queue once per
// sample and exposes the live note/gate/velocity as a Signal-friendly
// 3-in-1 node (spec.md §4.5 "MidiInput"). channelFilter < 0 accepts all
// channels.
func NewMidiInput(queue *midi.Queue, channelFilter int) SignalNode {
	return SignalNode{Kind: KindMidiInput, ChannelFilter: channelFilter, midiState: midiInputState{queue: queue}}
}

func (g *Graph) processMidiInput(n *SignalNode) float32 {
	st := &n.midiState
	if st.queue == nil {
		return st.freq
	}
	for _, ev := range st.queue.DrainAll() {
		if n.ChannelFilter >= 0 && ev.Channel != n.ChannelFilter {
			continue
		}
		switch ev.Kind {
		case midi.NoteOn:
			if ev.Velocity == 0 {
				st.releaseNote(ev.Note)
				continue
			}
			st.heldNotes = append(st.heldNotes, ev.Note)
			st.freq = noteNumberToHz(ev.Note)
			st.velocity = float32(ev.Velocity) / 127
			st.gate = 1
		case midi.NoteOff:
			st.releaseNote(ev.Note)
		}
	}
	return st.freq
}

func (st *midiInputState) releaseNote(note int) {
	for i, n := range st.heldNotes {
		if n == note {
			st.heldNotes = append(st.heldNotes[:i], st.heldNotes[i+1:]...)
			break
		}
	}
	if len(st.heldNotes) == 0 {
		st.gate = 0
		return
	}
	st.freq = noteNumberToHz(st.heldNotes[len(st.heldNotes)-1])
}

// MidiGate and MidiVelocity expose the auxiliary outputs of a MidiInput
// node: one node tracks frequency, gate and velocity together, and these
// accessors read node id's current gate and velocity. Each MidiInput node
// drains the Queue it reads, so events taken by one node are not seen by
// another node on the same Queue.
func (g *Graph) MidiGate(id NodeId) float32     { return g.nodes[id].midiState.gate }
func (g *Graph) MidiVelocity(id NodeId) float32 { return g.nodes[id].midiState.velocity }

func noteNumberToHz(note int) float32 {
	return float32(440 * math.Pow(2, (float64(note)-69)/12))
}
