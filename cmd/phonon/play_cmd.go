package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/phonon-lang/phonon/cmd/phonon/internal/compile"
	"github.com/phonon-lang/phonon/cmd/phonon/internal/midiinput"
	"github.com/phonon-lang/phonon/cmd/phonon/internal/oscserver"
	"github.com/phonon-lang/phonon/midi"
	"github.com/phonon-lang/phonon/render"
)

func newPlayCmd() *cobra.Command {
	var oscAddr string
	var midiPort string

	cmd := &cobra.Command{
		Use:   "play <input.ph>",
		Short: "Play a program live through the default audio device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playFile(args[0], oscAddr, midiPort)
		},
	}
	cmd.Flags().StringVar(&oscAddr, "osc", "", "listen for OSC triggers on this address, e.g. :57120 (disabled if empty)")
	cmd.Flags().StringVar(&midiPort, "midi", "", "MIDI input port name substring to bind, or \"-\" for the first available port (disabled if empty)")
	return cmd
}

// playFile compiles path and streams the resulting graph through the
// default audio device, optionally exposing an OSC trigger server and a
// live MIDI input bridge alongside it (spec.md §6.2-§6.4). It blocks
// until interrupted with Ctrl-C.
func playFile(path, oscAddr, midiPort string) error {
	log := logger()

	var queue *midi.Queue
	if midiPort != "" {
		queue = midi.NewQueue(256)
	}

	opts := compile.Options{
		SampleRate: flagSampleRate,
		SamplesDir: flagSamplesDir,
		MidiQueue:  queue,
		Logger:     log,
	}

	g, err := compile.File(path, opts)
	if err != nil {
		return err
	}
	eng := render.NewEngine(g)
	printPlaying("playing", path)

	if midiPort != "" {
		name := midiPort
		if name == "-" {
			name = ""
		}
		listener, err := midiinput.Open(name, queue)
		if err != nil {
			log.Warn("midi input disabled", "err", err)
		} else {
			defer listener.Close()
			log.Info("midi input bound", "port", midiPort)
		}
	}

	if oscAddr != "" {
		h := &oscserver.Handler{Engine: eng, CompileOpt: opts, Logger: log}
		go func() {
			if err := h.Serve(oscAddr); err != nil {
				log.Error("osc server stopped", "err", err)
			}
		}()
	}

	return runEngineLive(eng, log)
}

// runEngineLive opens the default audio device and pulls blocks from
// eng until SIGINT, mirroring the teacher's modplay stream-open/
// signal-handler/stream-close shape.
func runEngineLive(eng *render.Engine, log *log.Logger) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("play: initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	left := make([]float32, render.BlockSize)
	right := make([]float32, render.BlockSize)

	streamCB := func(out [][]float32) {
		eng.ProcessBlock(left, right)
		for i := range out[0] {
			out[0][i] = left[i]
			out[1][i] = right[i]
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, flagSampleRate, render.BlockSize, streamCB)
	if err != nil {
		return fmt.Errorf("play: opening audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("play: starting audio stream: %w", err)
	}
	defer stream.Stop()

	log.Info("playing, press Ctrl-C to stop")

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	<-sigch
	return nil
}
