package main

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/phonon-lang/phonon/cmd/phonon/internal/compile"
	"github.com/phonon-lang/phonon/cmd/phonon/internal/midiinput"
	"github.com/phonon-lang/phonon/cmd/phonon/internal/oscserver"
	"github.com/phonon-lang/phonon/midi"
	"github.com/phonon-lang/phonon/render"
)

func newWatchCmd() *cobra.Command {
	var oscAddr string
	var midiPort string

	cmd := &cobra.Command{
		Use:   "watch <input.ph>",
		Short: "Play a program live, hot-swapping the graph whenever the file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchFile(args[0], oscAddr, midiPort)
		},
	}
	cmd.Flags().StringVar(&oscAddr, "osc", "", "listen for OSC triggers on this address, e.g. :57120 (disabled if empty)")
	cmd.Flags().StringVar(&midiPort, "midi", "", "MIDI input port name substring to bind, or \"-\" for the first available port (disabled if empty)")
	return cmd
}

// watchFile compiles path, starts live playback the same way `phonon
// play` does, and additionally watches path for writes, recompiling
// and hot-swapping the running engine's graph on every save (spec.md
// §4.5 "live-reload/swap", §6.2 "the file is watched; on save, the
// graph is recompiled and hot-swapped").
func watchFile(path, oscAddr, midiPort string) error {
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
	printPlaying("watching", path)

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

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				newGraph, err := compile.File(path, opts)
				if err != nil {
					log.Warn("reload failed, keeping running program", "err", err)
					continue
				}
				eng.Swap(newGraph)
				log.Info("reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watcher error", "err", err)
			}
		}
	}()

	return runEngineLive(eng, log)
}
