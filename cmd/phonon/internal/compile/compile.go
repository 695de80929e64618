// Package compile turns a .ph source file on disk into a ready-to-play
// graph.Graph, the one piece of logic every phonon subcommand (render,
// play, watch) shares.
package compile

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/phonon-lang/phonon/graph"
	"github.com/phonon-lang/phonon/lang"
	"github.com/phonon-lang/phonon/midi"
	"github.com/phonon-lang/phonon/samplebank"
)

// Options bundles the environment a compiled program needs beyond its
// own source text.
type Options struct {
	SampleRate float64
	SamplesDir string // root directory of sample-name subfolders; "" disables sample loading
	MidiQueue  *midi.Queue
	Logger     *log.Logger
}

// File reads path, loads its sample bank (if any), parses and lowers
// it onto a fresh graph.Graph (spec.md §6.2 "a single .ph file is a
// full program").
func File(path string, opts Options) (*graph.Graph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compile: reading %s: %w", path, err)
	}
	return Source(string(src), opts)
}

// Source compiles program text directly, used by the render/play/watch
// commands after reading a file and by OSC's /eval handler, which
// replaces the running program with a string rather than a path
// (spec.md §6.3 "/eval <code-string>").
func Source(src string, opts Options) (*graph.Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	var bank graph.SampleBank
	if opts.SamplesDir != "" {
		b := samplebank.NewBank(logger)
		if err := b.Load(opts.SamplesDir); err != nil {
			logger.Warn("compile: sample bank not fully loaded", "err", err)
		}
		bank = b
	}

	stmts, err := lang.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	g := graph.NewGraph(opts.SampleRate, 1)
	lw := lang.NewLowerer(g, bank, opts.MidiQueue)
	if err := lw.Lower(stmts); err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	return g, nil
}
