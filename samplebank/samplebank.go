// Package samplebank loads WAV sample files from disk into the
// in-memory float32 frame buffers the graph and voice packages consume.
// It uses the go-audio ecosystem's wav decoder rather than hand-rolling
// one (spec.md SPEC_FULL.md §5 domain stack), unlike the root-level wav
// package, which is a writer-only format the teacher wrote because no
// encoder in the ecosystem suited its streaming constraints.
package samplebank

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/charmbracelet/log"
)

// entry holds every indexed variant of a sample name (`bd:0`, `bd:1`, ...).
type entry struct {
	variants []sampleData
}

type sampleData struct {
	frames     []float32
	channels   int
	sampleRate float64
}

// Bank is a directory-backed sample bank: one subdirectory per sample
// name, files within it sorted by filename to assign stable indices
// (spec.md §4.3 "n selects among the files in a sample folder").
type Bank struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *log.Logger
}

// NewBank returns an empty bank; call Load to populate it from disk.
func NewBank(logger *log.Logger) *Bank {
	if logger == nil {
		logger = log.Default()
	}
	return &Bank{entries: make(map[string]*entry), logger: logger}
}

// Load walks root, treating each immediate subdirectory as a sample
// name and every .wav file within it as an indexed variant.
func (b *Bank) Load(root string) error {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("samplebank: reading %s: %w", root, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		name := de.Name()
		files, err := listWavFiles(filepath.Join(root, name))
		if err != nil {
			b.logger.Warn("samplebank: skipping directory", "name", name, "err", err)
			continue
		}
		e := &entry{}
		for _, f := range files {
			data, err := decodeWav(f)
			if err != nil {
				b.logger.Warn("samplebank: skipping file", "path", f, "err", err)
				continue
			}
			e.variants = append(e.variants, data)
		}
		if len(e.variants) > 0 {
			b.entries[name] = e
			b.logger.Debug("samplebank: loaded", "name", name, "variants", len(e.variants))
		}
	}
	return nil
}

// Lookup implements graph.SampleBank / voice.SampleSource.
func (b *Bank) Lookup(name string, index int) ([]float32, int, float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[name]
	if !ok || len(e.variants) == 0 {
		return nil, 0, 0, false
	}
	if index < 0 || index >= len(e.variants) {
		index = index % len(e.variants)
		if index < 0 {
			index += len(e.variants)
		}
	}
	v := e.variants[index]
	return v.frames, v.channels, v.sampleRate, true
}

func listWavFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func decodeWav(path string) (sampleData, error) {
	f, err := os.Open(path)
	if err != nil {
		return sampleData{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return sampleData{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return sampleData{
		frames:     intBufferToFloat32(buf),
		channels:   buf.Format.NumChannels,
		sampleRate: float64(buf.Format.SampleRate),
	}, nil
}

func intBufferToFloat32(buf *audio.IntBuffer) []float32 {
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	maxVal := float32(int(1) << (bitDepth - 1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / maxVal
	}
	return out
}
