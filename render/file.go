package render

import (
	"fmt"
	"os"

	"github.com/phonon-lang/phonon/wav"
)

// RenderToFile renders `seconds` of audio straight to a 16-bit stereo
// WAV file, in BlockSize chunks (spec.md §6.2 "phonon render"). This is
// the offline path used by the CLI's render subcommand and by
// end-to-end tests that assert on rendered output.
func RenderToFile(e *Engine, sampleRate float64, seconds float64, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: creating %s: %w", path, err)
	}
	defer f.Close()

	w, err := wav.NewWriter(f, int(sampleRate))
	if err != nil {
		return fmt.Errorf("render: writing header: %w", err)
	}

	left := make([]float32, 0, BlockSize)
	right := make([]float32, 0, BlockSize)
	var writeErr error
	flush := func() {
		if len(left) == 0 || writeErr != nil {
			return
		}
		writeErr = w.WriteFrameFloat32(left, right)
		left = left[:0]
		right = right[:0]
	}

	err = RenderSeconds(e, sampleRate, seconds, func(l, r float32) {
		left = append(left, l)
		right = append(right, r)
		if len(left) == cap(left) {
			flush()
		}
	})
	if err != nil {
		return err
	}
	flush()
	if writeErr != nil {
		return fmt.Errorf("render: writing samples: %w", writeErr)
	}

	if _, err := w.Finish(); err != nil {
		return fmt.Errorf("render: finishing header: %w", err)
	}
	return nil
}
