package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phonon-lang/phonon/cmd/phonon/internal/compile"
	"github.com/phonon-lang/phonon/render"
)

func newRenderCmd() *cobra.Command {
	var duration float64

	cmd := &cobra.Command{
		Use:   "render <input.ph> <output.wav>",
		Short: "Render a program to a WAV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := compile.File(args[0], compile.Options{
				SampleRate: flagSampleRate,
				SamplesDir: flagSamplesDir,
				Logger:     logger(),
			})
			if err != nil {
				return err
			}
			eng := render.NewEngine(g)
			if err := render.RenderToFile(eng, flagSampleRate, duration, args[1]); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%.2fs @ %gHz)\n", args[1], duration, flagSampleRate)
			return nil
		},
	}
	cmd.Flags().Float64Var(&duration, "duration", 1, "render length in seconds")
	return cmd
}
