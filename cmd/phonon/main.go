// Command phonon is the CLI front end for the Phonon live-coding system
// (spec.md §6.2): it compiles a .ph program onto a signal graph and
// either renders it to a WAV file, plays it live through the default
// audio device, or watches the source file and hot-swaps the graph on
// every save.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagSampleRate float64
	flagSamplesDir string
	flagVerbose    bool
)

func main() {
	root := &cobra.Command{
		Use:           "phonon",
		Short:         "Live-codable modular synthesis and pattern system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Float64Var(&flagSampleRate, "sample-rate", 44100, "audio sample rate in Hz")
	root.PersistentFlags().StringVar(&flagSamplesDir, "samples", "", "directory of sample-name subfolders (bd/, sn/, ...)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newPlayCmd())
	root.AddCommand(newWatchCmd())

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func logger() *log.Logger {
	l := log.Default()
	if flagVerbose {
		l.SetLevel(log.DebugLevel)
	}
	return l
}
