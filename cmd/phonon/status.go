package main

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	statusLabel = color.New(color.FgCyan, color.Bold).SprintFunc()
	statusPath  = color.New(color.FgYellow).SprintFunc()
)

// printPlaying prints a colored one-line banner naming the program
// being played, matching the corpus's habit of using fatih/color for
// terminal status rather than plain fmt.Println.
func printPlaying(verb, path string) {
	fmt.Printf("%s %s\n", statusLabel(verb), statusPath(path))
}
