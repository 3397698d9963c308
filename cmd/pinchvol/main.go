// Package main is the entry point for the pinchvol CLI.
//
// Usage:
//
//	pinchvol [flags] <command> [args]
//
// Commands:
//
//	run         - Control the output volume by pinching at the webcam
//	set-volume  - Set the output volume once through the configured sink
//	sessions    - List recorded sessions
//	config      - Print the effective configuration
//	version     - Show version information
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ayusman/pinchvol/cmd/pinchvol/commands"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
