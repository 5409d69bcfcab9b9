// Package cmd wires the agent binary: configuration, device IO, the
// orchestration core and the terminal control surface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	headless         bool
	audioBackendName string
)

var rootCmd = &cobra.Command{
	Use:   "omniagent",
	Short: "Autonomous omnimodal desktop agent",
	Long: `omniagent runs a voice-driven agent that watches and operates a QEMU
desktop over QMP, animates an Inochi2D avatar over VMC, and keeps
long-term memories in a local vector store.

Without arguments it starts the full agent with a terminal control
surface. Press Esc for an emergency stop, Ctrl+C to quit.`,
	RunE:          runAgent,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run without the terminal UI")
	rootCmd.Flags().StringVar(&audioBackendName, "audio", "miniaudio", "audio backend: miniaudio, portaudio or none")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
