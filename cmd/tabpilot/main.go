// Package main is the entry point of the tabpilot CLI, a terminal host for
// the browser-driving agent.
package main

import (
	"fmt"
	"os"

	"github.com/entrhq/tabpilot/cmd/tabpilot/commands"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	rootCmd := commands.NewRootCmd(version)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
