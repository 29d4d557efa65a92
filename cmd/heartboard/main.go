// Package main is the entry point for the heartboard CLI.
//
// Heartboard can be run either as a library (SDK) or as a standalone binary
// with optional YAML configuration. This CLI provides the standalone binary.
//
// Usage:
//
//	heartboard serve                      # Start with defaults on :8080
//	heartboard serve -c heartboard.yaml   # Start with a config file
//	heartboard validate -c heartboard.yaml
//	heartboard version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "heartboard",
	Short: "A small heart-rate ingestion service",
	Long: `Heartboard ingests heart-rate readings per named user, keeps a bounded
history of each user in memory, and serves it over a JSON API.

Quick start:
  1. Run: heartboard serve
  2. Submit a reading:
       curl -X POST localhost:8080/api/heart-rate \
         -H 'Content-Type: application/json' \
         -d '{"name":"alice","heartRate":72}'
  3. Open http://localhost:8080 in your browser

Readings can also be pulled from upstream sensors listed in a config file:
  sources:
    - name: bedside-3
      user: alice
      url: http://sensor.local/reading
      extractor: json:data.bpm`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this heartboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("heartboard %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
