// Package cmd contains the powctl commands.
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "powctl",
	Short:        "Proof of work tooling for the miner",
	SilenceUsage: true,
}

// Execute runs the command selected on the command line.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// parseBits reads compact bits written in hex, with or without 0x.
func parseBits(s string) (uint32, error) {
	bits, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid bits %q: %w", s, err)
	}

	return uint32(bits), nil
}
