package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chip-tool",
	Short: "Simulated chip-tool interactive server",
	Long: `chip-tool stands in for the Matter chip-tool when it runs as an interactive
WebSocket server. It accepts the same JSON command envelopes a YAML test
runner sends and answers with canned, chip-tool shaped responses.

Supported commands:
  delay wait-for-commissionee
  onoff read
  onoff write`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
