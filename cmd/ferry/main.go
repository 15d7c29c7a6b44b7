package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ferry/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Ferry type export toolchain",
	Long:  `Ferry validates host types against the export boundary and emits binary type descriptors`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves the persistent --color flag against the stream the
// diagnostics go to.
func colorEnabled(cmd *cobra.Command) bool {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false
	}
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stderr)
	}
}
