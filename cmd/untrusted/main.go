package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "untrusted",
		Short:        "Inspect and parse untrusted input",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newIniCmd())

	return rootCmd
}

// readSource reads a whole file, or stdin when name is "-" or empty.
func readSource(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
