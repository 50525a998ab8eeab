package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pior/untrusted"
	"github.com/pior/untrusted/display"
)

func newViewCmd() *cobra.Command {
	var (
		offset int
		length int
		text   bool
		units  int
	)

	cmd := &cobra.Command{
		Use:   "view FILE",
		Short: "Show a bounded preview of a byte range",
		Long: `Show a bounded preview of FILE with a caret line under the byte range
starting at --offset, followed by the range and its fingerprint.

Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readSource(cmd, args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			in := untrusted.NewInput(data).Bound()
			sub, ok := in.Sub(untrusted.Span{Start: offset, Len: length})
			if !ok {
				return fmt.Errorf("range %d+%d is outside the input (%s)", offset, length, display.ByteCount(in.Len()))
			}

			p := display.Window(data, offset, length, display.Options{MaxUnits: units, DecodeText: text})
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, p.String())
			fmt.Fprintf(out, "span: %s, fingerprint: %016x\n", sub.Span(), sub.Fingerprint())
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "start of the range")
	cmd.Flags().IntVar(&length, "len", 1, "length of the range")
	cmd.Flags().BoolVar(&text, "text", false, "render valid UTF-8 as characters")
	cmd.Flags().IntVar(&units, "units", display.DefaultMaxUnits, "maximum number of units shown")

	return cmd
}
