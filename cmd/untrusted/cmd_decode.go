package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pior/untrusted"
	"github.com/pior/untrusted/formats/message"
	"github.com/pior/untrusted/stream"
)

func newDecodeCmd() *cobra.Command {
	var (
		verbose    bool
		vectorized bool
		resync     bool
		maxBuffer  int
	)

	cmd := &cobra.Command{
		Use:   "decode [FILE]",
		Short: "Decode a stream of message frames",
		Long: `Decode version 1 message frames from FILE, or from stdin when FILE is
omitted or -, and print one body per line.

With --verbose, malformed frames are reported with a preview and a
backtrace. With --resync, decoding continues after a malformed frame.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				src = f
			}

			cfg := untrusted.DefaultConfig
			if verbose {
				cfg = untrusted.VerboseConfig()
			}
			cfg.Vectorized = vectorized

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			opts := stream.Options{
				Config:    cfg,
				Logger:    logger,
				MaxBuffer: maxBuffer,
			}
			if resync {
				opts.Resync = message.Resync
			}

			dec := stream.NewDecoder(src, message.Decode, opts)
			defer dec.Close()

			out := cmd.OutOrStdout()
			for m, err := range dec.All(cmd.Context()) {
				if err != nil {
					if !errors.Is(err, untrusted.ErrFatal) {
						return fmt.Errorf("decode: %w", err)
					}
					if verbose {
						fmt.Fprintf(cmd.ErrOrStderr(), "%+v", err)
					}
					if !resync {
						return fmt.Errorf("decode: %w", err)
					}
					continue
				}
				fmt.Fprintln(out, m.Body.String())
			}

			st := dec.Stats()
			logger.Info("done",
				"frames", st.Frames,
				"retries", st.Retries,
				"resyncs", st.Resyncs,
				"bytes", st.BytesRead,
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "report errors with a preview and a backtrace")
	cmd.Flags().BoolVar(&vectorized, "vectorized", false, "use the vectorized scanner")
	cmd.Flags().BoolVar(&resync, "resync", false, "skip malformed frames")
	cmd.Flags().IntVar(&maxBuffer, "max-buffer", stream.DefaultMaxBuffer, "largest frame buffered")

	return cmd
}
