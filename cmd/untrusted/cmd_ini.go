package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pior/untrusted"
	"github.com/pior/untrusted/formats/ini"
)

func newIniCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ini FILE",
		Short: "Parse an INI file",
		Long: `Parse FILE as INI and print the document, or a full error report.

Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readSource(cmd, args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			doc, err := ini.Parse(untrusted.NewInput(data).WithConfig(untrusted.VerboseConfig()))
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%+v", err)
				return errors.New("invalid ini document")
			}

			out := cmd.OutOrStdout()
			for _, p := range doc.Globals {
				fmt.Fprintf(out, "%s = %s\n", p.Name, p.Value)
			}
			for _, s := range doc.Sections {
				fmt.Fprintf(out, "[%s]\n", s.Name)
				for _, p := range s.Properties {
					fmt.Fprintf(out, "%s = %s\n", p.Name, p.Value)
				}
			}
			return nil
		},
	}
}
