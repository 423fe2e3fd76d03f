package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/mediaconv/internal/domain"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List accepted inputs and offered outputs per media kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, kind := range domain.MediaTypes() {
				fmt.Fprintf(out, "%s\n", kind)
				fmt.Fprintf(out, "  inputs:  %s\n", strings.Join(domain.InputExtensions(kind), " "))
				fmt.Fprintf(out, "  outputs: %s (default %s)\n",
					strings.Join(domain.OutputFormats(kind), " "), domain.DefaultOutputFormat(kind))
			}
			return nil
		},
	}
}
