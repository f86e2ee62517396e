package main

import (
	"github.com/spf13/cobra"
)

// NewIngestCmd loads, embeds and indexes the corpus, then exits.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the vector index from the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.ingest(cmd.Context(), cmd.OutOrStdout())
		},
	}
	return cmd
}
