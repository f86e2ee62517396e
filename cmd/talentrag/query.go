package main

import (
	"github.com/spf13/cobra"
)

// NewQueryCmd runs the interactive loop against an index built by a previous ingest.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [query]",
		Short: "Answer queries against an existing index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.attach(cmd.Context()); err != nil {
				return err
			}
			return a.serve(cmd, initialQuery(args))
		},
	}
	return cmd
}
