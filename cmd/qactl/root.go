package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qactl",
		Short:         "Operator tooling for the question cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSchemaCmd(), newInspectCmd())
	return root
}
