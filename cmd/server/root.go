package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:   "oracle",
		Short: "Co-signing oracle for daily check-in transactions",
		Long: `oracle verifies user-signed check-in transactions and adds the
verifier signature when the transaction is safe to co-sign.
Without a subcommand it runs the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newKeygenCmd())
	return root
}
