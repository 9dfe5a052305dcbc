package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solana-clockin/oracle/backend/internal/config"
	"github.com/solana-clockin/oracle/backend/internal/keys"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new verifier keypair",
		Long: `keygen prints a fresh verifier keypair. Put the secret into the
environment of the oracle and give the public key to the check-in program.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := keys.Generate()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Public key:", kp.PublicKey())
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Add this line to your .env file and keep it secret:")
			fmt.Fprintf(out, "%s=%s\n", config.EnvVerifierPrivateKey, kp.SecretBase58())
			return nil
		},
	}
}
