// Package checkin co-signs check-in transactions that pass verification.
package checkin

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// SuccessMessage accompanies every co-signed transaction.
const SuccessMessage = "Transaction co-signed successfully. Submit to Solana to complete check-in."

// Outcome is a successful check-in.
type Outcome struct {
	SignedTx string
	Message  string
}

// Status reports which parts of the configuration are present.
type Status struct {
	VerifierConfigured  bool
	ProgramIDConfigured bool
}

// Service defines the check-in co-signing operations
type Service interface {
	// CheckIn validates and co-signs a user-signed, base64 wire transaction.
	// Returns the re-encoded transaction carrying the verifier signature.
	CheckIn(ctx context.Context, userPublicKey, serializedTx string) (*Outcome, error)

	// VerifierPublicKey returns the co-signing key, if one is configured.
	VerifierPublicKey() (solana.PublicKey, bool)

	Status() Status
}
