package keys

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// IsValidPublicKey reports whether candidate decodes from base-58 to exactly
// 32 bytes. It is safe to call on arbitrary untrusted input.
func IsValidPublicKey(candidate string) bool {
	if candidate == "" {
		return false
	}
	raw, err := base58.Decode(candidate)
	if err != nil {
		return false
	}
	return len(raw) == PublicKeySize
}

// ParsePublicKey converts validated text into a typed public key.
func ParsePublicKey(candidate string) (solana.PublicKey, error) {
	if !IsValidPublicKey(candidate) {
		return solana.PublicKey{}, fmt.Errorf("invalid public key %q", candidate)
	}
	return solana.PublicKeyFromBase58(candidate)
}
