package keys

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const (
	SecretKeySize = ed25519.PrivateKeySize
	PublicKeySize = solana.PublicKeyLength
)

var (
	ErrConfiguration   = errors.New("verifier keypair misconfigured")
	ErrNoPrivateKey    = errors.New("no private key configured")
	ErrSignatureFailed = errors.New("signature generation failed")
	ErrNotASigner      = errors.New("verifier is not a required signer of the transaction")
)

// Keypair is the verifier signing identity. It is built once at startup and
// is read-only afterwards, so it is safe for concurrent use.
type Keypair struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// LoadVerifierKeypair decodes a base-58, 64-byte ed25519 secret. Every failure
// wraps ErrConfiguration; the secret itself never appears in the error.
func LoadVerifierKeypair(secret string) (*Keypair, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: private key is not set", ErrConfiguration)
	}

	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: private key is not valid base-58", ErrConfiguration)
	}

	return NewKeypair(raw)
}

// NewKeypair builds a Keypair from raw secret bytes (seed followed by public key).
func NewKeypair(secret []byte) (*Keypair, error) {
	if len(secret) != SecretKeySize {
		return nil, fmt.Errorf("%w: invalid private key length: expected %d bytes, got %d",
			ErrConfiguration, SecretKeySize, len(secret))
	}

	// The trailing half must be the public key of the seed, otherwise the
	// signatures would not verify against the advertised public key.
	derived := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public key half does not match the private seed", ErrConfiguration)
	}

	priv := make(solana.PrivateKey, SecretKeySize)
	copy(priv, secret)

	return &Keypair{
		privateKey: priv,
		publicKey:  solana.PublicKeyFromBytes(secret[ed25519.SeedSize:]),
	}, nil
}

// Generate creates a new random Keypair.
func Generate() (*Keypair, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}
	return NewKeypair(priv)
}

// PublicKey returns the verifier public key.
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.publicKey
}

// SecretBase58 returns the base-58 encoded secret. Only the keygen command prints it.
func (k *Keypair) SecretBase58() string {
	return base58.Encode(k.privateKey)
}

// String never includes the secret.
func (k *Keypair) String() string {
	return "Keypair(" + k.publicKey.String() + ")"
}

// Sign creates an ed25519 signature over message.
func (k *Keypair) Sign(message []byte) (solana.Signature, error) {
	if k == nil || len(k.privateKey) == 0 {
		return solana.Signature{}, ErrNoPrivateKey
	}
	sig, err := k.privateKey.Sign(message)
	if err != nil {
		return solana.Signature{}, ErrSignatureFailed
	}
	return sig, nil
}

// PartialSign writes the verifier signature into its slot of tx. Signatures
// of other signers and the message are left untouched.
func (k *Keypair) PartialSign(tx *solana.Transaction) error {
	if k == nil || len(k.privateKey) == 0 {
		return ErrNoPrivateKey
	}
	if !tx.Message.IsSigner(k.publicKey) {
		return ErrNotASigner
	}

	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(k.publicKey) {
			return &k.privateKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureFailed, err)
	}
	return nil
}
