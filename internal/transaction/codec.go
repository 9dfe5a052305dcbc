package transaction

import (
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrDeserialization  = errors.New("failed to deserialize transaction")
	ErrMissingSignature = errors.New("transaction is missing required signatures")
)

// DeserializationError reports why wire input could not be parsed.
type DeserializationError struct {
	Reason string
}

func (e *DeserializationError) Error() string {
	return ErrDeserialization.Error() + ": " + e.Reason
}

func (e *DeserializationError) Unwrap() error {
	return ErrDeserialization
}

func malformed(format string, args ...any) error {
	return &DeserializationError{Reason: fmt.Sprintf(format, args...)}
}

// SerializeOptions controls re-encoding.
type SerializeOptions struct {
	// RequireAllSignatures rejects transactions that still have empty signature slots.
	RequireAllSignatures bool
}

// Deserialize decodes a base64 wire transaction and checks that it is a
// structurally sound legacy transaction.
func Deserialize(wire string) (*Transaction, error) {
	if wire == "" {
		return nil, malformed("empty input")
	}

	raw, err := base64.StdEncoding.DecodeString(wire)
	if err != nil {
		return nil, malformed("invalid base64: %v", err)
	}
	if len(raw) == 0 {
		return nil, malformed("empty input")
	}

	return FromBytes(raw)
}

// FromBytes parses raw wire bytes.
func FromBytes(raw []byte) (*Transaction, error) {
	decoder := bin.NewBinDecoder(raw)

	var tx solana.Transaction
	if err := tx.UnmarshalWithDecoder(decoder); err != nil {
		return nil, malformed("%v", err)
	}
	if rem := decoder.Remaining(); rem > 0 {
		return nil, malformed("%d trailing bytes after transaction", rem)
	}

	if err := validate(&tx); err != nil {
		return nil, err
	}

	out, err := resolve(&tx)
	if err != nil {
		return nil, malformed("%v", err)
	}
	return out, nil
}

// Serialize encodes tx as base64.
func Serialize(tx *Transaction, opts SerializeOptions) (string, error) {
	if opts.RequireAllSignatures {
		for _, pair := range tx.Signatures {
			if pair.Signature.IsZero() {
				return "", fmt.Errorf("%w: %s", ErrMissingSignature, pair.PublicKey)
			}
		}
	}

	out, err := tx.wire.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encoding transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func validate(tx *solana.Transaction) error {
	msg := &tx.Message

	if msg.IsVersioned() {
		return malformed("versioned transactions are not supported")
	}

	h := msg.Header
	numKeys := len(msg.AccountKeys)
	if numKeys == 0 {
		return malformed("message has no account keys")
	}
	if h.NumRequiredSignatures == 0 {
		return malformed("message requires no signatures")
	}
	if int(h.NumRequiredSignatures) > numKeys {
		return malformed("header requires %d signatures but message has %d account keys", h.NumRequiredSignatures, numKeys)
	}
	if h.NumReadonlySignedAccounts > h.NumRequiredSignatures {
		return malformed("header marks %d readonly signers out of %d signers", h.NumReadonlySignedAccounts, h.NumRequiredSignatures)
	}
	if int(h.NumReadonlyUnsignedAccounts) > numKeys-int(h.NumRequiredSignatures) {
		return malformed("header marks %d readonly unsigned accounts out of %d", h.NumReadonlyUnsignedAccounts, numKeys-int(h.NumRequiredSignatures))
	}
	if h.NumReadonlySignedAccounts == h.NumRequiredSignatures {
		return malformed("fee payer must be a writable signer")
	}

	if len(tx.Signatures) != int(h.NumRequiredSignatures) {
		return malformed("expected %d signatures, got %d", h.NumRequiredSignatures, len(tx.Signatures))
	}

	seen := make(map[solana.PublicKey]struct{}, numKeys)
	for _, key := range msg.AccountKeys {
		if _, dup := seen[key]; dup {
			return malformed("duplicate account key %s", key)
		}
		seen[key] = struct{}{}
	}

	for i, ci := range msg.Instructions {
		if int(ci.ProgramIDIndex) >= numKeys {
			return malformed("instruction %d: program index %d out of range", i, ci.ProgramIDIndex)
		}
		for _, idx := range ci.Accounts {
			if int(idx) >= numKeys {
				return malformed("instruction %d: account index %d out of range", i, idx)
			}
		}
	}
	return nil
}
