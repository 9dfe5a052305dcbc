package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AccountMeta is the role of one account within an instruction. The flags
// are the message-level roles of the key, the same way the runtime sees them.
type AccountMeta struct {
	PublicKey  solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMeta
	Data      []byte // opaque to the oracle
}

// SignaturePair binds a required signer to its signature slot. A zero
// Signature means the slot has not been signed yet.
type SignaturePair struct {
	PublicKey solana.PublicKey
	Signature solana.Signature
}

// Transaction is a decoded wire transaction plus a resolved, read-only view
// of its instructions.
type Transaction struct {
	Instructions    []Instruction
	RecentBlockhash solana.Hash
	FeePayer        solana.PublicKey
	Signatures      []SignaturePair

	wire *solana.Transaction
}

// Signer adds a signature for its own key to a wire transaction.
type Signer interface {
	PartialSign(tx *solana.Transaction) error
}

// Sign lets signer fill its signature slot and refreshes the view. The
// message bytes do not change.
func (t *Transaction) Sign(signer Signer) error {
	if err := signer.PartialSign(t.wire); err != nil {
		return err
	}
	t.Signatures = signaturePairs(t.wire)
	return nil
}

// MessageBytes returns the serialized message covered by every signature.
func (t *Transaction) MessageBytes() ([]byte, error) {
	out, err := t.wire.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return out, nil
}

// SignatureOf returns the signature recorded for key, if key is a required signer.
func (t *Transaction) SignatureOf(key solana.PublicKey) (solana.Signature, bool) {
	for _, pair := range t.Signatures {
		if pair.PublicKey.Equals(key) {
			return pair.Signature, true
		}
	}
	return solana.Signature{}, false
}

// resolve builds the instruction view from a structurally validated wire transaction.
func resolve(wire *solana.Transaction) (*Transaction, error) {
	msg := wire.Message

	metas, err := msg.AccountMetaList()
	if err != nil {
		return nil, fmt.Errorf("resolving accounts: %w", err)
	}

	instructions := make([]Instruction, len(msg.Instructions))
	for i, ci := range msg.Instructions {
		programID, err := msg.Program(ci.ProgramIDIndex)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}

		accounts := make([]AccountMeta, len(ci.Accounts))
		for j, idx := range ci.Accounts {
			if int(idx) >= len(metas) {
				return nil, fmt.Errorf("instruction %d: account index %d out of range", i, idx)
			}
			meta := metas[idx]
			accounts[j] = AccountMeta{
				PublicKey:  meta.PublicKey,
				IsSigner:   meta.IsSigner,
				IsWritable: meta.IsWritable,
			}
		}

		instructions[i] = Instruction{
			ProgramID: programID,
			Accounts:  accounts,
			Data:      append([]byte(nil), ci.Data...),
		}
	}

	return &Transaction{
		Instructions:    instructions,
		RecentBlockhash: msg.RecentBlockhash,
		FeePayer:        msg.AccountKeys[0],
		Signatures:      signaturePairs(wire),
		wire:            wire,
	}, nil
}

func signaturePairs(wire *solana.Transaction) []SignaturePair {
	pairs := make([]SignaturePair, len(wire.Signatures))
	for i, sig := range wire.Signatures {
		pairs[i] = SignaturePair{
			PublicKey: wire.Message.AccountKeys[i],
			Signature: sig,
		}
	}
	return pairs
}
