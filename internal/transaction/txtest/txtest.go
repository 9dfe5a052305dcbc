// Package txtest builds real wire transactions for tests.
package txtest

import (
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/require"
)

// Fixture holds the identities of one check-in scenario.
type Fixture struct {
	ProgramID  solana.PublicKey
	User       *solana.Wallet
	Verifier   solana.PublicKey
	CheckInPDA solana.PublicKey
	Blockhash  solana.Hash
}

// NewFixture creates fresh user, program and state identities around verifier.
func NewFixture(verifier solana.PublicKey) *Fixture {
	return &Fixture{
		ProgramID:  solana.NewWallet().PublicKey(),
		User:       solana.NewWallet(),
		Verifier:   verifier,
		CheckInPDA: solana.NewWallet().PublicKey(),
		Blockhash:  solana.Hash(solana.NewWallet().PublicKey()),
	}
}

// Meta is shorthand for an account meta.
func Meta(key solana.PublicKey, signer, writable bool) *solana.AccountMeta {
	return solana.NewAccountMeta(key, writable, signer)
}

// Instruction builds an instruction for program with the given accounts.
func Instruction(program solana.PublicKey, metas ...*solana.AccountMeta) *solana.GenericInstruction {
	return solana.NewInstruction(program, solana.AccountMetaSlice(metas), []byte{0x01})
}

// CheckIn is the legitimate check-in instruction: user writable signer,
// verifier readonly signer, plus the user's check-in state account.
func (f *Fixture) CheckIn() *solana.GenericInstruction {
	return f.CheckInWith(
		Meta(f.User.PublicKey(), true, true),
		Meta(f.Verifier, true, false),
		Meta(f.CheckInPDA, false, true),
	)
}

// CheckInWith targets the check-in program with custom accounts.
func (f *Fixture) CheckInWith(metas ...*solana.AccountMeta) *solana.GenericInstruction {
	return Instruction(f.ProgramID, metas...)
}

// ComputeUnitLimit is an allow-listed compute budget instruction.
func ComputeUnitLimit(units uint32) solana.Instruction {
	return computebudget.NewSetComputeUnitLimitInstruction(units).Build()
}

// Transfer is a system program lamport transfer.
func Transfer(lamports uint64, from, to solana.PublicKey) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}

// Build compiles ixs into a transaction paid by the user and signed by the
// user when the user is a required signer.
func (f *Fixture) Build(t testing.TB, ixs ...solana.Instruction) *solana.Transaction {
	t.Helper()
	return f.BuildWithPayer(t, f.User.PublicKey(), ixs...)
}

// BuildWithPayer is Build with an explicit fee payer.
func (f *Fixture) BuildWithPayer(t testing.TB, payer solana.PublicKey, ixs ...solana.Instruction) *solana.Transaction {
	t.Helper()
	tx, err := solana.NewTransaction(ixs, f.Blockhash, solana.TransactionPayer(payer))
	require.NoError(t, err)
	f.SignAsUser(t, tx)
	return tx
}

// SignAsUser adds the user's signature if the user is a required signer.
func (f *Fixture) SignAsUser(t testing.TB, tx *solana.Transaction) {
	t.Helper()
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(f.User.PublicKey()) {
			return &f.User.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
}

// Empty returns a transaction with a valid header and no instructions.
func (f *Fixture) Empty() *solana.Transaction {
	return &solana.Transaction{
		Signatures: make([]solana.Signature, 1),
		Message: solana.Message{
			AccountKeys: solana.PublicKeySlice{f.User.PublicKey()},
			Header: solana.MessageHeader{
				NumRequiredSignatures: 1,
			},
			RecentBlockhash: f.Blockhash,
		},
	}
}

// Encode serializes tx to base64 without requiring every signature.
func Encode(t testing.TB, tx *solana.Transaction) string {
	t.Helper()
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

// Bytes serializes tx to raw wire bytes.
func Bytes(t testing.TB, tx *solana.Transaction) []byte {
	t.Helper()
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}
