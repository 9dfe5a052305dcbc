package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPublicKey(t *testing.T) {
	valid := solana.NewWallet().PublicKey().String()
	assert.True(t, IsValidPublicKey(valid))
	assert.True(t, IsValidPublicKey(solana.SystemProgramID.String()))

	malformed := []string{
		"",
		" ",
		"0OIl",
		valid + "!",
		"héllo",
		strings.Repeat("z", 200),
		base58.Encode(make([]byte, 20)),
		base58.Encode(make([]byte, 33)),
		"\x00\xff",
	}
	for _, candidate := range malformed {
		assert.NotPanics(t, func() {
			assert.False(t, IsValidPublicKey(candidate), "candidate %q", candidate)
		})
	}
}

func TestParsePublicKey(t *testing.T) {
	pk := solana.NewWallet().PublicKey()

	got, err := ParsePublicKey(pk.String())
	require.NoError(t, err)
	assert.Equal(t, pk, got)

	_, err = ParsePublicKey(base58.Encode(make([]byte, 20)))
	require.Error(t, err)
}

func TestLoadVerifierKeypairRoundTrip(t *testing.T) {
	for i := 0; i < 8; i++ {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		secret := base58.Encode(priv)

		kp, err := LoadVerifierKeypair(secret)
		require.NoError(t, err)
		assert.Equal(t, secret, kp.SecretBase58())
		assert.Equal(t, solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey)), kp.PublicKey())
	}
}

func TestLoadVerifierKeypairRejectsWrongLength(t *testing.T) {
	for _, size := range []int{0, 1, 31, 32, 63, 65, 96, 128} {
		t.Run(fmt.Sprintf("len=%d", size), func(t *testing.T) {
			buf := make([]byte, size)
			_, _ = rand.Read(buf)

			_, err := NewKeypair(buf)
			require.ErrorIs(t, err, ErrConfiguration)

			if size > 0 {
				_, err = LoadVerifierKeypair(base58.Encode(buf))
				require.ErrorIs(t, err, ErrConfiguration)
				assert.Contains(t, err.Error(), fmt.Sprintf("got %d", size))
			}
		})
	}
}

func TestLoadVerifierKeypairRejectsMissingAndMalformed(t *testing.T) {
	_, err := LoadVerifierKeypair("")
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = LoadVerifierKeypair("not base58 0OIl")
	require.ErrorIs(t, err, ErrConfiguration)
	assert.NotContains(t, err.Error(), "0OIl")
}

func TestLoadVerifierKeypairRejectsInconsistentKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	tampered := append([]byte(nil), priv...)
	tampered[63] ^= 0xff
	secret := base58.Encode(tampered)

	_, err = LoadVerifierKeypair(secret)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.NotContains(t, err.Error(), secret)
}

func TestKeypairStringHidesSecret(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	s := fmt.Sprintf("%v %s", kp, kp)
	assert.Contains(t, s, kp.PublicKey().String())
	assert.NotContains(t, s, kp.SecretBase58())
}

func TestSign(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	msg := []byte("check-in")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)
	assert.True(t, kp.PublicKey().Verify(msg, sig))

	var empty *Keypair
	_, err = empty.Sign(msg)
	require.ErrorIs(t, err, ErrNoPrivateKey)
}

func TestPartialSignOnlyFillsVerifierSlot(t *testing.T) {
	user := solana.NewWallet()
	verifier, err := Generate()
	require.NoError(t, err)

	ix := solana.NewInstruction(solana.NewWallet().PublicKey(), solana.AccountMetaSlice{
		solana.NewAccountMeta(user.PublicKey(), true, true),
		solana.NewAccountMeta(verifier.PublicKey(), false, true),
	}, []byte{1})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(user.PublicKey()))
	require.NoError(t, err)

	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(user.PublicKey()) {
			return &user.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	userSig := tx.Signatures[0]

	require.NoError(t, verifier.PartialSign(tx))
	require.Len(t, tx.Signatures, 2)
	assert.Equal(t, userSig, tx.Signatures[0])
	assert.False(t, tx.Signatures[1].IsZero())
	require.NoError(t, tx.VerifySignatures())
}

func TestPartialSignRequiresSignerSlot(t *testing.T) {
	user := solana.NewWallet()
	verifier, err := Generate()
	require.NoError(t, err)

	ix := solana.NewInstruction(solana.NewWallet().PublicKey(), solana.AccountMetaSlice{
		solana.NewAccountMeta(user.PublicKey(), true, true),
	}, nil)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(user.PublicKey()))
	require.NoError(t, err)

	require.ErrorIs(t, verifier.PartialSign(tx), ErrNotASigner)
}
