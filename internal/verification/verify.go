// Package verification decides whether a decoded check-in transaction is safe
// for the verifier to co-sign.
package verification

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-clockin/oracle/backend/internal/transaction"
)

// MaxInstructions caps the instructions a co-signed transaction may carry.
const MaxInstructions = 3

// Check identifies one verification step.
type Check uint8

const (
	CheckNone Check = iota
	CheckNonEmpty
	CheckTargetInstruction
	CheckUserSigner
	CheckVerifierSigner
	CheckVerifierReadonly
	CheckInstructionCount
	CheckProgramAllowList
)

func (c Check) String() string {
	switch c {
	case CheckNone:
		return "none"
	case CheckNonEmpty:
		return "non_empty"
	case CheckTargetInstruction:
		return "target_instruction"
	case CheckUserSigner:
		return "user_signer"
	case CheckVerifierSigner:
		return "verifier_signer"
	case CheckVerifierReadonly:
		return "verifier_readonly"
	case CheckInstructionCount:
		return "instruction_count"
	case CheckProgramAllowList:
		return "program_allow_list"
	default:
		return fmt.Sprintf("check(%d)", uint8(c))
	}
}

// Config carries the identities a transaction is checked against.
type Config struct {
	ExpectedProgramID solana.PublicKey
	UserPublicKey     solana.PublicKey
	VerifierPublicKey solana.PublicKey
}

// Result is the outcome of Verify. Check and Reason are set only when
// Valid is false.
type Result struct {
	Valid  bool
	Check  Check
	Reason string
}

// Err returns nil for a valid result and a *PolicyViolation otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &PolicyViolation{Check: r.Check, Reason: r.Reason}
}

// PolicyViolation is a transaction that failed verification.
type PolicyViolation struct {
	Check  Check
	Reason string
}

func (e *PolicyViolation) Error() string {
	return "transaction verification failed: " + e.Reason
}

func valid() Result {
	return Result{Valid: true}
}

func reject(check Check, format string, args ...any) Result {
	return Result{Check: check, Reason: fmt.Sprintf(format, args...)}
}

// AllowedPrograms returns the programs a transaction may invoke.
func AllowedPrograms(expected solana.PublicKey) []solana.PublicKey {
	return []solana.PublicKey{expected, solana.SystemProgramID, solana.ComputeBudget}
}

// Verify runs the checks in order and stops at the first failure.
// It performs no I/O.
func Verify(tx *transaction.Transaction, cfg Config) Result {
	// Step 1: Non-empty
	if tx == nil || len(tx.Instructions) == 0 {
		return reject(CheckNonEmpty, "Transaction has no instructions")
	}

	// Step 2: Exactly one instruction targets the check-in program
	target, count := findTarget(tx.Instructions, cfg.ExpectedProgramID)
	if count == 0 {
		return reject(CheckTargetInstruction,
			"Transaction does not contain an instruction for the expected program: %s", cfg.ExpectedProgramID)
	}
	if count > 1 {
		return reject(CheckTargetInstruction,
			"Transaction contains %d instructions for the expected program: %s. Exactly one is allowed", count, cfg.ExpectedProgramID)
	}

	// Step 3: User signs
	user, ok := findAccount(target.Accounts, cfg.UserPublicKey)
	if !ok {
		return reject(CheckUserSigner, "User public key is not in the instruction accounts")
	}
	if !user.IsSigner {
		return reject(CheckUserSigner, "User must be a signer on the transaction")
	}

	// Step 4: Verifier signs
	verifier, ok := findAccount(target.Accounts, cfg.VerifierPublicKey)
	if !ok {
		return reject(CheckVerifierSigner, "Verifier public key is not in the instruction accounts")
	}
	if !verifier.IsSigner {
		return reject(CheckVerifierSigner, "Verifier must be marked as a signer in the instruction")
	}

	// Step 5: Verifier is never writable
	if verifier.IsWritable {
		return reject(CheckVerifierReadonly, "Security violation: Verifier account should not be writable")
	}

	// Step 6: Instruction ceiling
	if n := len(tx.Instructions); n > MaxInstructions {
		return reject(CheckInstructionCount,
			"Too many instructions in transaction: %d. Maximum allowed: %d", n, MaxInstructions)
	}

	// Step 7: Program allow-list
	allowed := AllowedPrograms(cfg.ExpectedProgramID)
	for _, ix := range tx.Instructions {
		if !isAllowed(ix.ProgramID, allowed) {
			return reject(CheckProgramAllowList, "Unauthorized program detected: %s", ix.ProgramID)
		}
	}

	return valid()
}

func findTarget(ixs []transaction.Instruction, program solana.PublicKey) (transaction.Instruction, int) {
	var target transaction.Instruction
	count := 0
	for _, ix := range ixs {
		if ix.ProgramID.Equals(program) {
			if count == 0 {
				target = ix
			}
			count++
		}
	}
	return target, count
}

func findAccount(accounts []transaction.AccountMeta, key solana.PublicKey) (transaction.AccountMeta, bool) {
	for _, meta := range accounts {
		if meta.PublicKey.Equals(key) {
			return meta, true
		}
	}
	return transaction.AccountMeta{}, false
}

func isAllowed(program solana.PublicKey, allowed []solana.PublicKey) bool {
	for _, p := range allowed {
		if program.Equals(p) {
			return true
		}
	}
	return false
}
