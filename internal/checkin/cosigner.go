package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-clockin/oracle/backend/internal/keys"
	"github.com/solana-clockin/oracle/backend/internal/metrics"
	"github.com/solana-clockin/oracle/backend/internal/progress"
	"github.com/solana-clockin/oracle/backend/internal/transaction"
	"github.com/solana-clockin/oracle/backend/internal/verification"
)

// Deps are fixed at construction. A nil Keypair or zero ProgramID leaves the
// service up but answering every check-in with a not-configured error.
type Deps struct {
	Keypair         *keys.Keypair
	ProgramID       solana.PublicKey
	Progress        progress.Checker
	ProgressTimeout time.Duration
	Metrics         *metrics.CheckIn
	Logger          *zap.Logger
}

type coSignService struct {
	keypair         *keys.Keypair
	programID       solana.PublicKey
	progress        progress.Checker
	progressTimeout time.Duration
	metrics         *metrics.CheckIn
	logger          *zap.Logger
}

func NewService(deps Deps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := deps.Progress
	if checker == nil {
		checker = progress.Static(true)
	}

	return &coSignService{
		keypair:         deps.Keypair,
		programID:       deps.ProgramID,
		progress:        checker,
		progressTimeout: deps.ProgressTimeout,
		metrics:         deps.Metrics,
		logger:          logger.Named("checkin"),
	}
}

func (s *coSignService) VerifierPublicKey() (solana.PublicKey, bool) {
	if s.keypair == nil {
		return solana.PublicKey{}, false
	}
	return s.keypair.PublicKey(), true
}

func (s *coSignService) Status() Status {
	return Status{
		VerifierConfigured:  s.keypair != nil,
		ProgramIDConfigured: !s.programID.IsZero(),
	}
}

func (s *coSignService) CheckIn(ctx context.Context, userPublicKey, serializedTx string) (out *Outcome, err error) {
	start := time.Now()
	defer func() {
		s.record(userPublicKey, time.Since(start), err)
	}()

	// Step 1: Required fields
	if userPublicKey == "" || serializedTx == "" {
		return nil, ErrMissingFields
	}

	// Step 2: User key format
	user, err := keys.ParsePublicKey(userPublicKey)
	if err != nil {
		return nil, ErrInvalidUserPublicKey
	}

	// Step 3: Configuration
	if s.keypair == nil {
		return nil, ErrVerifierNotConfigured
	}
	if s.programID.IsZero() {
		return nil, ErrProgramIDNotConfigured
	}

	// Step 4: Off-chain progress
	if err := s.checkProgress(ctx, user); err != nil {
		return nil, err
	}

	// Step 5: Decode
	tx, err := transaction.Deserialize(serializedTx)
	if err != nil {
		return nil, err
	}

	// Step 6: Policy
	result := verification.Verify(tx, verification.Config{
		ExpectedProgramID: s.programID,
		UserPublicKey:     user,
		VerifierPublicKey: s.keypair.PublicKey(),
	})
	if err := result.Err(); err != nil {
		return nil, err
	}

	// Step 7: Co-sign
	if err := tx.Sign(s.keypair); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	// Step 8: Re-encode without requiring every signature
	signed, err := transaction.Serialize(tx, transaction.SerializeOptions{RequireAllSignatures: false})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return &Outcome{SignedTx: signed, Message: SuccessMessage}, nil
}

func (s *coSignService) checkProgress(ctx context.Context, user solana.PublicKey) error {
	if s.progressTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.progressTimeout)
		defer cancel()
	}

	done, err := s.progress.HasCompletedToday(ctx, user)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProgressUnavailable, err)
	}
	if !done {
		return ErrProgressIncomplete
	}
	return nil
}

func (s *coSignService) record(userPublicKey string, elapsed time.Duration, err error) {
	outcome := outcomeOf(err)
	s.metrics.Observe(outcome, elapsed)

	fields := []zap.Field{
		zap.String("user", userPublicKey),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	}

	var violation *verification.PolicyViolation
	switch {
	case err == nil:
		s.logger.Info("transaction co-signed", fields...)
	case errors.As(err, &violation):
		s.metrics.Violation(violation.Check.String())
		s.logger.Warn("transaction rejected", append(fields,
			zap.Stringer("check", violation.Check),
			zap.String("reason", violation.Reason))...)
	case outcome == metrics.OutcomeSigningFailed, outcome == metrics.OutcomeProgressError:
		s.logger.Error("check-in failed", append(fields, zap.Error(err))...)
	default:
		s.logger.Info("check-in refused", append(fields, zap.Error(err))...)
	}
}

func outcomeOf(err error) string {
	var violation *verification.PolicyViolation
	switch {
	case err == nil:
		return metrics.OutcomeSigned
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidUserPublicKey):
		return metrics.OutcomeInvalidRequest
	case errors.Is(err, ErrVerifierNotConfigured), errors.Is(err, ErrProgramIDNotConfigured):
		return metrics.OutcomeNotConfigured
	case errors.Is(err, ErrProgressIncomplete):
		return metrics.OutcomeProgress
	case errors.Is(err, ErrProgressUnavailable):
		return metrics.OutcomeProgressError
	case errors.Is(err, transaction.ErrDeserialization):
		return metrics.OutcomeMalformed
	case errors.As(err, &violation):
		return metrics.OutcomePolicyViolation
	default:
		return metrics.OutcomeSigningFailed
	}
}
