package checkin

import "errors"

var (
	ErrMissingFields          = errors.New("missing required fields: userPublicKey and serializedTx")
	ErrInvalidUserPublicKey   = errors.New("invalid userPublicKey format")
	ErrVerifierNotConfigured  = errors.New("verifier keypair not configured")
	ErrProgramIDNotConfigured = errors.New("check-in program id not configured")
	ErrProgressIncomplete     = errors.New("daily course progress not completed")
	ErrProgressUnavailable    = errors.New("progress check unavailable")
	ErrSigningFailed          = errors.New("failed to co-sign transaction")
)
