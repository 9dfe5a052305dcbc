package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solana-clockin/oracle/backend/internal/checkin"
	"github.com/solana-clockin/oracle/backend/internal/transaction"
	"github.com/solana-clockin/oracle/backend/internal/verification"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// checkInError maps a check-in failure to its status code and client message.
// Internal detail stays in the service logs.
func checkInError(err error) (int, string) {
	var (
		derr      *transaction.DeserializationError
		violation *verification.PolicyViolation
	)
	switch {
	case errors.Is(err, checkin.ErrMissingFields):
		return http.StatusBadRequest, "Missing required fields: userPublicKey and serializedTx"
	case errors.Is(err, checkin.ErrInvalidUserPublicKey):
		return http.StatusBadRequest, "Invalid userPublicKey format"
	case errors.Is(err, checkin.ErrVerifierNotConfigured):
		return http.StatusServiceUnavailable, "Server not properly configured: Verifier keypair missing"
	case errors.Is(err, checkin.ErrProgramIDNotConfigured):
		return http.StatusServiceUnavailable, "Server not properly configured: Program ID missing"
	case errors.Is(err, checkin.ErrProgressIncomplete):
		return http.StatusForbidden, "User has not completed today's learning task"
	case errors.Is(err, checkin.ErrProgressUnavailable):
		return http.StatusServiceUnavailable, "Progress service unavailable"
	case errors.As(err, &derr):
		return http.StatusBadRequest, "Failed to deserialize transaction: " + derr.Reason
	case errors.As(err, &violation):
		return http.StatusBadRequest, "Transaction verification failed: " + violation.Reason
	case errors.Is(err, checkin.ErrSigningFailed):
		return http.StatusInternalServerError, "Failed to co-sign transaction"
	default:
		return http.StatusInternalServerError, "Internal server error during check-in processing"
	}
}
