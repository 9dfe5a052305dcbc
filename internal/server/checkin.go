package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

type checkInRequest struct {
	UserPublicKey string `json:"userPublicKey"`
	SerializedTx  string `json:"serializedTx"`
}

type checkInResponse struct {
	Success  bool   `json:"success"`
	SignedTx string `json:"signedTx"`
	Message  string `json:"message"`
}

// Check-in handler
// Client sends its public key and a user-signed base64 transaction in JSON body.
// Returns the transaction with the verifier signature added.
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	out, err := s.checkinSvc.CheckIn(r.Context(), req.UserPublicKey, req.SerializedTx)
	if err != nil {
		status, msg := checkInError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, checkInResponse{
		Success:  true,
		SignedTx: out.SignedTx,
		Message:  out.Message,
	})
}
