package server

import "net/http"

type verifierResponse struct {
	Success           bool   `json:"success"`
	VerifierPublicKey string `json:"verifierPublicKey"`
}

// Verifier key handler
// Clients include this key as a readonly signer of the check-in instruction.
func (s *Server) handleVerifier(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	pk, ok := s.checkinSvc.VerifierPublicKey()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "Verifier not configured")
		return
	}

	writeJSON(w, http.StatusOK, verifierResponse{
		Success:           true,
		VerifierPublicKey: pk.String(),
	})
}
