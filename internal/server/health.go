package server

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status              string `json:"status"`
	VerifierConfigured  bool   `json:"verifierConfigured"`
	ProgramIDConfigured bool   `json:"programIdConfigured"`
	Timestamp           string `json:"timestamp"`
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	status := s.checkinSvc.Status()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:              "ok",
		VerifierConfigured:  status.VerifierConfigured,
		ProgramIDConfigured: status.ProgramIDConfigured,
		Timestamp:           s.now().UTC().Format(time.RFC3339Nano),
	})
}
