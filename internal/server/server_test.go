package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/solana-clockin/oracle/backend/internal/checkin"
	"github.com/solana-clockin/oracle/backend/internal/keys"
	"github.com/solana-clockin/oracle/backend/internal/metrics"
	"github.com/solana-clockin/oracle/backend/internal/progress"
	"github.com/solana-clockin/oracle/backend/internal/transaction"
	"github.com/solana-clockin/oracle/backend/internal/transaction/txtest"
	"github.com/solana-clockin/oracle/backend/internal/verification"
)

const allowedOrigin = "http://localhost:5173"

type fakeService struct {
	status   checkin.Status
	verifier solana.PublicKey
	outcome  *checkin.Outcome
	err      error
	panics   bool
}

func (f *fakeService) CheckIn(context.Context, string, string) (*checkin.Outcome, error) {
	if f.panics {
		panic("boom")
	}
	return f.outcome, f.err
}

func (f *fakeService) VerifierPublicKey() (solana.PublicKey, bool) {
	return f.verifier, !f.verifier.IsZero()
}

func (f *fakeService) Status() checkin.Status {
	return f.status
}

func newTestServer(t *testing.T, svc checkin.Service) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{allowedOrigin}
	return New(cfg, svc, prometheus.NewRegistry(), zap.New(core)), logs
}

func do(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeService{status: checkin.Status{VerifierConfigured: true}})
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC) }

	rec := do(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"status":              "ok",
		"verifierConfigured":  true,
		"programIdConfigured": false,
		"timestamp":           "2026-03-01T12:00:00.0000005Z",
	}, decodeBody(t, rec))
}

func TestVerifier(t *testing.T) {
	pk := solana.NewWallet().PublicKey()

	rec := do(t, mustServer(t, &fakeService{verifier: pk}), http.MethodGet, "/api/verifier", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "verifierPublicKey": pk.String()}, decodeBody(t, rec))

	rec = do(t, mustServer(t, &fakeService{}), http.MethodGet, "/api/verifier", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Verifier not configured"}, decodeBody(t, rec))
}

func mustServer(t *testing.T, svc checkin.Service) *Server {
	t.Helper()
	s, _ := newTestServer(t, svc)
	return s
}

func TestCheckInErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"missing fields", checkin.ErrMissingFields, 400, "Missing required fields: userPublicKey and serializedTx"},
		{"invalid key", checkin.ErrInvalidUserPublicKey, 400, "Invalid userPublicKey format"},
		{"no verifier", checkin.ErrVerifierNotConfigured, 503, "Server not properly configured: Verifier keypair missing"},
		{"no program", checkin.ErrProgramIDNotConfigured, 503, "Server not properly configured: Program ID missing"},
		{"progress", checkin.ErrProgressIncomplete, 403, "User has not completed today's learning task"},
		{"progress down", checkin.ErrProgressUnavailable, 503, "Progress service unavailable"},
		{"deserialize", &transaction.DeserializationError{Reason: "unexpected EOF"}, 400, "Failed to deserialize transaction: unexpected EOF"},
		{"policy", &verification.PolicyViolation{Check: verification.CheckNonEmpty, Reason: "Transaction has no instructions"}, 400, "Transaction verification failed: Transaction has no instructions"},
		{"signing", errors.Join(checkin.ErrSigningFailed, errors.New("key detail")), 500, "Failed to co-sign transaction"},
		{"unknown", errors.New("disk on fire"), 500, "Internal server error during check-in processing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := mustServer(t, &fakeService{err: tc.err})
			rec := do(t, s, http.MethodPost, "/api/check-in", `{"userPublicKey":"a","serializedTx":"b"}`, nil)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, map[string]any{"success": false, "error": tc.msg}, decodeBody(t, rec))
		})
	}
}

func TestCheckInBadBody(t *testing.T) {
	s := mustServer(t, &fakeService{})

	rec := do(t, s, http.MethodPost, "/api/check-in", `{not json`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decodeBody(t, rec)["error"])

	big := `{"userPublicKey":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec = do(t, s, http.MethodPost, "/api/check-in", big, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := mustServer(t, &fakeService{})

	rec := do(t, s, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Endpoint not found"}, decodeBody(t, rec))

	rec = do(t, s, http.MethodGet, "/api/check-in", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.Equal(t, false, decodeBody(t, rec)["success"])

	rec = do(t, s, http.MethodPost, "/health", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	s := mustServer(t, &fakeService{})

	rec := do(t, s, http.MethodGet, "/health", "", map[string]string{"Origin": allowedOrigin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = do(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, s, http.MethodPost, "/api/check-in", "{}", map[string]string{"Origin": "https://evil.example"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CORS policy violation", decodeBody(t, rec)["error"])

	rec = do(t, s, http.MethodOptions, "/api/check-in", "", map[string]string{
		"Origin":                         allowedOrigin,
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "content-type",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRecoverPanics(t *testing.T) {
	s, logs := newTestServer(t, &fakeService{panics: true})

	rec := do(t, s, http.MethodPost, "/api/check-in", `{"userPublicKey":"a","serializedTx":"b"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Internal server error"}, decodeBody(t, rec))
	assert.Equal(t, 1, logs.FilterMessage("unhandled panic").Len())
}

func TestRequestID(t *testing.T) {
	s, logs := newTestServer(t, &fakeService{})

	rec := do(t, s, http.MethodGet, "/health", "", nil)
	generated := rec.Header().Get(requestIDHeader)
	assert.NotEmpty(t, generated)

	const given = "5d0a3c1e-8c43-4a1d-9d0e-2f6f3e1b7a10"
	rec = do(t, s, http.MethodGet, "/health", "", map[string]string{requestIDHeader: given})
	assert.Equal(t, given, rec.Header().Get(requestIDHeader))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, given, entries[1].ContextMap()["request_id"])
	assert.EqualValues(t, http.StatusOK, entries[1].ContextMap()["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewCheckIn(reg)
	require.NoError(t, err)
	m.Observe(metrics.OutcomeSigned, time.Millisecond)

	s := New(DefaultConfig(), &fakeService{}, reg, zap.NewNop())
	rec := do(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `oracle_checkin_requests_total{outcome="signed"} 1`)

	rec = do(t, s, http.MethodPost, "/metrics", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCheckInEndToEnd(t *testing.T) {
	verifier, err := keys.Generate()
	require.NoError(t, err)
	f := txtest.NewFixture(verifier.PublicKey())

	svc := checkin.NewService(checkin.Deps{
		Keypair:   verifier,
		ProgramID: f.ProgramID,
		Progress:  progress.Static(true),
	})
	s := mustServer(t, svc)

	body, err := json.Marshal(checkInRequest{
		UserPublicKey: f.User.PublicKey().String(),
		SerializedTx:  txtest.Encode(t, f.Build(t, f.CheckIn())),
	})
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/check-in", string(body), map[string]string{"Origin": allowedOrigin})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp checkInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, checkin.SuccessMessage, resp.Message)

	signed, err := transaction.Deserialize(resp.SignedTx)
	require.NoError(t, err)
	sig, ok := signed.SignatureOf(verifier.PublicKey())
	require.True(t, ok)
	assert.False(t, sig.IsZero())

	short := `{"userPublicKey":"` + base58.Encode(make([]byte, 20)) + `","serializedTx":"AAAA"}`
	rec = do(t, s, http.MethodPost, "/api/check-in", short, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid userPublicKey format", decodeBody(t, rec)["error"])
}

func TestCheckInWithoutVerifierServes503(t *testing.T) {
	s := mustServer(t, checkin.NewService(checkin.Deps{}))

	rec := do(t, s, http.MethodPost, "/api/check-in", `{"userPublicKey":"`+solana.NewWallet().PublicKey().String()+`","serializedTx":"AAAA"}`, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodGet, "/health", "", nil)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["verifierConfigured"])
	assert.Equal(t, false, body["programIdConfigured"])
}
