package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

var ErrUnexpectedResponse = errors.New("unexpected progress API response")

const maxResponseBytes = 64 << 10

type progressResponse struct {
	CompletedToday *bool `json:"completedToday"`
}

// HTTPChecker asks the course-progress API:
//
//	GET {baseURL}/user/{publicKey}/progress  ->  {"completedToday": bool}
type HTTPChecker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPChecker returns a checker for baseURL. apiKey is sent as a bearer
// token when non-empty.
func NewHTTPChecker(baseURL, apiKey string, timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPChecker) HasCompletedToday(ctx context.Context, user solana.PublicKey) (bool, error) {
	endpoint := c.baseURL + "/user/" + url.PathEscape(user.String()) + "/progress"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("building progress request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("querying progress API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	var body progressResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if body.CompletedToday == nil {
		return false, fmt.Errorf("%w: completedToday missing", ErrUnexpectedResponse)
	}
	return *body.CompletedToday, nil
}
