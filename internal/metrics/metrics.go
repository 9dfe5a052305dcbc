// Package metrics holds the Prometheus collectors of the check-in flow.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSigned          = "signed"
	OutcomeInvalidRequest  = "invalid_request"
	OutcomeNotConfigured   = "not_configured"
	OutcomeProgress        = "progress_incomplete"
	OutcomeProgressError   = "progress_unavailable"
	OutcomeMalformed       = "malformed_transaction"
	OutcomePolicyViolation = "policy_violation"
	OutcomeSigningFailed   = "signing_failed"
)

// CheckIn records the outcome and latency of every check-in request.
type CheckIn struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	violations *prometheus.CounterVec
}

// NewCheckIn creates the collectors and registers them on reg. Collectors
// already present on reg are reused.
func NewCheckIn(reg prometheus.Registerer) (*CheckIn, error) {
	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_checkin_requests_total",
		Help: "Total number of check-in requests by outcome",
	}, []string{"outcome"}))
	if err != nil {
		return nil, fmt.Errorf("failed to register requests metric: %w", err)
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oracle_checkin_duration_seconds",
		Help:    "Time taken to process a check-in request",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"}))
	if err != nil {
		return nil, fmt.Errorf("failed to register duration metric: %w", err)
	}

	violations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_policy_violations_total",
		Help: "Total number of rejected transactions by failed check",
	}, []string{"check"}))
	if err != nil {
		return nil, fmt.Errorf("failed to register violations metric: %w", err)
	}

	return &CheckIn{
		requests:   requests,
		duration:   duration,
		violations: violations,
	}, nil
}

// Observe counts one finished request.
func (m *CheckIn) Observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Violation counts one rejected transaction.
func (m *CheckIn) Violation(check string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(check).Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
