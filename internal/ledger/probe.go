// Package ledger checks connectivity to the Solana JSON-RPC endpoint.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

var ErrUnhealthy = errors.New("solana RPC node is unhealthy")

// Probe calls getHealth on one RPC endpoint. Check-in decisions never
// depend on it.
type Probe struct {
	client  *rpc.Client
	timeout time.Duration
}

func NewProbe(endpoint string, timeout time.Duration) *Probe {
	return &Probe{
		client:  rpc.New(endpoint),
		timeout: timeout,
	}
}

// Check returns nil when the node reports "ok".
func (p *Probe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	status, err := p.client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	if status != rpc.HealthOk {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, status)
	}
	return nil
}
