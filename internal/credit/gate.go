package credit

import (
	"context"
	"log/slog"

	"github.com/adpilot-ai/adpilot/internal/backoff"
	"github.com/adpilot-ai/adpilot/internal/fault"
)

// Gate enforces credit accounting around tool execution: a balance
// pre-check before the tool runs and a deduction only after it succeeds.
// Failed tools never charge. Ledger calls are themselves retried.
type Gate struct {
	ledger Ledger
	logger *slog.Logger
	policy backoff.Policy
}

// NewGate creates a credit gate over the given ledger.
func NewGate(ledger Ledger, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{ledger: ledger, logger: logger, policy: backoff.Ledger()}
}

// Precheck verifies the principal holds at least cost credits. It returns
// an insufficient-credits fault carrying {required, available} otherwise.
func (g *Gate) Precheck(ctx context.Context, principal string, cost int) error {
	if cost <= 0 {
		return nil
	}

	result, err := backoff.Retry(ctx, g.policy, 3, fault.Retryable, func(int) (int, error) {
		return g.ledger.Balance(ctx, principal)
	})
	if err != nil {
		return fault.From(err)
	}
	if result.Value < cost {
		return fault.InsufficientCredits(cost, result.Value)
	}
	return nil
}

// Settle deducts exactly cost after a successful tool run. The deduction
// is idempotent on operationID. A deduction failure after the tool already
// produced value is logged but never unwinds the result; the ledger
// reconciles via the operation id.
func (g *Gate) Settle(ctx context.Context, principal string, cost int, operationID string) int {
	if cost <= 0 {
		return 0
	}

	_, err := backoff.Retry(ctx, g.policy, 3, fault.Retryable, func(int) (struct{}, error) {
		return struct{}{}, g.ledger.Deduct(ctx, principal, cost, operationID)
	})
	if err != nil {
		g.logger.Warn("credit deduction failed after successful tool run",
			"error", err,
			"principal", principal,
			"cost", cost,
			"operation_id", operationID,
		)
		return 0
	}
	return cost
}
