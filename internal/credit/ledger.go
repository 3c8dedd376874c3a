// Package credit implements the credit gate: balance pre-checks and
// post-execution deduction against an external ledger service, with
// idempotent operation ids so retries never double-charge.
package credit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/adpilot-ai/adpilot/internal/fault"
)

// Ledger is the external credit ledger. Operations are retryable by the
// caller; Deduct must be idempotent with respect to operationID.
type Ledger interface {
	// Balance returns the principal's available credits.
	Balance(ctx context.Context, principal string) (int, error)

	// Deduct removes amount credits from the principal. Calling Deduct
	// twice with the same operationID charges only once.
	Deduct(ctx context.Context, principal string, amount int, operationID string) error
}

// HTTPLedger talks to the ledger service over HTTP with a bearer token.
type HTTPLedger struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPLedger creates a ledger client for the given base URL.
func NewHTTPLedger(baseURL, token string, timeout time.Duration) *HTTPLedger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLedger{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type balanceResponse struct {
	Balance int `json:"balance"`
}

// Balance returns the principal's available credits.
func (l *HTTPLedger) Balance(ctx context.Context, principal string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/balance/%s", l.baseURL, principal), nil)
	if err != nil {
		return 0, fault.Wrap(fault.CodeInternal, err)
	}
	req.Header.Set("Authorization", "Bearer "+l.token)

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, fault.Wrap(fault.CodeLedger, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fault.Newf(fault.CodeLedger, "balance query returned %d", resp.StatusCode)
	}
	var body balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fault.Wrap(fault.CodeLedger, err)
	}
	return body.Balance, nil
}

type deductRequest struct {
	Principal   string `json:"principal"`
	Amount      int    `json:"amount"`
	OperationID string `json:"operation_id"`
}

// Deduct removes credits, idempotent on operationID.
func (l *HTTPLedger) Deduct(ctx context.Context, principal string, amount int, operationID string) error {
	payload, err := json.Marshal(deductRequest{
		Principal:   principal,
		Amount:      amount,
		OperationID: operationID,
	})
	if err != nil {
		return fault.Wrap(fault.CodeInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.baseURL+"/v1/deduct", bytes.NewReader(payload))
	if err != nil {
		return fault.Wrap(fault.CodeInternal, err)
	}
	req.Header.Set("Authorization", "Bearer "+l.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fault.Wrap(fault.CodeLedger, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return fault.New(fault.CodeInsufficientCredits, "ledger rejected deduction")
	case resp.StatusCode >= 500:
		return fault.Newf(fault.CodeLedger, "deduct returned %d", resp.StatusCode)
	default:
		f := fault.Newf(fault.CodeLedger, "deduct returned %d", resp.StatusCode)
		f.Retryable = false
		return f
	}
}

// MemoryLedger is an in-memory Ledger for tests.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	applied  map[string]bool
}

// NewMemoryLedger creates an in-memory ledger with the given balances.
func NewMemoryLedger(balances map[string]int) *MemoryLedger {
	copied := make(map[string]int, len(balances))
	for k, v := range balances {
		copied[k] = v
	}
	return &MemoryLedger{balances: copied, applied: make(map[string]bool)}
}

// Balance returns the principal's available credits.
func (l *MemoryLedger) Balance(_ context.Context, principal string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[principal], nil
}

// Deduct removes credits, idempotent on operationID.
func (l *MemoryLedger) Deduct(_ context.Context, principal string, amount int, operationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if operationID != "" && l.applied[operationID] {
		return nil
	}
	if l.balances[principal] < amount {
		return fault.New(fault.CodeInsufficientCredits, "ledger rejected deduction")
	}
	l.balances[principal] -= amount
	if operationID != "" {
		l.applied[operationID] = true
	}
	return nil
}
