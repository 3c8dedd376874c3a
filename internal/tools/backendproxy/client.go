// Package backendproxy wraps the external advertising backend HTTP API as
// registry tools. Every tool is a thin POST to one backend endpoint;
// backend error codes are mapped into the shared fault taxonomy.
package backendproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/adpilot-ai/adpilot/internal/fault"
)

// Client calls the external backend service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend client authenticated with the service token.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

// envelope is the backend's uniform response shape.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error,omitempty"`
}

// Call POSTs params to the named backend operation on behalf of a user.
// The user id rides in the request body alongside the tool parameters.
func (c *Client) Call(ctx context.Context, operation, userID string, params map[string]any) (any, error) {
	body := make(map[string]any, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	body["user_id"] = userID

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fault.Wrap(fault.CodeValidation, err)
	}

	url := c.baseURL + "/v1/tools/" + operation
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fault.Wrap(fault.CodeBackendConnection, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fault.Wrap(fault.CodeBackendConnection, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 500 {
			return nil, fault.Newf(fault.CodeBackendConnection, "backend %s returned status %d", operation, resp.StatusCode)
		}
		return nil, fault.Wrap(fault.CodeBackendTool, fmt.Errorf("backend %s: unparseable response: %w", operation, err))
	}

	if env.Status == "ok" {
		var data any
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				return nil, fault.Wrap(fault.CodeBackendTool, err)
			}
		}
		return data, nil
	}

	if env.Error == nil {
		if resp.StatusCode >= 500 {
			return nil, fault.Newf(fault.CodeBackendConnection, "backend %s returned status %d", operation, resp.StatusCode)
		}
		return nil, fault.Newf(fault.CodeBackendTool, "backend %s failed with status %d", operation, resp.StatusCode)
	}

	c.logger.Debug("backend error",
		"operation", operation,
		"code", env.Error.Code,
		"status", resp.StatusCode)
	f := fault.FromBackendCode(env.Error.Code, env.Error.Message)
	if len(env.Error.Details) > 0 {
		f = f.WithDetails(env.Error.Details)
	}
	return nil, f
}

// classifyTransportErr maps low-level HTTP client failures.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Wrap(fault.CodeBackendTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fault.Wrap(fault.CodeBackendTimeout, err)
	}
	return fault.Wrap(fault.CodeBackendConnection, err)
}
