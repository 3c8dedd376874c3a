// Package executor runs approved plan steps: credit pre-check, retried
// tool dispatch, credit settlement, and observation recording. Tool
// failures become Observations; only system failures (insufficient
// credits, observation persistence) propagate as errors.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/adpilot-ai/adpilot/internal/backoff"
	"github.com/adpilot-ai/adpilot/internal/credit"
	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/observability"
	"github.com/adpilot-ai/adpilot/internal/session"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Config tunes the executor.
type Config struct {
	// MaxRetries bounds retries per tool call (attempts = MaxRetries+1).
	MaxRetries int

	// CallTimeout bounds each individual tool attempt.
	CallTimeout time.Duration

	// Policy shapes the backoff between attempts.
	Policy backoff.Policy
}

// DefaultConfig returns the standard retry settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		CallTimeout: 30 * time.Second,
		Policy:      backoff.Default(),
	}
}

// Executor dispatches plan steps to tool handlers.
type Executor struct {
	registry *tools.Registry
	gate     *credit.Gate
	store    session.Store
	metrics  *observability.Metrics
	logger   *slog.Logger
	cfg      Config
}

// New creates an executor. A nil metrics handle disables instrumentation.
func New(registry *tools.Registry, gate *credit.Gate, store session.Store,
	metrics *observability.Metrics, logger *slog.Logger, cfg Config) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.Policy.Base <= 0 {
		cfg.Policy = backoff.Default()
	}
	return &Executor{
		registry: registry,
		gate:     gate,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Execute runs one approved step. The returned error is reserved for
// fatal conditions: unknown tool, insufficient credits, or a failure to
// persist the observation. Every tool failure is reported inside the
// Observation instead.
func (e *Executor) Execute(ctx context.Context, step models.PlanStep, tc tools.Context) (models.Observation, error) {
	tool, ok := e.registry.Lookup(step.Action)
	if !ok {
		return models.Observation{}, fault.Newf(fault.CodeInternal, "unknown tool %q reached the executor", step.Action)
	}
	desc := tool.Descriptor

	obs := models.Observation{
		Tool:       step.Action,
		Parameters: step.ActionInput,
		Timestamp:  time.Now(),
	}

	params, err := tool.Prepare(step.ActionInput)
	if err != nil {
		obs.Error = fault.From(err).Info()
		obs.Attempts = 1
		return obs, e.record(ctx, tc.SessionID, obs)
	}

	if desc.Priced() {
		if err := e.gate.Precheck(ctx, tc.Principal.ID, desc.Cost()); err != nil {
			return models.Observation{}, err
		}
	}

	start := time.Now()
	result, err := backoff.Retry(ctx, e.cfg.Policy, e.cfg.MaxRetries, fault.Retryable,
		func(attempt int) (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
			defer cancel()
			return tool.Handler(callCtx, params, tc)
		})
	obs.Attempts = result.Attempts
	e.observeDuration(step.Action, time.Since(start))

	if err != nil {
		if ctx.Err() != nil {
			return models.Observation{}, ctx.Err()
		}
		f := fault.From(err)
		e.logger.Warn("tool failed",
			"tool", step.Action,
			"session_id", tc.SessionID,
			"attempts", obs.Attempts,
			"code", f.Code)
		e.countInvocation(step.Action, "error")
		obs.Error = f.Info()
		return obs, e.record(ctx, tc.SessionID, obs)
	}

	obs.OK = true
	obs.Data, obs.Attachments = splitAttachments(result.Value)
	if desc.Priced() {
		obs.CreditCharged = e.gate.Settle(ctx, tc.Principal.ID, desc.Cost(), tc.OperationID)
		e.countCredits(step.Action, obs.CreditCharged)
	}
	e.countInvocation(step.Action, "ok")

	return obs, e.record(ctx, tc.SessionID, obs)
}

// record persists the observation. Failures here are fatal to the run.
func (e *Executor) record(ctx context.Context, sessionID string, obs models.Observation) error {
	if err := e.store.RecordObservation(ctx, sessionID, obs); err != nil {
		return fault.Wrap(fault.CodeDB, err)
	}
	return nil
}

// splitAttachments lifts an "attachments" entry out of a map result so
// media rides on the observation itself.
func splitAttachments(result any) (any, []models.Attachment) {
	m, ok := result.(map[string]any)
	if !ok {
		return result, nil
	}
	raw, ok := m["attachments"]
	if !ok {
		return result, nil
	}
	attachments, ok := raw.([]models.Attachment)
	if !ok {
		return result, nil
	}
	data := make(map[string]any, len(m)-1)
	for k, v := range m {
		if k != "attachments" {
			data[k] = v
		}
	}
	return data, attachments
}

func (e *Executor) countInvocation(tool, outcome string) {
	if e.metrics != nil {
		e.metrics.ToolInvocations.WithLabelValues(tool, outcome).Inc()
	}
}

func (e *Executor) countCredits(tool string, charged int) {
	if e.metrics != nil && charged > 0 {
		e.metrics.CreditsDeducted.WithLabelValues(tool).Add(float64(charged))
	}
}

func (e *Executor) observeDuration(tool string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
	}
}
