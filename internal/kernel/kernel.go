// Package kernel drives the agent loop: load memory, plan, evaluate,
// branch, execute, reflect. A run streams typed events and terminates
// with text, an input request, or a classified error. Suspension keeps
// no live goroutine; the pending plan is persisted and a later request
// resumes it on any node.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adpilot-ai/adpilot/internal/evaluator"
	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/llm"
	"github.com/adpilot-ai/adpilot/internal/observability"
	"github.com/adpilot-ai/adpilot/internal/planner"
	"github.com/adpilot-ai/adpilot/internal/session"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Planner produces the next plan step for a run.
type Planner interface {
	Plan(ctx context.Context, in planner.Input) (models.PlanStep, error)
}

// Evaluator is the human-in-the-loop gate.
type Evaluator interface {
	Evaluate(ctx context.Context, step models.PlanStep, in evaluator.Input) models.Evaluation
}

// Executor runs an approved plan step.
type Executor interface {
	Execute(ctx context.Context, step models.PlanStep, tc tools.Context) (models.Observation, error)
}

// Config tunes the loop bounds.
type Config struct {
	// MaxIterations caps plan/execute cycles per run. Default 10.
	MaxIterations int

	// MaxWallTime caps the whole run. Default 10m.
	MaxWallTime time.Duration

	// IterationTimeout soft-caps a single iteration. Default 120s.
	IterationTimeout time.Duration

	// HistoryLimit bounds the conversation log loaded into the planner.
	HistoryLimit int

	// EnableReflection turns on the post-observation LLM critique.
	EnableReflection bool
}

// DefaultConfig returns the standard loop bounds.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    10,
		MaxWallTime:      10 * time.Minute,
		IterationTimeout: 120 * time.Second,
		HistoryLimit:     50,
	}
}

func (c Config) sanitized() Config {
	defaults := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaults.MaxIterations
	}
	if c.MaxWallTime <= 0 {
		c.MaxWallTime = defaults.MaxWallTime
	}
	if c.IterationTimeout <= 0 {
		c.IterationTimeout = defaults.IterationTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaults.HistoryLimit
	}
	return c
}

// Kernel wires the loop components together.
type Kernel struct {
	planner   Planner
	evaluator Evaluator
	executor  Executor
	store     session.Store
	locker    session.Locker
	providers *llm.Registry
	metrics   *observability.Metrics
	logger    *slog.Logger
	cfg       Config
}

// New creates a kernel. providers may be nil when reflection is disabled;
// a nil metrics handle disables instrumentation.
func New(p Planner, e Evaluator, x Executor, store session.Store, locker session.Locker,
	providers *llm.Registry, metrics *observability.Metrics, logger *slog.Logger, cfg Config) *Kernel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kernel{
		planner:   p,
		evaluator: e,
		executor:  x,
		store:     store,
		locker:    locker,
		providers: providers,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg.sanitized(),
	}
}

// Request describes a single kernel invocation.
type Request struct {
	// SessionID scopes memory and the advisory lock.
	SessionID string

	// Principal is the caller.
	Principal models.Principal

	// Message is the user's new message. Empty on a pure resume.
	Message string

	// Attachments accompany the message.
	Attachments []models.Attachment

	// History overrides the stored conversation log when non-empty.
	History []models.Message

	// Resume carries the answer to a pending input request.
	Resume *models.ResumeInput
}

const truncationNotice = "I had to stop before finishing: the task was truncated after reaching the iteration limit. Here is where things stand so far; ask me to continue if you'd like me to keep going."

const planningApology = "Sorry, I ran into a problem working out what to do next. Please try again in a moment."

// Run starts a kernel invocation and returns its event stream. The
// channel closes after the terminal event. Cancel by cancelling ctx;
// the kernel observes cancellation at every external-call boundary and
// persists nothing partial.
func (k *Kernel) Run(ctx context.Context, req Request) (<-chan models.AgentEvent, error) {
	if req.SessionID == "" {
		return nil, fault.New(fault.CodeValidation, "session id is required")
	}
	if req.Principal.ID == "" {
		return nil, fault.New(fault.CodeValidation, "principal id is required")
	}
	if req.Message == "" && req.Resume == nil {
		return nil, fault.New(fault.CodeValidation, "message or resume input is required")
	}

	runID := uuid.NewString()
	ch := make(chan models.AgentEvent, 16)

	go func() {
		defer close(ch)
		em := newEmitter(runID, ch, ctx.Done())

		release, err := k.locker.Acquire(ctx, req.SessionID, runID)
		if err != nil {
			em.errorEvent(fault.From(err).Info())
			em.doneEvent()
			k.countRun("error", 0)
			return
		}
		defer release()

		runCtx, cancel := context.WithTimeout(ctx, k.cfg.MaxWallTime)
		defer cancel()

		outcome, iterations := k.run(runCtx, req, em)
		k.countRun(outcome, iterations)
	}()

	return ch, nil
}

// pendingStep is a plan waiting on EVALUATE, with the idempotency key
// minted when it was first planned.
type pendingStep struct {
	plan        models.PlanStep
	operationID string
	approved    bool
}

func (k *Kernel) run(ctx context.Context, req Request, em *emitter) (outcome string, iterations int) {
	logger := k.logger.With("run_id", em.runID, "session_id", req.SessionID)

	// LOAD_MEMORY
	history := req.History
	if len(history) == 0 {
		loaded, err := k.store.LoadLog(ctx, req.SessionID, k.cfg.HistoryLimit)
		if err != nil {
			return k.memoryError(em, err), 0
		}
		history = loaded
	}

	var pending *pendingStep
	iteration := 0

	if req.Resume != nil {
		resumed, terminal := k.resume(ctx, req, em, logger)
		if terminal != "" {
			return terminal, 0
		}
		pending = resumed.step
		iteration = resumed.iteration
	}

	message := req.Message
	if message == "" {
		message = lastUserMessage(history)
	}

	if req.Message != "" {
		entry := models.Message{
			Role:        models.RoleUser,
			Content:     req.Message,
			Timestamp:   time.Now(),
			Attachments: req.Attachments,
		}
		if err := k.store.AppendMessage(ctx, req.SessionID, entry); err != nil {
			return k.memoryError(em, err), 0
		}
	}

	var observations []models.Observation

	for {
		if iteration >= k.cfg.MaxIterations {
			logger.Warn("iteration cap reached", "iterations", iteration)
			return k.finishText(ctx, req.SessionID, em, truncationNotice), iteration
		}
		if err := ctx.Err(); err != nil {
			return k.deadline(ctx, req.SessionID, em, err), iteration
		}
		em.setIter(iteration)

		iterCtx, cancelIter := context.WithTimeout(ctx, k.cfg.IterationTimeout)

		// PLAN
		if pending == nil {
			em.thinking("Working out the next step...")
			plan, err := k.planner.Plan(iterCtx, planner.Input{
				Message:      message,
				History:      history,
				Observations: observations,
				Preferences:  req.Principal.Preferences,
			})
			if err != nil {
				cancelIter()
				if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return k.deadline(ctx, req.SessionID, em, err), iteration
				}
				logger.Warn("planner failed", "error", err)
				return k.finishText(ctx, req.SessionID, em, planningApology), iteration
			}
			pending = &pendingStep{plan: plan, operationID: uuid.NewString()}
		}

		em.thought(pending.plan.Thought)

		// EVALUATE
		eval := k.evaluator.Evaluate(iterCtx, pending.plan, evaluator.Input{
			Message:     message,
			Preferences: req.Principal.Preferences,
			Approved:    pending.approved,
		})

		// BRANCH
		if eval.NeedsInput {
			cancelIter()
			return k.suspend(ctx, req.SessionID, em, pending, eval, iteration), iteration
		}
		if pending.plan.IsComplete || pending.plan.Action == "" {
			cancelIter()
			return k.finishText(ctx, req.SessionID, em, pending.plan.Thought), iteration
		}

		// EXECUTE
		em.action(pending.plan.Action, fmt.Sprintf("Running %s", pending.plan.Action))
		obs, err := k.executor.Execute(iterCtx, pending.plan, tools.Context{
			Principal:   req.Principal,
			SessionID:   req.SessionID,
			OperationID: pending.operationID,
		})
		if err != nil {
			cancelIter()
			if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return k.deadline(ctx, req.SessionID, em, err), iteration
			}
			em.errorEvent(fault.From(err).Info())
			em.doneEvent()
			return "error", iteration
		}
		em.observation(obs)
		observations = append(observations, obs)

		// REFLECT
		if k.cfg.EnableReflection {
			if critique := k.reflect(iterCtx, req.Principal.Preferences, pending.plan, obs); critique != "" {
				em.reflection(critique)
			}
		}

		cancelIter()
		pending = nil
		iteration++
	}
}

// resumedRun is the state reconstructed from a suspended session.
type resumedRun struct {
	step      *pendingStep
	iteration int
}

// resume merges the user's answer into the persisted pending plan. A
// non-empty terminal outcome means the run already ended (cancellation,
// declined confirmation, or a resume error).
func (k *Kernel) resume(ctx context.Context, req Request, em *emitter, logger *slog.Logger) (resumedRun, string) {
	state, err := k.store.LoadState(ctx, req.SessionID)
	if err != nil {
		return resumedRun{}, k.memoryError(em, err)
	}
	if state == nil || state.Phase != session.PhaseAwaitingInput || state.PendingPlan == nil {
		em.errorEvent(fault.New(fault.CodeNotFound, "no suspended run to resume").Info())
		em.doneEvent()
		return resumedRun{}, "error"
	}

	answer := req.Resume
	eval := state.PendingEval
	plan := *state.PendingPlan
	step := &pendingStep{plan: plan, operationID: state.OperationID}
	if step.operationID == "" {
		step.operationID = uuid.NewString()
	}

	cancelRun := answer.Cancelled
	if eval != nil && !cancelRun {
		switch eval.Kind {
		case models.EvalConfirm:
			if affirmative(answer.Value) {
				step.approved = true
			} else {
				cancelRun = true
			}
		case models.EvalSelect:
			switch answer.SelectedOption {
			case models.OptionCancel:
				cancelRun = true
			case models.OptionOther:
				step.plan.ActionInput = withParam(step.plan.ActionInput, eval.Parameter, answer.CustomValue)
			default:
				step.plan.ActionInput = withParam(step.plan.ActionInput, eval.Parameter, answer.SelectedOption)
			}
		case models.EvalInput:
			step.plan.ActionInput = withParam(step.plan.ActionInput, eval.Parameter, answer.Value)
		}
	}

	if cancelRun {
		logger.Info("pending plan cancelled by user", "tool", plan.Action)
		return resumedRun{}, k.finishText(ctx, req.SessionID, em, "Okay, I've cancelled that. Let me know what you'd like to do instead.")
	}

	if err := k.store.ClearState(ctx, req.SessionID); err != nil {
		return resumedRun{}, k.memoryError(em, err)
	}
	return resumedRun{step: step, iteration: state.Iteration}, ""
}

// suspend persists the pending plan and emits the input request. The run
// ends without a done terminator; the stream stays open on the client
// side until it reads the request and reconnects with an answer.
func (k *Kernel) suspend(ctx context.Context, sessionID string, em *emitter,
	pending *pendingStep, eval models.Evaluation, iteration int) string {
	state := &session.State{
		Phase:       session.PhaseAwaitingInput,
		Iteration:   iteration,
		PendingPlan: &pending.plan,
		PendingEval: &eval,
		OperationID: pending.operationID,
	}
	if err := k.store.SaveState(ctx, sessionID, state); err != nil {
		return k.memoryError(em, err)
	}
	em.evaluation(eval)
	em.inputRequest(eval)
	if k.metrics != nil {
		k.metrics.Suspensions.WithLabelValues(string(models.RequestKindFor(eval.Kind))).Inc()
	}
	return "input_request"
}

// finishText emits the terminal assistant message, records it in the
// conversation log, and closes the stream with done.
func (k *Kernel) finishText(ctx context.Context, sessionID string, em *emitter, content string) string {
	// Terminal writes must land even when the run budget just expired.
	ctx = context.WithoutCancel(ctx)
	if content == "" {
		content = "Done."
	}
	entry := models.Message{Role: models.RoleAssistant, Content: content, Timestamp: time.Now()}
	if err := k.store.AppendMessage(ctx, sessionID, entry); err != nil {
		return k.memoryError(em, err)
	}
	if err := k.store.SaveState(ctx, sessionID, &session.State{Phase: session.PhaseDone}); err != nil {
		k.logger.Warn("persist terminal state", "session_id", sessionID, "error", err)
	}
	em.text(content)
	em.doneEvent()
	return "text"
}

// deadline distinguishes a caller hang-up (silent) from expiry of the
// wall-clock or iteration budget (truncation notice).
func (k *Kernel) deadline(ctx context.Context, sessionID string, em *emitter, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return k.finishText(ctx, sessionID, em, truncationNotice)
	}
	return "cancelled"
}

func (k *Kernel) memoryError(em *emitter, err error) string {
	em.errorEvent(fault.Wrap(fault.CodeDB, err).Info())
	em.doneEvent()
	return "error"
}

const reflectionSystem = "You observe an advertising assistant's tool results. In one short sentence, state whether the result moves the user's request forward and what, if anything, is still missing. No preamble."

// reflect asks the model for a one-line critique of the observation.
// Any failure is swallowed; reflection is advisory.
func (k *Kernel) reflect(ctx context.Context, prefs models.Preferences, step models.PlanStep, obs models.Observation) string {
	if k.providers == nil {
		return ""
	}
	provider, model, err := k.providers.Text(prefs)
	if err != nil {
		return ""
	}
	status := "succeeded"
	if !obs.OK {
		status = "failed"
	}
	prompt := fmt.Sprintf("Goal: %s\nTool %s %s.", step.Thought, obs.Tool, status)
	critique, err := provider.Complete(ctx, llm.Request{
		System:      reflectionSystem,
		Messages:    []models.Message{{Role: models.RoleUser, Content: prompt}},
		Model:       model,
		MaxTokens:   150,
		Temperature: 0.3,
	})
	if err != nil {
		k.logger.Debug("reflection skipped", "error", err)
		return ""
	}
	return strings.TrimSpace(critique)
}

func (k *Kernel) countRun(outcome string, iterations int) {
	if k.metrics == nil {
		return
	}
	k.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	k.metrics.RunIterations.Observe(float64(iterations))
}

// affirmative interprets a confirmation answer. Anything that is not a
// recognized yes counts as a decline.
func affirmative(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y", "true", "ok", "okay", "confirm", "approve", "approved", "proceed":
			return true
		}
	}
	return false
}

func withParam(params map[string]any, name string, value any) map[string]any {
	if name == "" {
		return params
	}
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out[name] = value
	return out
}

func lastUserMessage(history []models.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
