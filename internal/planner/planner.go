// Package planner produces the next plan step of the agent loop. It
// embeds the tool catalog and conversation context into a structured-JSON
// prompt; any planning failure degrades to a graceful completion step, so
// the loop never dies on a bad model response.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adpilot-ai/adpilot/internal/llm"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// historyWindow bounds how many conversation messages ride in the prompt.
const historyWindow = 20

// observationWindow bounds how many prior observations ride in the prompt.
const observationWindow = 10

// Planner asks the caller's preferred text model for the next step.
type Planner struct {
	providers *llm.Registry
	registry  *tools.Registry
	logger    *slog.Logger
}

// New creates a planner over the given providers and tool registry.
func New(providers *llm.Registry, registry *tools.Registry, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{providers: providers, registry: registry, logger: logger}
}

// Input is the planning context for one iteration.
type Input struct {
	// Message is the user's current request.
	Message string

	// History is the conversation log, oldest first.
	History []models.Message

	// Observations are tool outcomes from earlier iterations of this run.
	Observations []models.Observation

	// Preferences select the model.
	Preferences models.Preferences

	// Iteration is the current loop iteration, starting at 1.
	Iteration int
}

const systemTemplate = `You are AdPilot, an AI assistant that manages advertising campaigns, creatives, and landing pages for the user.

You work in a plan-act-observe loop. Each turn, decide the single next step.

Available tools:
%s
Respond with only a JSON object:
{"thought": "<your reasoning>", "action": "<tool name or empty>", "action_input": {<parameters>}, "is_complete": <bool>}

Rules:
- Set is_complete=true with the final answer in "thought" when the task is done. Leave "action" empty in that case.
- Leave "action" empty and put your reply in "thought" to answer without a tool.
- Use exactly one tool per step, with parameters matching its listing.
- Use prior observations instead of repeating a tool call that already succeeded.
- If a tool failed, either adjust its parameters and retry or explain the failure in a final answer.`

// Plan returns the next step. It never returns a planning error: a model
// response that cannot be parsed, or a model failure, degrades to a
// completion step carrying an apology. Context cancellation propagates.
func (p *Planner) Plan(ctx context.Context, in Input) (models.PlanStep, error) {
	provider, model, err := p.providers.Text(in.Preferences)
	if err != nil {
		return models.PlanStep{}, err
	}

	req := llm.Request{
		System:      fmt.Sprintf(systemTemplate, p.registry.CatalogPrompt()),
		Messages:    p.buildMessages(in),
		Model:       model,
		Temperature: 0.2,
	}

	var step models.PlanStep
	if err := llm.StructuredCall(ctx, provider, req, &step); err != nil {
		if errors.Is(err, context.Canceled) {
			return models.PlanStep{}, err
		}
		p.logger.Warn("planner degraded to completion",
			"error", err,
			"iteration", in.Iteration)
		return models.PlanStep{
			Thought:    "I ran into a problem working out the next step. Could you rephrase your request or try again in a moment?",
			IsComplete: true,
		}, nil
	}

	return p.sanitize(step), nil
}

// sanitize enforces the plan contract: unknown tools never reach the
// executor, and completed steps carry no action.
func (p *Planner) sanitize(step models.PlanStep) models.PlanStep {
	step.Action = strings.TrimSpace(step.Action)
	if step.IsComplete {
		step.Action = ""
		step.ActionInput = nil
		return step
	}
	if step.Action == "" {
		return step
	}
	if _, ok := p.registry.Lookup(step.Action); !ok {
		p.logger.Warn("planner chose unknown tool", "tool", step.Action)
		return models.PlanStep{
			Thought:    fmt.Sprintf("I considered using %q, but that capability is not available. Could you tell me more about what you need so I can help another way?", step.Action),
			IsComplete: true,
		}
	}
	if step.ActionInput == nil {
		step.ActionInput = map[string]any{}
	}
	return step
}

func (p *Planner) buildMessages(in Input) []models.Message {
	history := in.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	msgs := make([]models.Message, 0, len(history)+observationWindow+1)
	msgs = append(msgs, history...)

	observations := in.Observations
	if len(observations) > observationWindow {
		observations = observations[len(observations)-observationWindow:]
	}
	for _, obs := range observations {
		msgs = append(msgs, models.Message{
			Role:    models.RoleSystem,
			Content: "Observation: " + renderObservation(obs),
		})
	}

	msgs = append(msgs, models.Message{Role: models.RoleUser, Content: in.Message})
	return msgs
}

// renderObservation summarizes a tool outcome for the prompt.
func renderObservation(obs models.Observation) string {
	if obs.OK {
		return fmt.Sprintf("tool %s succeeded with result %s", obs.Tool, compactJSON(obs.Data))
	}
	msg := "unknown error"
	if obs.Error != nil {
		msg = obs.Error.Message
	}
	return fmt.Sprintf("tool %s failed: %s", obs.Tool, msg)
}

func compactJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	out := string(raw)
	if len(out) > 2000 {
		out = out[:2000] + "..."
	}
	return out
}
