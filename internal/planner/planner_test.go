package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adpilot-ai/adpilot/internal/llm"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

type scriptProvider struct {
	responses []string
	errs      []error
	requests  []llm.Request
}

func (p *scriptProvider) Name() string { return "script" }

func (p *scriptProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	i := len(p.requests)
	p.requests = append(p.requests, req)
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i >= len(p.responses) {
		return "", errors.New("script exhausted")
	}
	return p.responses[i], nil
}

func testPlanner(t *testing.T, p llm.Provider) *Planner {
	t.Helper()
	providers := llm.NewRegistry("script", "script")
	providers.Register(p, "model-1")

	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{
		Name:        "datetime",
		Description: "Date and time utilities",
		Parameters: []models.ParamSpec{
			{Name: "operation", Type: models.ParamString},
		},
	}, func(context.Context, map[string]any, tools.Context) (any, error) { return nil, nil })
	return New(providers, reg, nil)
}

func TestPlanParsesStep(t *testing.T) {
	provider := &scriptProvider{responses: []string{
		`{"thought": "the user wants the date", "action": "datetime", "action_input": {"operation": "today"}, "is_complete": false}`,
	}}
	p := testPlanner(t, provider)

	step, err := p.Plan(context.Background(), Input{Message: "What day is it?", Iteration: 1})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if step.Action != "datetime" {
		t.Errorf("action = %q, want datetime", step.Action)
	}
	if step.ActionInput["operation"] != "today" {
		t.Errorf("action_input = %v", step.ActionInput)
	}
	if step.IsComplete {
		t.Error("is_complete should be false")
	}

	// Prompt must carry the tool catalog and the user message.
	req := provider.requests[0]
	if !strings.Contains(req.System, "datetime") {
		t.Error("system prompt missing tool catalog")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != models.RoleUser || last.Content != "What day is it?" {
		t.Errorf("last message = %+v", last)
	}
}

func TestPlanDegradesOnUnparseableOutput(t *testing.T) {
	provider := &scriptProvider{responses: []string{
		"I think we should...",
		"still not json",
	}}
	p := testPlanner(t, provider)

	step, err := p.Plan(context.Background(), Input{Message: "hi"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !step.IsComplete {
		t.Error("degraded step should be complete")
	}
	if step.Thought == "" {
		t.Error("degraded step should carry an apology")
	}
	if len(provider.requests) != 2 {
		t.Errorf("provider called %d times, want 2 (one repair)", len(provider.requests))
	}
}

func TestPlanDegradesOnModelError(t *testing.T) {
	provider := &scriptProvider{errs: []error{errors.New("model unavailable")}}
	p := testPlanner(t, provider)

	step, err := p.Plan(context.Background(), Input{Message: "hi"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !step.IsComplete || step.Thought == "" {
		t.Errorf("step = %+v, want graceful completion", step)
	}
}

func TestPlanPropagatesCancellation(t *testing.T) {
	provider := &scriptProvider{errs: []error{context.Canceled}}
	p := testPlanner(t, provider)

	_, err := p.Plan(context.Background(), Input{Message: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestPlanRewritesUnknownTool(t *testing.T) {
	provider := &scriptProvider{responses: []string{
		`{"thought": "use the magic tool", "action": "teleport", "action_input": {}, "is_complete": false}`,
	}}
	p := testPlanner(t, provider)

	step, err := p.Plan(context.Background(), Input{Message: "go"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !step.IsComplete {
		t.Error("unknown tool should rewrite to completion")
	}
	if step.Action != "" {
		t.Errorf("action = %q, want empty", step.Action)
	}
	if !strings.Contains(step.Thought, "teleport") {
		t.Errorf("thought should name the unknown tool: %q", step.Thought)
	}
}

func TestPlanCompleteStepsDropAction(t *testing.T) {
	provider := &scriptProvider{responses: []string{
		`{"thought": "done", "action": "datetime", "action_input": {"operation": "today"}, "is_complete": true}`,
	}}
	p := testPlanner(t, provider)

	step, err := p.Plan(context.Background(), Input{Message: "x"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if step.Action != "" || step.ActionInput != nil {
		t.Errorf("complete step should drop action, got %+v", step)
	}
}

func TestPlanEmbedsObservations(t *testing.T) {
	provider := &scriptProvider{responses: []string{
		`{"thought": "done", "action": "", "is_complete": true}`,
	}}
	p := testPlanner(t, provider)

	_, err := p.Plan(context.Background(), Input{
		Message: "and now?",
		Observations: []models.Observation{
			{Tool: "get_reports", OK: true, Data: map[string]any{"clicks": 42}},
		},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	var found bool
	for _, m := range provider.requests[0].Messages {
		if m.Role == models.RoleSystem && strings.Contains(m.Content, "get_reports") {
			found = true
		}
	}
	if !found {
		t.Error("prompt missing prior observation")
	}
}
