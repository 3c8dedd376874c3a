package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/adpilot-ai/adpilot/internal/llm"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// fixedProvider always returns the same completion.
type fixedProvider struct {
	response string
	err      error
	calls    int
}

func (p *fixedProvider) Name() string { return "fixed" }

func (p *fixedProvider) Complete(context.Context, llm.Request) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func nop(context.Context, map[string]any, tools.Context) (any, error) { return nil, nil }

func testEvaluator(t *testing.T, p llm.Provider) *Evaluator {
	t.Helper()
	providers := llm.NewRegistry("fixed", "fixed")
	if p != nil {
		providers.Register(p, "model-1")
	}

	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{Name: "datetime", Description: "time"}, nop)
	reg.MustRegister(models.ToolDescriptor{
		Name: "create_campaign", Description: "create",
		Parameters: []models.ParamSpec{
			{Name: "name", Type: models.ParamString, Required: true},
			{Name: "budget", Type: models.ParamNumber, Required: true},
		},
	}, nop)
	reg.MustRegister(models.ToolDescriptor{
		Name: "pause_campaign", Description: "pause", RequiresConfirmation: true,
		Parameters: []models.ParamSpec{
			{Name: "campaign_id", Type: models.ParamString, Required: true},
		},
	}, nop)
	reg.MustRegister(models.ToolDescriptor{
		Name: "generate_ad_copy", Description: "copy",
		Parameters: []models.ParamSpec{
			{Name: "product", Type: models.ParamString, Required: true},
			{Name: "style", Type: models.ParamString},
		},
	}, nop)
	return New(providers, reg, nil, Config{})
}

func clearResponse() string {
	return `{"clarity": 0.98, "parameter": "", "question": ""}`
}

func TestEvaluateCompleteStepPasses(t *testing.T) {
	e := testEvaluator(t, &fixedProvider{response: clearResponse()})
	eval := e.Evaluate(context.Background(), models.PlanStep{IsComplete: true, Thought: "done"}, Input{})
	if eval.NeedsInput {
		t.Errorf("complete step should pass, got %+v", eval)
	}
}

func TestEvaluateAutoApprove(t *testing.T) {
	provider := &fixedProvider{response: clearResponse()}
	e := testEvaluator(t, provider)
	eval := e.Evaluate(context.Background(), models.PlanStep{
		Action:      "datetime",
		ActionInput: map[string]any{"operation": "today"},
	}, Input{})
	if eval.NeedsInput {
		t.Errorf("auto-approve tool should pass, got %+v", eval)
	}
	if provider.calls != 0 {
		t.Errorf("auto-approve should not run the clarity check, calls = %d", provider.calls)
	}
}

func TestEvaluateHighRiskConfirm(t *testing.T) {
	e := testEvaluator(t, &fixedProvider{response: clearResponse()})
	step := models.PlanStep{
		Action:      "pause_campaign",
		ActionInput: map[string]any{"campaign_id": "c-1"},
	}
	eval := e.Evaluate(context.Background(), step, Input{})
	if !eval.NeedsInput || eval.Kind != models.EvalConfirm {
		t.Fatalf("eval = %+v, want confirm", eval)
	}
	if eval.SuggestedAction == nil || eval.SuggestedAction.Action != "pause_campaign" {
		t.Error("confirm must carry the full suggested action")
	}
}

func TestEvaluateSpendingThreshold(t *testing.T) {
	e := testEvaluator(t, &fixedProvider{response: clearResponse()})
	base := map[string]any{"name": "X", "budget": float64(75)}

	eval := e.Evaluate(context.Background(), models.PlanStep{
		Action: "create_campaign", ActionInput: base,
	}, Input{})
	if eval.Kind != models.EvalConfirm {
		t.Errorf("budget 75 should confirm, got %+v", eval)
	}

	eval = e.Evaluate(context.Background(), models.PlanStep{
		Action:      "create_campaign",
		ActionInput: map[string]any{"name": "X", "budget": float64(30)},
	}, Input{})
	if eval.Kind == models.EvalConfirm {
		t.Errorf("budget 30 should not confirm, got %+v", eval)
	}

	// Dollar-string budgets are still gated.
	eval = e.Evaluate(context.Background(), models.PlanStep{
		Action:      "create_campaign",
		ActionInput: map[string]any{"name": "X", "budget": "$75"},
	}, Input{})
	if eval.Kind != models.EvalConfirm {
		t.Errorf("budget \"$75\" should confirm, got %+v", eval)
	}
}

func TestEvaluateApprovedSkipsConfirmGates(t *testing.T) {
	e := testEvaluator(t, &fixedProvider{response: clearResponse()})
	step := models.PlanStep{
		Action:      "create_campaign",
		ActionInput: map[string]any{"name": "X", "budget": float64(75)},
	}
	eval := e.Evaluate(context.Background(), step, Input{Approved: true})
	if eval.NeedsInput {
		t.Errorf("approved step should pass, got %+v", eval)
	}
}

func TestEvaluateApprovedStillChecksMissingParams(t *testing.T) {
	e := testEvaluator(t, &fixedProvider{response: clearResponse()})
	step := models.PlanStep{
		Action:      "create_campaign",
		ActionInput: map[string]any{"budget": float64(75)},
	}
	eval := e.Evaluate(context.Background(), step, Input{Approved: true})
	if eval.Kind != models.EvalInput || eval.Parameter != "name" {
		t.Errorf("eval = %+v, want input on name", eval)
	}
}

func TestEvaluateMissingRequiredParameter(t *testing.T) {
	e := testEvaluator(t, &fixedProvider{response: clearResponse()})
	eval := e.Evaluate(context.Background(), models.PlanStep{
		Action:      "generate_ad_copy",
		ActionInput: map[string]any{},
	}, Input{})
	if eval.Kind != models.EvalInput || eval.Parameter != "product" {
		t.Fatalf("eval = %+v, want input on product", eval)
	}
}

func TestEvaluateAmbiguousParameterSelect(t *testing.T) {
	e := testEvaluator(t, &fixedProvider{response: clearResponse()})
	eval := e.Evaluate(context.Background(), models.PlanStep{
		Action:      "generate_ad_copy",
		ActionInput: map[string]any{"product": "running shoes", "style": "good"},
	}, Input{})
	if eval.Kind != models.EvalSelect || eval.Parameter != "style" {
		t.Fatalf("eval = %+v, want select on style", eval)
	}

	last, secondLast := eval.Options[len(eval.Options)-1], eval.Options[len(eval.Options)-2]
	if secondLast.Value != models.OptionOther {
		t.Errorf("second-to-last option = %+v, want __other__", secondLast)
	}
	if last.Value != models.OptionCancel {
		t.Errorf("last option = %+v, want __cancel__", last)
	}
}

func TestEvaluateClarityBelowThreshold(t *testing.T) {
	provider := &fixedProvider{response: `{"clarity": 0.4, "parameter": "targeting", "question": "Who should see these ads?"}`}
	e := testEvaluator(t, provider)
	eval := e.Evaluate(context.Background(), models.PlanStep{
		Action:      "generate_ad_copy",
		ActionInput: map[string]any{"product": "running shoes", "style": "casual"},
	}, Input{Message: "make ads"})
	if eval.Kind != models.EvalSelect || eval.Parameter != "targeting" {
		t.Fatalf("eval = %+v, want select on targeting", eval)
	}
	if eval.Question != "Who should see these ads?" {
		t.Errorf("question = %q", eval.Question)
	}
}

func TestEvaluateClarityFailsOpen(t *testing.T) {
	provider := &fixedProvider{err: errors.New("model down")}
	e := testEvaluator(t, provider)
	eval := e.Evaluate(context.Background(), models.PlanStep{
		Action:      "generate_ad_copy",
		ActionInput: map[string]any{"product": "running shoes", "style": "casual"},
	}, Input{})
	if eval.NeedsInput {
		t.Errorf("clarity failure should fail open, got %+v", eval)
	}
}

func TestIsVague(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"good", true},
		{"a", true},
		{"  ", true},
		{"Default", true},
		{"professional", false},
		{"vaporwave", false},
	}
	for _, tt := range tests {
		if got := isVague(tt.in); got != tt.want {
			t.Errorf("isVague(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
