// Package evaluator implements the human-in-the-loop gate. It inspects
// each plan step against a fixed decision table (auto-approve, high-risk,
// spending, missing or ambiguous parameters) plus an LLM clarity check,
// and decides whether the loop must suspend for user input.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/adpilot-ai/adpilot/internal/llm"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// DefaultBudgetThreshold gates spending-set tools, in dollars.
const DefaultBudgetThreshold = 50.0

// DefaultClarityThreshold gates the LLM clarity score.
const DefaultClarityThreshold = 0.9

// autoApprove is the fixed set of read-only utilities that never need
// confirmation.
var autoApprove = map[string]bool{
	"datetime":       true,
	"calculator":     true,
	"web_search":     true,
	"get_balance":    true,
	"get_reports":    true,
	"list_creatives": true,
}

// highRisk is the fixed set of mutations that always need confirmation.
var highRisk = map[string]bool{
	"update_campaign":      true,
	"pause_campaign":       true,
	"disconnect_account":   true,
	"publish_landing_page": true,
}

// spending is the set of tools gated by a budget threshold.
var spending = map[string]bool{
	"create_campaign": true,
}

// ambiguousParams are parameters that suspend for a preset selection when
// their value is vague.
var ambiguousParams = []string{"style", "template", "targeting", "objective", "placement"}

// presetOptions are the selection catalogs per ambiguous parameter.
var presetOptions = map[string][]models.Option{
	"style": {
		{Value: "professional", Label: "Professional", Primary: true},
		{Value: "casual", Label: "Casual"},
		{Value: "urgent", Label: "Urgent"},
		{Value: "playful", Label: "Playful"},
		{Value: "luxury", Label: "Luxury"},
	},
	"template": {
		{Value: "hero", Label: "Hero", Description: "Single strong offer above the fold", Primary: true},
		{Value: "long_form", Label: "Long form", Description: "Detailed sections with social proof"},
		{Value: "comparison", Label: "Comparison", Description: "Side-by-side against alternatives"},
		{Value: "launch", Label: "Launch", Description: "Countdown and early access"},
	},
	"targeting": {
		{Value: "broad", Label: "Broad", Description: "Let the platform optimize", Primary: true},
		{Value: "interest", Label: "Interest based", Description: "Match declared interests"},
		{Value: "lookalike", Label: "Lookalike", Description: "Similar to existing customers"},
		{Value: "retargeting", Label: "Retargeting", Description: "People who already visited"},
	},
	"objective": {
		{Value: "awareness", Label: "Awareness"},
		{Value: "traffic", Label: "Traffic"},
		{Value: "leads", Label: "Leads"},
		{Value: "sales", Label: "Sales", Primary: true},
	},
	"placement": {
		{Value: "feed", Label: "Feed", Primary: true},
		{Value: "stories", Label: "Stories"},
		{Value: "search", Label: "Search"},
		{Value: "display", Label: "Display"},
	},
}

// vagueValues are generic words that do not disambiguate a parameter.
var vagueValues = map[string]bool{
	"good": true, "nice": true, "normal": true, "default": true,
	"any": true, "standard": true, "regular": true, "whatever": true,
	"best": true, "something": true,
}

// Evaluator decides whether a plan step needs human input.
type Evaluator struct {
	providers        *llm.Registry
	registry         *tools.Registry
	logger           *slog.Logger
	budgetThreshold  float64
	clarityThreshold float64
}

// Config tunes the evaluator thresholds.
type Config struct {
	BudgetThreshold  float64
	ClarityThreshold float64
}

// New creates an evaluator. Zero thresholds take the defaults.
func New(providers *llm.Registry, registry *tools.Registry, logger *slog.Logger, cfg Config) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BudgetThreshold <= 0 {
		cfg.BudgetThreshold = DefaultBudgetThreshold
	}
	if cfg.ClarityThreshold <= 0 {
		cfg.ClarityThreshold = DefaultClarityThreshold
	}
	return &Evaluator{
		providers:        providers,
		registry:         registry,
		logger:           logger,
		budgetThreshold:  cfg.BudgetThreshold,
		clarityThreshold: cfg.ClarityThreshold,
	}
}

// Input carries per-run evaluation context.
type Input struct {
	// Message is the user's current request.
	Message string

	// Preferences select the clarity-check model.
	Preferences models.Preferences

	// Approved marks a step the user already confirmed on resume;
	// confirmation gates and the clarity check are skipped, while
	// missing-parameter and ambiguity checks still apply.
	Approved bool
}

// Evaluate runs the decision table. First match wins.
func (e *Evaluator) Evaluate(ctx context.Context, step models.PlanStep, in Input) models.Evaluation {
	pass := models.Evaluation{NeedsInput: false, Kind: models.EvalNone}

	if step.IsComplete || step.Action == "" {
		return pass
	}
	if autoApprove[step.Action] {
		return pass
	}

	tool, known := e.registry.Lookup(step.Action)

	if !in.Approved {
		if highRisk[step.Action] || (known && tool.Descriptor.RequiresConfirmation) {
			return confirmEvaluation(step, "high-risk action")
		}
		if spending[step.Action] {
			if budget, ok := numberParam(step.ActionInput, "budget"); ok && budget > e.budgetThreshold {
				return confirmEvaluation(step,
					fmt.Sprintf("budget $%.2f exceeds the $%.0f threshold", budget, e.budgetThreshold))
			}
		}
	}

	if known {
		if missing := tool.MissingRequired(step.ActionInput); missing != "" {
			return models.Evaluation{
				NeedsInput: true,
				Kind:       models.EvalInput,
				Parameter:  missing,
				Question:   fmt.Sprintf("What should I use for %q?", missing),
				Reason:     "missing required parameter",
			}
		}
	}

	for _, name := range ambiguousParams {
		value, present := step.ActionInput[name]
		if !present {
			continue
		}
		if s, ok := value.(string); ok && isVague(s) {
			return e.selectEvaluation(name, s)
		}
	}

	if !in.Approved {
		if eval, suspend := e.clarityCheck(ctx, step, in); suspend {
			return eval
		}
	}

	return pass
}

func confirmEvaluation(step models.PlanStep, reason string) models.Evaluation {
	planCopy := step
	return models.Evaluation{
		NeedsInput:      true,
		Kind:            models.EvalConfirm,
		Question:        fmt.Sprintf("Do you want me to run %s with these parameters?", step.Action),
		SuggestedAction: &planCopy,
		Reason:          reason,
	}
}

// selectEvaluation builds a selection request for an ambiguous parameter.
// Every option list ends with the synthetic other and cancel entries.
func (e *Evaluator) selectEvaluation(param, value string) models.Evaluation {
	options := append([]models.Option(nil), presetOptions[param]...)
	options = append(options,
		models.Option{Value: models.OptionOther, Label: "Something else"},
		models.Option{Value: models.OptionCancel, Label: "Cancel"},
	)
	question := fmt.Sprintf("Which %s would you like?", param)
	if value != "" {
		question = fmt.Sprintf("%q is a bit generic. Which %s would you like?", value, param)
	}
	return models.Evaluation{
		NeedsInput: true,
		Kind:       models.EvalSelect,
		Parameter:  param,
		Question:   question,
		Options:    options,
		Reason:     "ambiguous parameter",
	}
}

// isVague reports whether a parameter value is too short or generic to
// act on.
func isVague(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return true
	}
	return vagueValues[s]
}

// clarityCheck asks the model to score how unambiguous the step is. On
// any model failure it fails open: the hard gates above already ran.
func (e *Evaluator) clarityCheck(ctx context.Context, step models.PlanStep, in Input) (models.Evaluation, bool) {
	provider, model, err := e.providers.Text(in.Preferences)
	if err != nil {
		return models.Evaluation{}, false
	}

	var verdict struct {
		Clarity   float64 `json:"clarity"`
		Parameter string  `json:"parameter"`
		Question  string  `json:"question"`
	}
	req := llm.Request{
		System: `You check whether a planned tool call unambiguously matches the user's request. Respond with only a JSON object {"clarity": <0.0-1.0>, "parameter": "<least clear parameter or empty>", "question": "<clarifying question or empty>"}.`,
		Messages: []models.Message{{
			Role: models.RoleUser,
			Content: fmt.Sprintf("User request: %s\nPlanned call: %s %s",
				in.Message, step.Action, compactParams(step.ActionInput)),
		}},
		Model:       model,
		Temperature: 0,
		MaxTokens:   200,
	}
	if err := llm.StructuredCall(ctx, provider, req, &verdict); err != nil {
		e.logger.Debug("clarity check failed open", "error", err, "tool", step.Action)
		return models.Evaluation{}, false
	}
	if verdict.Clarity >= e.clarityThreshold {
		return models.Evaluation{}, false
	}
	param := verdict.Parameter
	if param == "" {
		return models.Evaluation{}, false
	}

	eval := e.selectEvaluation(param, "")
	if verdict.Question != "" {
		eval.Question = verdict.Question
	}
	eval.Reason = fmt.Sprintf("clarity %.2f below threshold", verdict.Clarity)
	return eval, true
}

func compactParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(params))
	for k, v := range params {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// numberParam extracts a numeric parameter, accepting JSON numbers and
// numeric strings like "$75".
func numberParam(params map[string]any, name string) (float64, bool) {
	v, ok := params[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n), "$"))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
