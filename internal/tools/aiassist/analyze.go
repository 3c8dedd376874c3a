package aiassist

import (
	"context"
	"fmt"

	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

type targetingArgs struct {
	Product   string `json:"product" jsonschema:"required,description=Product or service."`
	Objective string `json:"objective,omitempty" jsonschema:"enum=awareness,enum=traffic,enum=leads,enum=sales,description=Campaign objective."`
	Region    string `json:"region,omitempty" jsonschema:"description=Geographic focus."`
}

func targetingDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "suggest_targeting",
		Description: "Suggest audience targeting (demographics, interests, keywords) for a product.",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(2),
		Parameters:  tools.MustParams(&targetingArgs{}),
		Returns:     "Suggested audiences and keywords.",
	}
}

func targetingHandler(opts Options) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		var out struct {
			Audiences []struct {
				Name      string   `json:"name"`
				AgeRange  string   `json:"age_range"`
				Interests []string `json:"interests"`
			} `json:"audiences"`
			Keywords  []string `json:"keywords"`
			Rationale string   `json:"rationale"`
		}
		system := "You are a digital advertising strategist. " +
			"Respond with a JSON object {\"audiences\": [{\"name\", \"age_range\", \"interests\"}], \"keywords\": [], \"rationale\"}."
		user := fmt.Sprintf("Suggest targeting. Parameters: %s", promptJSON(params))
		if err := structured(ctx, opts, tc, system, user, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

type performanceArgs struct {
	Metrics map[string]any `json:"metrics" jsonschema:"required,description=Metric rows such as the get_reports output."`
	Focus   string         `json:"focus,omitempty" jsonschema:"description=Specific question to answer."`
}

func performanceDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "analyze_performance",
		Description: "Analyze campaign performance metrics and recommend improvements.",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(3),
		Parameters: tools.MustParams(&performanceArgs{}),
		Returns:    "A summary with findings and recommendations.",
	}
}

func performanceHandler(opts Options) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		var out struct {
			Summary         string   `json:"summary"`
			Findings        []string `json:"findings"`
			Recommendations []string `json:"recommendations"`
		}
		system := "You are a performance marketing analyst. " +
			"Respond with a JSON object {\"summary\", \"findings\": [], \"recommendations\": []}."
		user := fmt.Sprintf("Analyze these campaign metrics. Parameters: %s", promptJSON(params))
		if err := structured(ctx, opts, tc, system, user, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

type competitorArgs struct {
	Competitor string `json:"competitor" jsonschema:"required,description=Competitor name or site."`
	Focus      string `json:"focus,omitempty" jsonschema:"description=Aspect to focus on such as pricing or messaging."`
}

func competitorDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "analyze_competitor",
		Description: "Analyze a competitor's advertising presence and positioning.",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(5),
		Parameters:  tools.MustParams(&competitorArgs{}),
		Returns:     "Competitor strengths, weaknesses, and opportunities.",
	}
}

func competitorHandler(opts Options) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		var out struct {
			Summary       string   `json:"summary"`
			Strengths     []string `json:"strengths"`
			Weaknesses    []string `json:"weaknesses"`
			Opportunities []string `json:"opportunities"`
		}
		system := "You are a competitive intelligence analyst for advertising. " +
			"Respond with a JSON object {\"summary\", \"strengths\": [], \"weaknesses\": [], \"opportunities\": []}."
		user := fmt.Sprintf("Analyze this competitor. Parameters: %s", promptJSON(params))
		if err := structured(ctx, opts, tc, system, user, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
