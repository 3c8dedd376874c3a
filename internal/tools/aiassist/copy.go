package aiassist

import (
	"context"
	"fmt"

	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// AdVariant is one generated ad copy variant.
type AdVariant struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
	CTA      string `json:"cta"`
}

type adCopyArgs struct {
	Product  string `json:"product" jsonschema:"required,description=Product or service to advertise."`
	Style    string `json:"style,omitempty" jsonschema:"enum=professional,enum=casual,enum=urgent,enum=playful,enum=luxury,description=Copy tone."`
	Audience string `json:"audience,omitempty" jsonschema:"description=Target audience."`
	Variants int    `json:"variants,omitempty" jsonschema:"default=3,description=Number of variants."`
}

func adCopyDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "generate_ad_copy",
		Description: "Generate ad copy variants (headline, body, call to action) for a product.",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(3),
		Parameters:  tools.MustParams(&adCopyArgs{}),
		Returns:     "A list of ad copy variants.",
	}
}

func adCopyHandler(opts Options) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		var out struct {
			Variants []AdVariant `json:"variants"`
		}
		system := "You are an expert advertising copywriter. " +
			"Respond with a JSON object {\"variants\": [{\"headline\", \"body\", \"cta\"}]}."
		user := fmt.Sprintf("Write ad copy. Parameters: %s", promptJSON(params))
		if err := structured(ctx, opts, tc, system, user, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

type optimizeCopyArgs struct {
	Copy string `json:"copy" jsonschema:"required,description=Existing ad copy."`
	Goal string `json:"goal,omitempty" jsonschema:"default=click-through rate,description=What to optimize for."`
}

func optimizeCopyDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "optimize_ad_copy",
		Description: "Improve existing ad copy for a stated goal.",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(2),
		Parameters:  tools.MustParams(&optimizeCopyArgs{}),
		Returns:     "Optimized copy and the list of changes made.",
	}
}

func optimizeCopyHandler(opts Options) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		var out struct {
			Headline     string   `json:"headline"`
			Body         string   `json:"body"`
			Improvements []string `json:"improvements"`
		}
		system := "You are an expert advertising copywriter. " +
			"Respond with a JSON object {\"headline\", \"body\", \"improvements\": []}."
		user := fmt.Sprintf("Optimize this ad copy for %s:\n\n%s",
			stringParam(params, "goal"), stringParam(params, "copy"))
		if err := structured(ctx, opts, tc, system, user, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

type translateArgs struct {
	Content        string `json:"content" jsonschema:"required,description=Content to translate."`
	TargetLanguage string `json:"target_language" jsonschema:"required,description=Target language."`
	Tone           string `json:"tone,omitempty" jsonschema:"description=Tone to preserve or adopt."`
}

func translateDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "translate_content",
		Description: "Translate marketing content to another language, preserving tone and intent.",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(2),
		Parameters:  tools.MustParams(&translateArgs{}),
		Returns:     "The translated content.",
	}
}

func translateHandler(opts Options) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		var out struct {
			Translated string `json:"translated"`
			Language   string `json:"language"`
			Notes      string `json:"notes,omitempty"`
		}
		system := "You are a marketing localization expert. " +
			"Respond with a JSON object {\"translated\", \"language\", \"notes\"}."
		user := fmt.Sprintf("Translate to %s. Parameters: %s",
			stringParam(params, "target_language"), promptJSON(params))
		if err := structured(ctx, opts, tc, system, user, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
