package aiassist

import (
	"context"
	"fmt"

	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// PageSection is one block of generated landing page content.
type PageSection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

type pageContentArgs struct {
	Product  string `json:"product" jsonschema:"required,description=Product or service."`
	Template string `json:"template,omitempty" jsonschema:"enum=hero,enum=long_form,enum=comparison,enum=launch,description=Page layout template."`
	Audience string `json:"audience,omitempty" jsonschema:"description=Target audience."`
	Language string `json:"language,omitempty" jsonschema:"default=English,description=Content language."`
}

func pageContentDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "generate_page_content_tool",
		Description: "Generate full landing page content for a product.",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(10),
		Parameters:  tools.MustParams(&pageContentArgs{}),
		Returns:     "A page title and ordered content sections.",
	}
}

func pageContentHandler(opts Options) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		var out struct {
			Title    string        `json:"title"`
			Tagline  string        `json:"tagline"`
			Sections []PageSection `json:"sections"`
		}
		system := "You are a conversion-focused landing page writer. " +
			"Respond with a JSON object {\"title\", \"tagline\", \"sections\": [{\"heading\", \"content\"}]}."
		user := fmt.Sprintf("Write landing page content. Parameters: %s", promptJSON(params))
		if err := structured(ctx, opts, tc, system, user, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
