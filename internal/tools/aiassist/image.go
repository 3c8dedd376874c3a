package aiassist

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

type adImageArgs struct {
	Prompt string `json:"prompt" jsonschema:"required,description=What the image should show."`
	Style  string `json:"style,omitempty" jsonschema:"enum=photo,enum=illustration,enum=3d,enum=minimal,description=Visual style."`
}

func adImageDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "generate_ad_image",
		Description: "Generate an ad image from a prompt and store it in the asset library.",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(8),
		Parameters:  tools.MustParams(&adImageArgs{}),
		Returns:     "The stored image URL and object name.",
	}
}

func adImageHandler(opts Options) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		provider, model, err := opts.Providers.Image(tc.Principal.Preferences)
		if err != nil {
			return nil, err
		}

		prompt := stringParam(params, "prompt")
		if style := stringParam(params, "style"); style != "" {
			prompt = fmt.Sprintf("%s, %s style", prompt, style)
		}

		data, err := provider.GenerateImage(ctx, prompt, model)
		if err != nil {
			return nil, err
		}

		name := fmt.Sprintf("sessions/%s/images/%s.png", tc.SessionID, uuid.NewString())
		obj, err := opts.Objects.Put(ctx, name, bytes.NewReader(data), "image/png")
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"url":         obj.URL,
			"object_name": obj.Name,
			"attachments": []models.Attachment{{
				Type:       "image",
				MimeType:   "image/png",
				URL:        obj.URL,
				ObjectName: obj.Name,
			}},
		}, nil
	}
}
