package backendproxy

import (
	"context"

	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// RegisterAll registers the external-proxy tools. Mutating tools carry
// RequiresConfirmation so the evaluator gates them before execution.
func RegisterAll(reg *tools.Registry, client *Client) error {
	for _, spec := range catalog() {
		spec := spec
		handler := func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
			body := make(map[string]any, len(params)+1)
			for k, v := range params {
				body[k] = v
			}
			if tc.OperationID != "" {
				body["operation_id"] = tc.OperationID
			}
			return client.Call(ctx, spec.Name, tc.Principal.ID, body)
		}
		if err := reg.Register(spec, handler); err != nil {
			return err
		}
	}
	return nil
}

// catalog returns the external tool descriptors. All proxy tools are free;
// the backend bills campaign spend on its own side.
func catalog() []models.ToolDescriptor {
	return []models.ToolDescriptor{
		{
			Name:        "create_campaign",
			Description: "Create a new advertising campaign on the connected ad account.",
			Category:    models.CategoryExternalProxy,
			Parameters: []models.ParamSpec{
				{Name: "name", Type: models.ParamString, Required: true, Description: "Campaign name."},
				{Name: "account_id", Type: models.ParamString, Required: true, Description: "Ad account id."},
				{Name: "objective", Type: models.ParamString, Required: true,
					Description: "Campaign objective."},
				{Name: "budget", Type: models.ParamNumber, Required: true,
					Description: "Daily budget in dollars."},
				{Name: "targeting", Type: models.ParamObject, Description: "Audience targeting settings."},
			},
			Returns: "The created campaign with its id and status.",
			Tags:    []string{"spending"},
		},
		{
			Name:        "update_campaign",
			Description: "Update settings of an existing campaign.",
			Category:    models.CategoryExternalProxy,
			Parameters: []models.ParamSpec{
				{Name: "campaign_id", Type: models.ParamString, Required: true, Description: "Campaign to update."},
				{Name: "changes", Type: models.ParamObject, Required: true,
					Description: "Fields to change, e.g. budget or schedule."},
			},
			Returns:              "The updated campaign.",
			RequiresConfirmation: true,
			Tags:                 []string{"high_risk"},
		},
		{
			Name:        "pause_campaign",
			Description: "Pause a running campaign.",
			Category:    models.CategoryExternalProxy,
			Parameters: []models.ParamSpec{
				{Name: "campaign_id", Type: models.ParamString, Required: true, Description: "Campaign to pause."},
			},
			Returns:              "The paused campaign status.",
			RequiresConfirmation: true,
			Tags:                 []string{"high_risk"},
		},
		{
			Name:        "disconnect_account",
			Description: "Disconnect a linked ad account from the user's profile.",
			Category:    models.CategoryExternalProxy,
			Parameters: []models.ParamSpec{
				{Name: "account_id", Type: models.ParamString, Required: true, Description: "Account to disconnect."},
			},
			Returns:              "Confirmation of the disconnect.",
			RequiresConfirmation: true,
			Tags:                 []string{"high_risk"},
		},
		{
			Name:        "save_creative",
			Description: "Save an ad creative (copy, image, or both) to the user's library.",
			Category:    models.CategoryExternalProxy,
			Parameters: []models.ParamSpec{
				{Name: "name", Type: models.ParamString, Required: true, Description: "Creative name."},
				{Name: "headline", Type: models.ParamString, Description: "Headline text."},
				{Name: "body", Type: models.ParamString, Description: "Body text."},
				{Name: "image_url", Type: models.ParamString, Description: "Image asset URL."},
			},
			Returns: "The saved creative with its id.",
		},
		{
			Name:        "list_creatives",
			Description: "List the ad creatives in the user's library.",
			Category:    models.CategoryExternalProxy,
			Parameters: []models.ParamSpec{
				{Name: "limit", Type: models.ParamInteger, Default: 20, Description: "Maximum creatives to return."},
			},
			Returns: "Creatives with id, name, and assets.",
		},
		{
			Name:        "publish_landing_page",
			Description: "Publish a landing page draft to its public URL.",
			Category:    models.CategoryExternalProxy,
			Parameters: []models.ParamSpec{
				{Name: "page_id", Type: models.ParamString, Required: true, Description: "Landing page draft id."},
			},
			Returns:              "The public URL of the published page.",
			RequiresConfirmation: true,
			Tags:                 []string{"high_risk"},
		},
		{
			Name:        "upload_asset",
			Description: "Register an uploaded media asset with the backend asset library.",
			Category:    models.CategoryExternalProxy,
			Parameters: []models.ParamSpec{
				{Name: "url", Type: models.ParamString, Required: true, Description: "Object store URL of the asset."},
				{Name: "kind", Type: models.ParamString, Default: "image",
					Enum:        []string{"image", "video", "document"},
					Description: "Asset type."},
				{Name: "name", Type: models.ParamString, Description: "Display name."},
			},
			Returns: "The registered asset with its id.",
		},
	}
}

// Reports fetches campaign reports. It backs the builtin get_reports tool.
func (c *Client) Reports(ctx context.Context, userID string, params map[string]any) (any, error) {
	return c.Call(ctx, "get_reports", userID, params)
}
