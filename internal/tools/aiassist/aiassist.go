// Package aiassist implements the credit-priced generation tools. Each
// tool renders a prompt template, calls the caller's preferred text or
// image model, and returns structured output. Credits are settled by the
// executor only after the handler succeeds.
package aiassist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adpilot-ai/adpilot/internal/llm"
	"github.com/adpilot-ai/adpilot/internal/objectstore"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Options wires the AI-assisted tool set.
type Options struct {
	// Providers resolves model preferences to providers.
	Providers *llm.Registry

	// Objects stores generated media. Nil disables generate_ad_image.
	Objects objectstore.Store
}

// RegisterAll registers every AI-assisted tool into the registry.
func RegisterAll(reg *tools.Registry, opts Options) error {
	register := []struct {
		desc    models.ToolDescriptor
		handler tools.Handler
	}{
		{adCopyDescriptor(), adCopyHandler(opts)},
		{optimizeCopyDescriptor(), optimizeCopyHandler(opts)},
		{targetingDescriptor(), targetingHandler(opts)},
		{performanceDescriptor(), performanceHandler(opts)},
		{competitorDescriptor(), competitorHandler(opts)},
		{pageContentDescriptor(), pageContentHandler(opts)},
		{translateDescriptor(), translateHandler(opts)},
	}
	for _, r := range register {
		if err := reg.Register(r.desc, r.handler); err != nil {
			return err
		}
	}
	if opts.Objects != nil {
		if err := reg.Register(adImageDescriptor(), adImageHandler(opts)); err != nil {
			return err
		}
	}
	return nil
}

// structured calls the caller's preferred text model and decodes a strict
// JSON response into out.
func structured[T any](ctx context.Context, opts Options, tc tools.Context, system, user string, out *T) error {
	provider, model, err := opts.Providers.Text(tc.Principal.Preferences)
	if err != nil {
		return err
	}
	req := llm.Request{
		System:      system,
		Messages:    []models.Message{{Role: models.RoleUser, Content: user}},
		Model:       model,
		Temperature: 0.7,
	}
	return llm.StructuredCall(ctx, provider, req, out)
}

// promptJSON renders params as a compact JSON block for prompt templates.
func promptJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

func stringParam(params map[string]any, name string) string {
	s, _ := params[name].(string)
	return s
}
