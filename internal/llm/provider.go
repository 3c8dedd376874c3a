// Package llm provides the model provider abstraction used by the planner,
// the evaluator, and the AI-assisted tools. Providers wrap vendor SDKs
// behind a uniform non-streaming completion interface; structured JSON
// responses go through StructuredCall which performs one repair retry.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Request is a single completion request.
type Request struct {
	// System is the system instruction.
	System string

	// Messages is the conversation, oldest first.
	Messages []models.Message

	// Model overrides the provider's default model when non-empty.
	Model string

	// MaxTokens bounds the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls sampling. Zero value means provider default.
	Temperature float32

	// ForceJSON asks the provider for a strict-JSON response where the
	// vendor API supports it.
	ForceJSON bool
}

// Provider is a text model vendor.
type Provider interface {
	// Name returns the provider's registry name ("openai", "anthropic", ...).
	Name() string

	// Complete returns the model's full text response.
	Complete(ctx context.Context, req Request) (string, error)
}

// ImageProvider generates images from prompts.
type ImageProvider interface {
	// GenerateImage returns the raw image bytes for the prompt.
	GenerateImage(ctx context.Context, prompt, model string) ([]byte, error)
}

// Registry holds the configured providers and resolves caller preferences
// to a concrete provider and model.
type Registry struct {
	providers     map[string]Provider
	images        map[string]ImageProvider
	defaultText   string
	defaultImage  string
	defaultModels map[string]string
}

// NewRegistry creates an empty provider registry with the given defaults.
func NewRegistry(defaultText, defaultImage string) *Registry {
	return &Registry{
		providers:     make(map[string]Provider),
		images:        make(map[string]ImageProvider),
		defaultText:   defaultText,
		defaultImage:  defaultImage,
		defaultModels: make(map[string]string),
	}
}

// Register adds a text provider with its default model.
func (r *Registry) Register(p Provider, defaultModel string) {
	r.providers[p.Name()] = p
	r.defaultModels[p.Name()] = defaultModel
	if ip, ok := p.(ImageProvider); ok {
		r.images[p.Name()] = ip
	}
}

// Text resolves the caller's preference to a text provider and model.
// Unknown preferences fall back to the default provider.
func (r *Registry) Text(prefs models.Preferences) (Provider, string, error) {
	name := prefs.TextProvider
	if name == "" {
		name = r.defaultText
	}
	p, ok := r.providers[name]
	if !ok {
		p, ok = r.providers[r.defaultText]
		if !ok {
			return nil, "", fault.New(fault.CodeModelUnavailable, "no text provider configured")
		}
	}
	model := prefs.TextModel
	if model == "" {
		model = r.defaultModels[p.Name()]
	}
	return p, model, nil
}

// Image resolves the caller's preference to an image provider and model.
func (r *Registry) Image(prefs models.Preferences) (ImageProvider, string, error) {
	name := prefs.ImageProvider
	if name == "" {
		name = r.defaultImage
	}
	p, ok := r.images[name]
	if !ok {
		p, ok = r.images[r.defaultImage]
		if !ok {
			return nil, "", fault.New(fault.CodeModelUnavailable, "no image provider configured")
		}
	}
	model := prefs.ImageModel
	return p, model, nil
}

// mapProviderErr classifies a vendor SDK error into the model error family.
func mapProviderErr(err error) error {
	if err == nil {
		return nil
	}
	var f *fault.Fault
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Wrap(fault.CodeModelTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "billing") ||
		strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return fault.Wrap(fault.CodeModelQuota, err).WithRetryAfter(60 * time.Second)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return fault.Wrap(fault.CodeModelTimeout, err)
	default:
		return fault.Wrap(fault.CodeModelUnavailable, err)
	}
}
