package tools

import (
	"fmt"
	"strings"
	"sync"

	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Registry manages the available tools with thread-safe registration and
// lookup. Registration order is preserved so the planner prompt lists
// tools deterministically.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. It fails on a duplicate name or a parameter list
// that does not compile to a valid schema.
func (r *Registry) Register(desc models.ToolDescriptor, handler Handler) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if handler == nil {
		return fmt.Errorf("register tool %q: nil handler", name)
	}
	schema, err := compileParams(name, desc.Parameters)
	if err != nil {
		return fmt.Errorf("register tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("register tool: duplicate name %q", name)
	}
	desc.Name = name
	r.tools[name] = &Tool{Descriptor: desc, Handler: handler, schema: schema}
	r.order = append(r.order, name)
	return nil
}

// MustRegister registers a tool and panics on failure. Tool catalogs are
// assembled at startup from static descriptors, so a failure here is a
// programming error.
func (r *Registry) MustRegister(desc models.ToolDescriptor, handler Handler) {
	if err := r.Register(desc, handler); err != nil {
		panic(err)
	}
}

// Lookup returns a tool by name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptors returns all tool descriptors in registration order.
func (r *Registry) Descriptors() []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Descriptor)
	}
	return out
}

// Prepare validates and normalizes parameters for the named tool:
// defaults applied, loose types coerced, schema enforced.
func (t *Tool) Prepare(params map[string]any) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	return t.schema.prepare(params)
}

// MissingRequired returns the first required parameter absent from params,
// or "" when the call is complete.
func (t *Tool) MissingRequired(params map[string]any) string {
	return t.schema.missingRequired(params)
}

// CatalogPrompt renders the registered tools as a text block for the
// planner system prompt.
func (r *Registry) CatalogPrompt() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, name := range r.order {
		d := r.tools[name].Descriptor
		sb.WriteString("- ")
		sb.WriteString(d.Name)
		sb.WriteString(": ")
		sb.WriteString(d.Description)
		if d.Priced() {
			fmt.Fprintf(&sb, " (costs %d credits)", d.Cost())
		}
		sb.WriteString("\n")
		for _, p := range d.Parameters {
			sb.WriteString("    ")
			sb.WriteString(p.Name)
			sb.WriteString(" (")
			sb.WriteString(string(p.Type))
			if p.Required {
				sb.WriteString(", required")
			}
			sb.WriteString(")")
			if p.Description != "" {
				sb.WriteString(": ")
				sb.WriteString(p.Description)
			}
			if len(p.Enum) > 0 {
				fmt.Fprintf(&sb, " [one of: %s]", strings.Join(p.Enum, ", "))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
