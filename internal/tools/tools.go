// Package tools implements the tool registry and the dispatch contract
// shared by built-in utilities, AI-assisted generators, and external
// backend proxies. The registry validates parameters against each tool's
// declared schema before any handler runs.
package tools

import (
	"context"

	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Context carries per-invocation identity into a tool handler.
type Context struct {
	// Principal is the authenticated caller.
	Principal models.Principal

	// SessionID is the owning conversation session.
	SessionID string

	// OperationID deduplicates credit deductions for this invocation.
	// It is stable across suspend/resume of the same planned step.
	OperationID string
}

// Handler executes a tool. Params have already been validated against the
// descriptor schema and defaults applied. The returned value must be
// JSON-serializable.
type Handler func(ctx context.Context, params map[string]any, tc Context) (any, error)

// Tool pairs a descriptor with its handler and compiled parameter schema.
type Tool struct {
	Descriptor models.ToolDescriptor
	Handler    Handler

	schema *paramSchema
}
