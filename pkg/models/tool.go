package models

// ToolCategory groups tools by their execution class.
type ToolCategory string

const (
	// CategoryBuiltin is a free utility with bounded latency and no
	// external mutation.
	CategoryBuiltin ToolCategory = "builtin"

	// CategoryAIAssisted delegates to the LLM through a prompt template.
	CategoryAIAssisted ToolCategory = "ai_assisted"

	// CategoryExternalProxy wraps an external backend HTTP endpoint.
	CategoryExternalProxy ToolCategory = "external_proxy"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
	ParamArray   ParamType = "array"
)

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	// Name is the parameter name.
	Name string `json:"name"`

	// Type is the JSON type of the parameter value.
	Type ParamType `json:"type"`

	// Required marks the parameter as mandatory.
	Required bool `json:"required,omitempty"`

	// Default is the value used when the parameter is absent.
	Default any `json:"default,omitempty"`

	// Enum restricts string parameters to a fixed value set.
	Enum []string `json:"enum,omitempty"`

	// Description explains the parameter to the planner LLM.
	Description string `json:"description,omitempty"`
}

// ToolDescriptor describes a registered tool. Descriptors are immutable
// once registered; names are globally unique within a registry.
type ToolDescriptor struct {
	// Name is the unique tool name used for dispatch.
	Name string `json:"name"`

	// Description explains what the tool does, for the planner LLM.
	Description string `json:"description"`

	// Category is the tool's execution class.
	Category ToolCategory `json:"category"`

	// Parameters is the ordered parameter list.
	Parameters []ParamSpec `json:"parameters,omitempty"`

	// Returns is a free-form description of the tool's output.
	Returns string `json:"returns,omitempty"`

	// CreditCost is the fixed credit price per invocation. Nil means the
	// tool is free and bypasses the credit gate entirely.
	CreditCost *int `json:"credit_cost,omitempty"`

	// RequiresConfirmation forces a human confirmation before execution.
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`

	// Tags are informational labels; they never influence dispatch.
	Tags []string `json:"tags,omitempty"`
}

// Cost returns the descriptor's credit cost, or zero for free tools.
func (d ToolDescriptor) Cost() int {
	if d.CreditCost == nil {
		return 0
	}
	return *d.CreditCost
}

// Priced reports whether the tool carries a credit cost.
func (d ToolDescriptor) Priced() bool {
	return d.CreditCost != nil
}

// CostOf is a convenience for building descriptor literals.
func CostOf(n int) *int { return &n }
