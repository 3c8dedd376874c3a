package models

// PlanStep is the planner's decision for a single loop iteration.
//
// Field semantics:
//   - IsComplete=true means the task is finished; Action must be empty and
//     Thought carries the final assistant message.
//   - Action=="" with IsComplete=false means "speak only, no tool call";
//     the loop terminates with Thought as the final assistant message.
//   - Otherwise Action names a registered tool and ActionInput carries its
//     parameters.
type PlanStep struct {
	// Thought is the planner's free-text reasoning for this step.
	Thought string `json:"thought"`

	// Action is the tool to invoke, or empty for no tool call.
	Action string `json:"action,omitempty"`

	// ActionInput holds the tool parameters.
	ActionInput map[string]any `json:"action_input,omitempty"`

	// IsComplete signals the task is done.
	IsComplete bool `json:"is_complete"`
}

// EvalKind identifies the type of human input an evaluation requests.
type EvalKind string

const (
	// EvalNone means no human input is needed.
	EvalNone EvalKind = "none"

	// EvalConfirm asks the user to approve or cancel the planned action.
	EvalConfirm EvalKind = "confirm"

	// EvalSelect asks the user to pick one of several preset options.
	EvalSelect EvalKind = "select"

	// EvalInput asks the user for a free-text value.
	EvalInput EvalKind = "input"
)

// Synthetic option values appended to every selection list.
const (
	// OptionOther lets the user supply a custom value instead of a preset.
	OptionOther = "__other__"

	// OptionCancel aborts the pending plan.
	OptionCancel = "__cancel__"
)

// Option is a single selectable choice in a select-style input request.
type Option struct {
	// Value is the machine value substituted into the plan on selection.
	Value string `json:"value"`

	// Label is the human-readable choice text.
	Label string `json:"label"`

	// Description optionally elaborates on the choice.
	Description string `json:"description,omitempty"`

	// Primary marks the recommended choice.
	Primary bool `json:"primary,omitempty"`
}

// Evaluation is the human-in-the-loop gate's decision for a plan step.
// NeedsInput=false implies Kind==EvalNone.
type Evaluation struct {
	// NeedsInput reports whether the loop must suspend for the user.
	NeedsInput bool `json:"needs_input"`

	// Kind is the type of input requested.
	Kind EvalKind `json:"kind"`

	// Question is the prompt shown to the user.
	Question string `json:"question,omitempty"`

	// Parameter is the plan parameter the answer targets, for select and
	// input kinds.
	Parameter string `json:"parameter,omitempty"`

	// Options are the preset choices for select kind.
	Options []Option `json:"options,omitempty"`

	// SuggestedAction carries the full pending plan so the client can
	// display its parameters alongside a confirmation question.
	SuggestedAction *PlanStep `json:"suggested_action,omitempty"`

	// Reason explains the gate's decision.
	Reason string `json:"reason,omitempty"`
}

// ResumeInput is the user's answer when re-entering a suspended run.
type ResumeInput struct {
	// Value is the raw answer for confirm and input kinds.
	Value any `json:"value,omitempty"`

	// SelectedOption is the chosen option value for select kind.
	SelectedOption string `json:"selected_option,omitempty"`

	// CustomValue is the user-supplied value when SelectedOption is
	// OptionOther.
	CustomValue string `json:"custom_value,omitempty"`

	// Cancelled aborts the pending plan.
	Cancelled bool `json:"cancelled,omitempty"`
}
