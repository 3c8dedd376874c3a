package models

import "time"

// ErrorInfo is the caller-facing shape of a classified failure. It mirrors
// the stable code taxonomy: code, message, retryability and an optional
// remediation hint.
type ErrorInfo struct {
	// Code is the stable numeric error code (1xxx-6xxx groups).
	Code int `json:"code"`

	// Message is the user-visible message for the code.
	Message string `json:"message"`

	// Retryable reports whether retrying the same request may succeed.
	Retryable bool `json:"retryable"`

	// RetryAfter suggests a wait before retrying, in seconds.
	RetryAfter int `json:"retry_after,omitempty"`

	// Action is a short remediation hint ("Top up credits").
	Action string `json:"action,omitempty"`

	// ActionURL points at the remediation surface.
	ActionURL string `json:"action_url,omitempty"`

	// Details carries structured context such as {required, available}.
	Details map[string]any `json:"details,omitempty"`
}

// Observation is the normalized outcome of executing a tool once. It is
// owned by the kernel iteration that produced it and never mutated after
// emission.
type Observation struct {
	// Tool is the name of the executed tool.
	Tool string `json:"tool"`

	// Parameters are the inputs the tool ran with.
	Parameters map[string]any `json:"parameters,omitempty"`

	// OK reports whether the tool succeeded.
	OK bool `json:"ok"`

	// Data is the tool's result payload on success.
	Data any `json:"data,omitempty"`

	// Error is the classified failure when OK is false.
	Error *ErrorInfo `json:"error,omitempty"`

	// CreditCharged is the number of credits actually deducted.
	CreditCharged int `json:"credit_charged"`

	// Attempts is how many execution attempts were made.
	Attempts int `json:"attempts"`

	// Attachments are media produced by the tool.
	Attachments []Attachment `json:"attachments,omitempty"`

	// Timestamp is when the observation was recorded.
	Timestamp time.Time `json:"timestamp"`
}
