// Package models provides the shared domain types for the AdPilot agent system.
package models

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a session's conversation log.
type Message struct {
	// Role is the message author.
	Role Role `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Timestamp is when the message was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Metadata carries optional per-message annotations (tool name,
	// attachment references, and similar).
	Metadata map[string]any `json:"metadata,omitempty"`

	// Attachments are optional media attached to the message.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment references a piece of media carried alongside a message.
type Attachment struct {
	// Type describes the attachment kind (image, video, file).
	Type string `json:"type"`

	// MimeType is the MIME type of the attachment data.
	MimeType string `json:"mime_type,omitempty"`

	// URL is where the attachment can be fetched.
	URL string `json:"url,omitempty"`

	// ObjectName is the object-store key when the attachment was uploaded.
	ObjectName string `json:"object_name,omitempty"`

	// Data contains inline base64 data for small payloads.
	Data string `json:"data,omitempty"`
}

// Preferences carries a caller's model selection for each modality.
// Empty fields fall back to the configured defaults.
type Preferences struct {
	TextProvider  string `json:"text_provider,omitempty"`
	TextModel     string `json:"text_model,omitempty"`
	ImageProvider string `json:"image_provider,omitempty"`
	ImageModel    string `json:"image_model,omitempty"`
	VideoProvider string `json:"video_provider,omitempty"`
	VideoModel    string `json:"video_model,omitempty"`
}

// Principal identifies the caller of a kernel run. It is carried through
// tool context for credit accounting and per-user data scoping, and is
// never stored by the kernel itself.
type Principal struct {
	// ID is the opaque caller identifier.
	ID string `json:"id"`

	// Preferences is the caller's optional model preference record.
	Preferences Preferences `json:"preferences,omitempty"`
}
