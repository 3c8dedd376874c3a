package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adpilot-ai/adpilot/pkg/models"
)

// StructuredCall requests a strict-JSON response from the provider and
// decodes it into out. A malformed response triggers exactly one repair
// attempt: the raw output is sent back with a fix-this instruction. If the
// repair also fails to parse, the last decode error is returned.
func StructuredCall[T any](ctx context.Context, p Provider, req Request, out *T) error {
	req.ForceJSON = true

	raw, err := p.Complete(ctx, req)
	if err != nil {
		return err
	}
	decodeErr := decodeJSON(raw, out)
	if decodeErr == nil {
		return nil
	}

	repair := req
	repair.Messages = append(append([]models.Message(nil), req.Messages...),
		models.Message{Role: models.RoleAssistant, Content: raw},
		models.Message{
			Role: models.RoleSystem,
			Content: "Your previous response was not valid JSON (" + decodeErr.Error() +
				"). Respond again with only the corrected JSON object and nothing else.",
		},
	)
	raw, err = p.Complete(ctx, repair)
	if err != nil {
		return err
	}
	if err := decodeJSON(raw, out); err != nil {
		return fmt.Errorf("structured response unparseable after repair: %w", err)
	}
	return nil
}

// decodeJSON extracts the first JSON object from the text and decodes it.
// Models frequently wrap JSON in markdown fences or prose.
func decodeJSON(raw string, out any) error {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("no JSON object found in response")
	}
	return json.Unmarshal([]byte(cleaned), out)
}

// ExtractJSON returns the outermost JSON object embedded in text, handling
// markdown code fences and surrounding prose. Returns "" when no balanced
// object exists.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
