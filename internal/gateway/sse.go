package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/adpilot-ai/adpilot/pkg/models"
)

// sseWriter flattens agent events into the wire frames of the streaming
// chat endpoint: one `data: <json>` frame per event, flushed immediately.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) write(ev models.AgentEvent) error {
	payload := frame(ev)
	if payload == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", body); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// frame converts an agent event into its wire shape. Unknown event types
// are dropped rather than leaked to clients.
func frame(ev models.AgentEvent) map[string]any {
	switch ev.Type {
	case models.EventThinking:
		if ev.Thinking == nil {
			return nil
		}
		return map[string]any{"type": "thinking", "message": ev.Thinking.Message}

	case models.EventThought:
		if ev.Thought == nil {
			return nil
		}
		return map[string]any{"type": "thought", "content": ev.Thought.Content}

	case models.EventAction:
		if ev.Action == nil {
			return nil
		}
		return map[string]any{"type": "action", "tool": ev.Action.Tool, "message": ev.Action.Message}

	case models.EventObservation:
		if ev.Observation == nil {
			return nil
		}
		obs := ev.Observation
		out := map[string]any{
			"type":    "observation",
			"tool":    obs.Tool,
			"success": obs.Success,
			"result":  obs.Result,
		}
		if len(obs.Attachments) > 0 {
			out["attachments"] = obs.Attachments
		}
		if len(obs.Images) > 0 {
			out["images"] = obs.Images
		}
		if obs.VideoURL != "" {
			out["video_url"] = obs.VideoURL
		}
		if obs.VideoObjectName != "" {
			out["video_object_name"] = obs.VideoObjectName
		}
		return out

	case models.EventEvaluation:
		if ev.Evaluation == nil {
			return nil
		}
		out := map[string]any{"type": "evaluation", "needs_input": ev.Evaluation.NeedsInput}
		if ev.Evaluation.Reason != "" {
			out["reason"] = ev.Evaluation.Reason
		}
		return out

	case models.EventReflection:
		if ev.Reflection == nil {
			return nil
		}
		return map[string]any{"type": "reflection", "content": ev.Reflection.Content}

	case models.EventText:
		if ev.Text == nil {
			return nil
		}
		return map[string]any{"type": "text", "content": ev.Text.Content}

	case models.EventInputRequest:
		if ev.InputRequest == nil {
			return nil
		}
		req := ev.InputRequest
		out := map[string]any{
			"type":     "user_input_request",
			"kind":     req.Kind,
			"question": req.Question,
		}
		if len(req.Options) > 0 {
			out["options"] = req.Options
		}
		if req.DefaultValue != "" {
			out["default_value"] = req.DefaultValue
		}
		if len(req.Metadata) > 0 {
			out["metadata"] = req.Metadata
		}
		return out

	case models.EventError:
		if ev.Error == nil {
			return nil
		}
		info := ev.Error
		out := map[string]any{
			"type":      "error",
			"code":      info.Code,
			"message":   info.Message,
			"retryable": info.Retryable,
		}
		if info.RetryAfter > 0 {
			out["retry_after"] = info.RetryAfter
		}
		if info.Action != "" {
			out["action"] = info.Action
		}
		if info.ActionURL != "" {
			out["action_url"] = info.ActionURL
		}
		if len(info.Details) > 0 {
			out["details"] = info.Details
		}
		return out

	case models.EventDone:
		return map[string]any{"type": "done"}
	}
	return nil
}
