package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/kernel"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

const maxChatBodyBytes = 1 << 20

// chatRequest is the body of POST /v1/chat. The last message is the new
// user message; earlier messages override the stored conversation log.
type chatRequest struct {
	Messages         []chatMessage       `json:"messages"`
	UserID           string              `json:"user_id"`
	SessionID        string              `json:"session_id"`
	ModelPreferences *modelPreferences   `json:"model_preferences,omitempty"`
	Resume           *models.ResumeInput `json:"resume,omitempty"`
}

type chatMessage struct {
	Role        string              `json:"role"`
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

type modelPreferences struct {
	ConversationalProvider  string `json:"conversational_provider,omitempty"`
	ConversationalModel     string `json:"conversational_model,omitempty"`
	ImageGenerationProvider string `json:"image_generation_provider,omitempty"`
	ImageGenerationModel    string `json:"image_generation_model,omitempty"`
	VideoGenerationProvider string `json:"video_generation_provider,omitempty"`
	VideoGenerationModel    string `json:"video_generation_model,omitempty"`
}

func (p *modelPreferences) toModel() models.Preferences {
	if p == nil {
		return models.Preferences{}
	}
	return models.Preferences{
		TextProvider:  p.ConversationalProvider,
		TextModel:     p.ConversationalModel,
		ImageProvider: p.ImageGenerationProvider,
		ImageModel:    p.ImageGenerationModel,
		VideoProvider: p.VideoGenerationProvider,
		VideoModel:    p.VideoGenerationModel,
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fault.Wrap(fault.CodeValidation, err))
		return
	}

	req := kernel.Request{
		SessionID: body.SessionID,
		Principal: models.Principal{
			ID:          body.UserID,
			Preferences: body.ModelPreferences.toModel(),
		},
		Resume: body.Resume,
	}

	if n := len(body.Messages); n > 0 {
		last := body.Messages[n-1]
		req.Message = last.Content
		req.Attachments = last.Attachments
		for _, m := range body.Messages[:n-1] {
			req.History = append(req.History, models.Message{
				Role:        models.Role(m.Role),
				Content:     m.Content,
				Attachments: m.Attachments,
			})
		}
	}

	events, err := s.kernel.Run(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if fault.From(err).Code != fault.CodeValidation {
			status = http.StatusInternalServerError
		}
		writeError(w, status, err)
		return
	}

	stream, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fault.Wrap(fault.CodeInternal, err))
		return
	}

	for ev := range events {
		if err := stream.write(ev); err != nil {
			// Client went away; the request context cancels the kernel.
			s.logger.Debug("chat stream write failed", "error", err)
			return
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": fault.From(err).Info()})
}
