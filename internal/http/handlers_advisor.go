package http

import (
	"fmt"
	"net/http"

	"finx/internal/advisor"
	"finx/internal/log"
	"finx/internal/ports"
)

// maxChatMessages caps the conversation history accepted per request.
const maxChatMessages = 50

type advisorContextResponse struct {
	Enabled bool                     `json:"enabled"`
	Context advisor.FinancialContext `json:"context"`
}

func (s *Server) handleAdvisorContext(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(advisorContextResponse{
		Enabled: s.svc.AdvisorEnabled(),
		Context: s.svc.AdvisorContext(),
	}).Write(w)
}

type chatRequest struct {
	Messages []ports.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleAdvisorChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpChat, err)
		return
	}
	if len(req.Messages) > maxChatMessages {
		writeError(w, r, log.OpChat, fmt.Errorf("%w: at most %d messages", errInvalidInput, maxChatMessages))
		return
	}
	for _, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			writeError(w, r, log.OpChat, fmt.Errorf("%w: %q", advisor.ErrInvalidRoles, m.Role))
			return
		}
	}

	reply, err := s.svc.Chat(r.Context(), req.Messages)
	if err != nil {
		writeError(w, r, log.OpChat, err)
		return
	}
	NewJSONResponse().Body(chatResponse{Reply: reply}).Write(w)
}
