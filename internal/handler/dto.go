package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/service"
)

// Texts shown to visitors when a reply cannot be produced.
const (
	ChatUnavailableMessage = "Unable to process your message at the moment."
	ContactFallback        = "In the meantime, you can contact the trainer directly at hello@trainer.com or call (555) 123-4567."
	LeadReceivedMessage    = "Thanks! The trainer will contact you within 24 hours!"
)

// HistoryMessage is one client-held transcript entry.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []HistoryMessage `json:"conversationHistory"`
}

// History converts the client transcript to domain messages.
func (r ChatRequest) History() []domain.Message {
	out := make([]domain.Message, 0, len(r.ConversationHistory))
	for _, m := range r.ConversationHistory {
		out = append(out, domain.Message{Role: domain.Role(m.Role), Content: m.Content})
	}
	return out
}

// ChatResponse is a successful stateless reply.
type ChatResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatErrorResponse is the chat endpoint's error body.
type ChatErrorResponse struct {
	Error    string `json:"error"`
	Fallback string `json:"fallback,omitempty"`
}

// LeadResponse acknowledges a lead form submission.
type LeadResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SessionMessageRequest is the body of a widget message.
type SessionMessageRequest struct {
	Message string `json:"message"`
}

// TranscriptMessage is one transcript entry in a session view.
type TranscriptMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// SessionResponse is what the widget renders after each call.
type SessionResponse struct {
	SessionID             string              `json:"sessionId,omitempty"`
	Reply                 string              `json:"reply"`
	Options               []string            `json:"options"`
	Phase                 string              `json:"phase,omitempty"`
	ReadyForBooking       bool                `json:"readyForBooking"`
	HasSentSchedulingLink bool                `json:"hasSentSchedulingLink"`
	SchedulingURL         string              `json:"schedulingUrl,omitempty"`
	Transcript            []TranscriptMessage `json:"transcript,omitempty"`
}

func newSessionResponse(v *service.SessionView, withTranscript bool) SessionResponse {
	resp := SessionResponse{
		Reply:                 v.Reply,
		Options:               v.Options,
		Phase:                 string(v.Phase),
		ReadyForBooking:       v.ReadyForBooking,
		HasSentSchedulingLink: v.HasSentSchedulingLink,
		SchedulingURL:         v.SchedulingURL,
	}
	if resp.Options == nil {
		resp.Options = []string{}
	}
	if v.ID != uuid.Nil {
		resp.SessionID = v.ID.String()
	}
	if withTranscript {
		resp.Transcript = make([]TranscriptMessage, len(v.Transcript))
		for i, m := range v.Transcript {
			resp.Transcript[i] = TranscriptMessage{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp}
		}
	}
	return resp
}
