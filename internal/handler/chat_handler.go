package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
	"github.com/jkindrix/fitai/internal/domain"
	apperrors "github.com/jkindrix/fitai/internal/errors"
	"github.com/jkindrix/fitai/internal/service"
)

// ChatReplier answers stateless chat messages.
type ChatReplier interface {
	Reply(ctx context.Context, message string, history []domain.Message) (*service.ChatReply, error)
}

// ChatHandler serves POST /api/chat.
type ChatHandler struct {
	chat     ChatReplier
	alwaysOK bool
	clock    clock.Clock
	logger   *zap.Logger
}

// ChatHandlerConfig holds configuration for ChatHandler.
type ChatHandlerConfig struct {
	Chat ChatReplier
	// AlwaysOK answers internal failures with 200 and the contact fallback
	// as the response text.
	AlwaysOK bool
	Clock    clock.Clock
	Logger   *zap.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(cfg ChatHandlerConfig) *ChatHandler {
	if cfg.Logger == nil {
		panic("logger is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &ChatHandler{
		chat:     cfg.Chat,
		alwaysOK: cfg.AlwaysOK,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
}

// RegisterRoutes registers chat routes on the router.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
}

// HandleChat answers one message using the history the client sends.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		JSON(w, apperrors.GetHTTPStatus(err), ChatErrorResponse{Error: "Invalid request body"})
		return
	}

	reply, err := h.chat.Reply(r.Context(), req.Message, req.History())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, ChatResponse{Response: reply.Response, Timestamp: reply.Timestamp})
}

func (h *ChatHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.IsUserError(err) {
		var appErr *apperrors.Error
		errors.As(err, &appErr)
		JSON(w, apperrors.GetHTTPStatus(err), ChatErrorResponse{Error: appErr.Message})
		return
	}

	h.logger.Error("chat reply failed", zap.Error(err))
	if h.alwaysOK {
		JSON(w, http.StatusOK, ChatResponse{Response: ContactFallback, Timestamp: h.clock.NowUTC()})
		return
	}
	JSON(w, http.StatusInternalServerError, ChatErrorResponse{
		Error:    ChatUnavailableMessage,
		Fallback: ContactFallback,
	})
}
