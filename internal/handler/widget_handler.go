package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/service"
)

// Conversations runs widget sessions.
type Conversations interface {
	Start(ctx context.Context) (*service.SessionView, error)
	Get(ctx context.Context, id string) (*service.SessionView, error)
	Send(ctx context.Context, id, message string) (*service.SessionView, error)
	Book(ctx context.Context, id string) (*service.SessionView, error)
	Reset(ctx context.Context, id string) (*service.SessionView, error)
}

// WidgetHandler serves the server-side widget session API.
type WidgetHandler struct {
	sessions Conversations
	logger   *zap.Logger
}

// NewWidgetHandler creates a WidgetHandler.
func NewWidgetHandler(sessions Conversations, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers widget session routes on the router.
func (h *WidgetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/widget/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/messages", h.HandleMessage)
		r.Post("/{id}/book", h.HandleBook)
		r.Post("/{id}/reset", h.HandleReset)
	})
}

// HandleStart creates a session and returns the greeting.
func (h *WidgetHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Start(r.Context())
	h.respond(w, r, http.StatusCreated, v, err, false)
}

// HandleGet returns the session with its transcript.
func (h *WidgetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, v, err, true)
}

// HandleMessage applies one visitor message.
func (h *WidgetHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req SessionMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	v, err := h.sessions.Send(r.Context(), chi.URLParam(r, "id"), req.Message)
	h.respond(w, r, http.StatusOK, v, err, false)
}

// HandleBook handles the book button.
func (h *WidgetHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Book(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, v, err, false)
}

// HandleReset starts the conversation over.
func (h *WidgetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Reset(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, v, err, false)
}

func (h *WidgetHandler) respond(w http.ResponseWriter, r *http.Request, status int, v *service.SessionView, err error, withTranscript bool) {
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, status, newSessionResponse(v, withTranscript))
}
