package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/validation"
)

// LeadSubmitter stores lead form submissions.
type LeadSubmitter interface {
	SubmitForm(ctx context.Context, form validation.LeadForm) (*domain.Lead, error)
}

// LeadHandler serves POST /api/leads.
type LeadHandler struct {
	leads  LeadSubmitter
	logger *zap.Logger
}

// NewLeadHandler creates a LeadHandler.
func NewLeadHandler(leads LeadSubmitter, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{leads: leads, logger: logger}
}

// RegisterRoutes registers lead routes on the router.
func (h *LeadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/leads", h.HandleSubmit)
}

// HandleSubmit accepts the lead form. Repeat submissions for the same email
// update the stored lead and are still acknowledged with 202.
func (h *LeadHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var form validation.LeadForm
	if err := decodeJSON(r, &form); err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	lead, err := h.leads.SubmitForm(r.Context(), form)
	if err != nil {
		var fields validation.ValidationErrors
		if errors.As(err, &fields) {
			APIValidationError(w, fields)
			return
		}
		APIError(w, r, h.logger, err)
		return
	}

	JSON(w, http.StatusAccepted, LeadResponse{
		ID:      lead.ID.String(),
		Status:  "received",
		Message: LeadReceivedMessage,
	})
}
