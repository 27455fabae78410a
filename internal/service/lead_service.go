// Package service contains business logic implementations.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/domain"
	apperrors "github.com/jkindrix/fitai/internal/errors"
	"github.com/jkindrix/fitai/internal/metrics"
	"github.com/jkindrix/fitai/internal/notify"
	"github.com/jkindrix/fitai/internal/validation"
)

// notifyTimeout bounds one new-lead notification.
const notifyTimeout = 10 * time.Second

// LeadService validates, stores and announces leads.
type LeadService struct {
	repo     domain.LeadRepository
	notifier notify.Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	events   *metrics.BusinessEventLogger

	pending sync.WaitGroup
}

// NewLeadService creates a LeadService. A nil notifier disables
// notifications.
func NewLeadService(
	repo domain.LeadRepository,
	notifier notify.Notifier,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *LeadService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger)
	}
	return &LeadService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		events:   events,
	}
}

// SubmitForm stores a lead form submission. Field problems are returned as
// a CodeValidation error wrapping validation.ValidationErrors.
func (s *LeadService) SubmitForm(ctx context.Context, form validation.LeadForm) (*domain.Lead, error) {
	if errs := validation.ValidateLeadForm(form); errs.HasErrors() {
		return nil, apperrors.Wrap(errs, "lead.SubmitForm", apperrors.CodeValidation, "invalid lead submission")
	}

	lead := domain.NewLead(
		validation.SanitizeString(form.Name),
		strings.TrimSpace(form.Email),
		validation.SanitizeString(form.Goal),
		strings.ToLower(strings.TrimSpace(form.Experience)),
		domain.LeadSourceForm,
	)
	if err := s.save(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// SubmitChat stores a lead collected by the qualification flow. Answers are
// kept as typed; only name and email are required.
func (s *LeadService) SubmitChat(ctx context.Context, record domain.LeadRecord) (*domain.Lead, error) {
	v := validation.New()
	v.Required("name", record[domain.FieldName])
	v.Required("email", record[domain.FieldEmail])
	if !v.IsValid() {
		return nil, apperrors.Wrap(v.Errors(), "lead.SubmitChat", apperrors.CodeValidation, "incomplete chat lead")
	}

	lead := domain.LeadFromRecord(record)
	if err := s.save(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (s *LeadService) save(ctx context.Context, lead *domain.Lead) error {
	newID := lead.ID
	if err := s.repo.Save(ctx, lead); err != nil {
		s.logger.Error("failed to save lead",
			zap.String("source", string(lead.Source)),
			zap.Error(err),
		)
		return apperrors.DatabaseError("lead.Save", err)
	}
	created := lead.ID == newID

	s.metrics.RecordLeadCaptured(string(lead.Source), created)
	s.events.LeadCaptured(ctx, lead.ID.String(), string(lead.Source), lead.Email, created)

	if created {
		s.notify(ctx, lead)
	}
	return nil
}

// notify sends the notification in the background so the visitor is not
// kept waiting on the webhook.
func (s *LeadService) notify(ctx context.Context, lead *domain.Lead) {
	snapshot := *lead
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyLead(ctx, &snapshot); err != nil {
			s.metrics.RecordLeadNotifyFailure()
			s.logger.Warn("lead notification failed",
				zap.String("lead_id", snapshot.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *LeadService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns a stored lead.
func (s *LeadService) Get(ctx context.Context, id string) (*domain.Lead, error) {
	parsed, err := parseID(id, "lead")
	if err != nil {
		return nil, err
	}
	lead, err := s.repo.GetByID(ctx, parsed)
	if err != nil {
		return nil, mapRepoError(err, "lead")
	}
	return lead, nil
}

// List returns stored leads newest first, with the total count.
func (s *LeadService) List(ctx context.Context, limit, offset int) ([]*domain.Lead, int, error) {
	page, err := validation.ValidatePagination(limit, offset, nil)
	if err != nil {
		return nil, 0, apperrors.ValidationFailed(err.Error())
	}
	leads, err := s.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("lead.List", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("lead.Count", err)
	}
	return leads, total, nil
}
