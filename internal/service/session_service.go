package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
	"github.com/jkindrix/fitai/internal/conversation"
	"github.com/jkindrix/fitai/internal/domain"
	apperrors "github.com/jkindrix/fitai/internal/errors"
	"github.com/jkindrix/fitai/internal/metrics"
	"github.com/jkindrix/fitai/internal/session"
	"github.com/jkindrix/fitai/internal/validation"
)

// LeadSubmitter receives leads qualified in the widget.
type LeadSubmitter interface {
	SubmitChat(ctx context.Context, record domain.LeadRecord) (*domain.Lead, error)
}

// SessionConfig holds widget timing and limits.
type SessionConfig struct {
	MaxMessageLength   int
	TypingDelayMin     time.Duration
	TypingDelayMax     time.Duration
	SummaryDelay       time.Duration
	BookingDelay       time.Duration
	ButtonBookingDelay time.Duration
}

// SessionView is what the widget needs to render after a turn.
type SessionView struct {
	ID                    uuid.UUID
	Phase                 domain.Phase
	Reply                 string
	Options               []string
	ReadyForBooking       bool
	HasSentSchedulingLink bool
	SchedulingURL         string
	Transcript            []domain.Message
}

// SessionService runs server-side widget conversations.
type SessionService struct {
	store   domain.SessionStore
	locks   *session.Locks
	machine *conversation.Machine
	replier Replier
	leads   LeadSubmitter
	cfg     SessionConfig
	clock   clock.Clock
	seed    func() int64
	jitter  func(n int64) int64
	logger  *zap.Logger
	metrics *metrics.Metrics
	events  *metrics.BusinessEventLogger
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithSeedSource sets where nudge seeds come from.
func WithSeedSource(seed func() int64) SessionOption {
	return func(s *SessionService) { s.seed = seed }
}

// WithJitter sets the random source for typing delays. It must return a
// value in [0, n).
func WithJitter(jitter func(n int64) int64) SessionOption {
	return func(s *SessionService) { s.jitter = jitter }
}

// WithLocks shares a lock set between services.
func WithLocks(l *session.Locks) SessionOption {
	return func(s *SessionService) { s.locks = l }
}

// NewSessionService creates a SessionService. leads may be nil.
func NewSessionService(
	store domain.SessionStore,
	machine *conversation.Machine,
	replier Replier,
	leads LeadSubmitter,
	cfg SessionConfig,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
	opts ...SessionOption,
) *SessionService {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger)
	}
	s := &SessionService{
		store:   store,
		locks:   session.NewLocks(),
		machine: machine,
		replier: replier,
		leads:   leads,
		cfg:     cfg,
		clock:   c,
		seed:    rand.Int64,
		jitter:  rand.Int64N,
		logger:  logger.Named("session"),
		metrics: m,
		events:  events,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a session and returns the greeting.
func (s *SessionService) Start(ctx context.Context) (*SessionView, error) {
	now := s.clock.NowUTC()
	sess := domain.NewSession(now)
	out := s.machine.Opening()
	sess.Append(domain.NewMessage(domain.RoleAssistant, out.Reply, now))

	if err := s.store.Put(ctx, sess); err != nil {
		s.logger.Error("failed to store new session", zap.Error(err))
		return nil, apperrors.StorageError("session.Start", err)
	}

	s.metrics.RecordSessionStarted()
	s.events.SessionStarted(ctx, sess.ID.String())
	return s.view(sess, out), nil
}

// Get returns the current state of a session.
func (s *SessionService) Get(ctx context.Context, id string) (*SessionView, error) {
	sid, err := parseID(id, "session")
	if err != nil {
		return nil, err
	}
	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, mapRepoError(err, "session")
	}

	out := conversation.Outcome{Options: currentOptions(sess)}
	if n := len(sess.Transcript); n > 0 && sess.Transcript[n-1].Role == domain.RoleAssistant {
		out.Reply = sess.Transcript[n-1].Content
	}
	return s.view(sess, out), nil
}

// Send applies a visitor message. A second message for the same session
// while one is being answered is rejected with CodeConflict.
func (s *SessionService) Send(ctx context.Context, id, message string) (*SessionView, error) {
	if err := validation.ValidateChatMessage(message, s.cfg.MaxMessageLength); err != nil {
		s.metrics.RecordChatRejected(rejectReason(err))
		return nil, err
	}
	text := strings.TrimSpace(message)
	return s.turn(ctx, id, "session.Send", conversation.Event{Kind: conversation.EventMessage, Text: text})
}

// Book handles the explicit book button.
func (s *SessionService) Book(ctx context.Context, id string) (*SessionView, error) {
	return s.turn(ctx, id, "session.Book", conversation.Event{Kind: conversation.EventBook})
}

// Reset starts the conversation over, keeping the session ID.
func (s *SessionService) Reset(ctx context.Context, id string) (*SessionView, error) {
	return s.turn(ctx, id, "session.Reset", conversation.Event{Kind: conversation.EventReset})
}

func (s *SessionService) turn(ctx context.Context, id, op string, ev conversation.Event) (*SessionView, error) {
	sid, err := parseID(id, "session")
	if err != nil {
		return nil, err
	}

	unlock, ok := s.locks.TryLock(sid)
	if !ok {
		s.metrics.RecordChatRejected("busy")
		return nil, apperrors.Conflict("a reply is still being prepared")
	}
	defer unlock()

	sess, err := s.store.Get(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		return nil, apperrors.NotFound("session")
	}
	if err != nil {
		s.logger.Error("failed to load session", zap.String("session_id", id), zap.Error(err))
		return s.connectionIssue(sid), nil
	}

	now := s.clock.NowUTC()
	ev.At = now
	ev.Seed = s.seed()

	// History for free-form replies excludes the message being answered.
	history := append([]domain.Message(nil), sess.Transcript...)
	if ev.Kind == conversation.EventMessage {
		sess.Append(domain.NewMessage(domain.RoleUser, ev.Text, now))
	}

	out, err := s.machine.Transition(sess, ev)
	if errors.Is(err, conversation.ErrBookingNotReady) {
		return nil, apperrors.InvalidState("booking is available once qualification is complete")
	}
	if err != nil {
		s.logger.Error("conversation transition failed", zap.String("session_id", id), zap.Error(err))
		return nil, apperrors.Wrap(err, op, apperrors.CodeInternal, "conversation failed")
	}

	if out.Kind == conversation.OutcomeGenerate {
		start := s.clock.Now()
		res := s.replier.Generate(ctx, ev.Text, history)
		s.events.ReplyGenerated(ctx, string(res.Source), res.Model, s.clock.Since(start))
		out.Reply = res.Text
	}

	if err := clock.Sleep(ctx, s.clock, s.delayFor(ev, out)); err != nil {
		return nil, apperrors.Wrap(err, op, apperrors.CodeTimeout, "request cancelled")
	}

	sess.Append(domain.NewMessage(domain.RoleAssistant, out.Reply, s.clock.NowUTC()))
	if err := s.store.Put(ctx, sess); err != nil {
		s.logger.Error("failed to store session", zap.String("session_id", id), zap.Error(err))
		return s.connectionIssue(sid), nil
	}

	s.afterTurn(ctx, sess, ev, out)
	return s.view(sess, out), nil
}

// afterTurn records what a committed turn achieved.
func (s *SessionService) afterTurn(ctx context.Context, sess *domain.Session, ev conversation.Event, out conversation.Outcome) {
	id := sess.ID.String()
	s.metrics.RecordChatTurn(string(out.From))

	switch {
	case ev.Kind == conversation.EventReset:
		s.events.SessionReset(ctx, id, string(out.From))

	case out.LeadCompleted():
		s.metrics.RecordQualificationCompleted()
		s.events.QualificationCompleted(ctx, id, sess.Lead[domain.FieldEmail], s.clock.Since(sess.CreatedAt))
		if s.leads != nil {
			if _, err := s.leads.SubmitChat(ctx, sess.Lead); err != nil {
				s.logger.Warn("failed to capture chat lead", zap.String("session_id", id), zap.Error(err))
			}
		}

	case out.BookingLinkSent():
		trigger := "message"
		if ev.Kind == conversation.EventBook {
			trigger = "button"
		}
		s.metrics.RecordBookingLink(trigger)
		s.events.BookingLinkSent(ctx, id, trigger)
	}
}

// delayFor returns the typing pause shown before a reply.
func (s *SessionService) delayFor(ev conversation.Event, out conversation.Outcome) time.Duration {
	switch out.Kind {
	case conversation.OutcomeGreeting:
		return 0
	case conversation.OutcomeBooking:
		if ev.Kind == conversation.EventBook {
			return s.cfg.ButtonBookingDelay
		}
		return s.cfg.BookingDelay
	case conversation.OutcomeSummary:
		return s.typingDelay() + s.cfg.SummaryDelay
	default:
		return s.typingDelay()
	}
}

// typingDelay returns a random duration in [TypingDelayMin, TypingDelayMax].
func (s *SessionService) typingDelay() time.Duration {
	span := int64(s.cfg.TypingDelayMax - s.cfg.TypingDelayMin)
	if span <= 0 {
		return s.cfg.TypingDelayMin
	}
	return s.cfg.TypingDelayMin + time.Duration(s.jitter(span+1))
}

func (s *SessionService) connectionIssue(id uuid.UUID) *SessionView {
	return &SessionView{ID: id, Reply: conversation.ConnectionIssue}
}

func (s *SessionService) view(sess *domain.Session, out conversation.Outcome) *SessionView {
	v := &SessionView{
		ID:                    sess.ID,
		Phase:                 sess.Phase,
		Reply:                 out.Reply,
		Options:               out.Options,
		ReadyForBooking:       sess.ReadyForBooking(),
		HasSentSchedulingLink: sess.HasSentSchedulingLink(),
		Transcript:            append([]domain.Message(nil), sess.Transcript...),
	}
	if v.HasSentSchedulingLink {
		v.SchedulingURL = s.machine.SchedulingURL
	}
	return v
}

// currentOptions returns the quick replies for the question being asked.
func currentOptions(sess *domain.Session) []string {
	if sess.Phase != domain.PhaseGreeting && sess.Phase != domain.PhaseQualifying {
		return nil
	}
	step, ok := conversation.StepAt(sess.StepIndex)
	if !ok {
		return nil
	}
	return step.Options
}
