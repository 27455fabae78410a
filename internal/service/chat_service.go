package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
	"github.com/jkindrix/fitai/internal/domain"
	apperrors "github.com/jkindrix/fitai/internal/errors"
	"github.com/jkindrix/fitai/internal/metrics"
	"github.com/jkindrix/fitai/internal/responder"
	"github.com/jkindrix/fitai/internal/validation"
)

// Replier produces a free-form reply. It never fails; degraded replies are
// marked by their Source.
type Replier interface {
	Generate(ctx context.Context, message string, history []domain.Message) responder.Result
}

// ChatReply is the answer to a stateless chat request.
type ChatReply struct {
	Response  string
	Source    responder.Source
	Timestamp time.Time
}

// ChatService answers the stateless chat endpoint, where the client keeps
// the transcript.
type ChatService struct {
	replier          Replier
	maxMessageLength int
	clock            clock.Clock
	logger           *zap.Logger
	metrics          *metrics.Metrics
	events           *metrics.BusinessEventLogger
}

// NewChatService creates a ChatService.
func NewChatService(
	replier Replier,
	maxMessageLength int,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *ChatService {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger)
	}
	return &ChatService{
		replier:          replier,
		maxMessageLength: maxMessageLength,
		clock:            c,
		logger:           logger,
		metrics:          m,
		events:           events,
	}
}

// Reply validates message and generates an answer. Validation failures are
// returned before the generator is called.
func (s *ChatService) Reply(ctx context.Context, message string, history []domain.Message) (*ChatReply, error) {
	if err := validation.ValidateChatMessage(message, s.maxMessageLength); err != nil {
		s.metrics.RecordChatRejected(rejectReason(err))
		return nil, err
	}

	start := s.clock.Now()
	res := s.replier.Generate(ctx, strings.TrimSpace(message), cleanHistory(history))
	s.events.ReplyGenerated(ctx, string(res.Source), res.Model, s.clock.Since(start))
	s.metrics.RecordChatTurn("stateless")

	if strings.TrimSpace(res.Text) == "" {
		s.logger.Error("generator returned an empty reply", zap.String("source", string(res.Source)))
		return nil, apperrors.InternalError("empty reply", nil)
	}

	return &ChatReply{
		Response:  res.Text,
		Source:    res.Source,
		Timestamp: s.clock.NowUTC(),
	}, nil
}

// cleanHistory drops client-supplied turns with an unknown role or no text.
func cleanHistory(history []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(history))
	for _, m := range history {
		if m.Role.Valid() && strings.TrimSpace(m.Content) != "" {
			out = append(out, m)
		}
	}
	return out
}

func rejectReason(err error) string {
	if apperrors.GetCode(err) == apperrors.CodeMessageTooLong {
		return "too_long"
	}
	return "empty"
}
