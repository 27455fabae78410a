package metrics

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// BusinessEventLogger writes one structured log line per business event:
// sessions, qualification, bookings and leads. Personal data is masked.
type BusinessEventLogger struct {
	logger *zap.Logger
}

// NewBusinessEventLogger creates a business event logger.
func NewBusinessEventLogger(logger *zap.Logger) *BusinessEventLogger {
	return &BusinessEventLogger{
		logger: logger.Named("business_events"),
	}
}

// SessionStarted logs a new widget session.
func (l *BusinessEventLogger) SessionStarted(ctx context.Context, sessionID string) {
	l.logger.Info("session_started",
		zap.String("event_type", "session.started"),
		zap.String("session_id", sessionID),
		zap.Time("timestamp", time.Now().UTC()),
	)
}

// SessionReset logs a visitor starting over.
func (l *BusinessEventLogger) SessionReset(ctx context.Context, sessionID, fromPhase string) {
	l.logger.Info("session_reset",
		zap.String("event_type", "session.reset"),
		zap.String("session_id", sessionID),
		zap.String("from_phase", fromPhase),
		zap.Time("timestamp", time.Now().UTC()),
	)
}

// QualificationCompleted logs the sixth answer of a widget conversation.
func (l *BusinessEventLogger) QualificationCompleted(ctx context.Context, sessionID, email string, elapsed time.Duration) {
	l.logger.Info("qualification_completed",
		zap.String("event_type", "qualification.completed"),
		zap.String("session_id", sessionID),
		zap.String("email", maskEmail(email)),
		zap.Duration("elapsed", elapsed),
		zap.Time("timestamp", time.Now().UTC()),
	)
}

// BookingLinkSent logs delivery of the scheduling link.
func (l *BusinessEventLogger) BookingLinkSent(ctx context.Context, sessionID, trigger string) {
	l.logger.Info("booking_link_sent",
		zap.String("event_type", "booking.link_sent"),
		zap.String("session_id", sessionID),
		zap.String("trigger", trigger),
		zap.Time("timestamp", time.Now().UTC()),
	)
}

// LeadCaptured logs a saved lead.
func (l *BusinessEventLogger) LeadCaptured(ctx context.Context, leadID, source, email string, created bool) {
	l.logger.Info("lead_captured",
		zap.String("event_type", "lead.captured"),
		zap.String("lead_id", leadID),
		zap.String("source", source),
		zap.String("email", maskEmail(email)),
		zap.Bool("created", created),
		zap.Time("timestamp", time.Now().UTC()),
	)
}

// ReplyGenerated logs where a free-form reply came from.
func (l *BusinessEventLogger) ReplyGenerated(ctx context.Context, source, model string, duration time.Duration) {
	level := l.logger.Info
	eventName := "reply_generated"
	if source == "fallback" || source == "default" {
		level = l.logger.Warn
		eventName = "reply_fallback"
	}
	level(eventName,
		zap.String("event_type", "reply.generated"),
		zap.String("source", source),
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Time("timestamp", time.Now().UTC()),
	)
}

// RateLimitExceeded logs a rejected request.
func (l *BusinessEventLogger) RateLimitExceeded(ctx context.Context, limiterType, identifier string) {
	l.logger.Warn("rate_limit_exceeded",
		zap.String("event_type", "rate_limit.exceeded"),
		zap.String("limiter_type", limiterType),
		zap.String("identifier", maskIdentifier(identifier)),
		zap.Time("timestamp", time.Now().UTC()),
	)
}

func maskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "****"
	}
	if at <= 2 {
		return email[0:1] + "***" + email[at:]
	}
	return email[0:2] + "***" + email[at:]
}

func maskIdentifier(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return id[:2] + "****" + id[len(id)-2:]
}
