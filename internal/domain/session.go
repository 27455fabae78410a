package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the stage of a widget conversation.
type Phase string

const (
	PhaseGreeting                    Phase = "greeting"
	PhaseQualifying                  Phase = "qualifying"
	PhaseAwaitingBookingConfirmation Phase = "awaiting_booking_confirmation"
	PhaseComplete                    Phase = "complete"
)

// Session is the server-side state of one chat widget conversation.
type Session struct {
	ID         uuid.UUID  `json:"id"`
	Phase      Phase      `json:"phase"`
	StepIndex  int        `json:"step_index"`
	Lead       LeadRecord `json:"lead"`
	Transcript []Message  `json:"transcript"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewSession creates a session in the greeting phase with an empty
// transcript.
func NewSession(now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:        uuid.New(),
		Phase:     PhaseGreeting,
		Lead:      LeadRecord{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ReadyForBooking reports whether the qualification summary has been shown
// and the booking link is still pending.
func (s *Session) ReadyForBooking() bool {
	return s.Phase == PhaseAwaitingBookingConfirmation
}

// HasSentSchedulingLink reports whether the booking link was delivered.
func (s *Session) HasSentSchedulingLink() bool {
	return s.Phase == PhaseComplete
}

// Append adds a message to the transcript.
func (s *Session) Append(m Message) {
	s.Transcript = append(s.Transcript, m)
	if m.Timestamp != nil && m.Timestamp.After(s.UpdatedAt) {
		s.UpdatedAt = *m.Timestamp
	}
}

// Reset returns the session to its initial state, keeping its ID.
func (s *Session) Reset(now time.Time) {
	s.Phase = PhaseGreeting
	s.StepIndex = 0
	s.Lead = LeadRecord{}
	s.Transcript = nil
	s.UpdatedAt = now.UTC()
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Lead = s.Lead.Clone()
	c.Transcript = append([]Message(nil), s.Transcript...)
	return &c
}
