package conversation

import (
	"errors"
	"fmt"
	"time"

	"github.com/jkindrix/fitai/internal/domain"
)

var (
	// ErrBookingNotReady is returned for a book event before qualification
	// has finished.
	ErrBookingNotReady = errors.New("booking is not available until qualification is complete")
	// ErrUnknownPhase is returned for a session in a phase the machine does
	// not know.
	ErrUnknownPhase = errors.New("unknown conversation phase")
)

// EventKind identifies a visitor action.
type EventKind int

const (
	EventMessage EventKind = iota // visitor sent text or picked a quick reply
	EventBook                     // visitor pressed the book button
	EventReset                    // visitor started a new chat
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventBook:
		return "book"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is one visitor action applied to a session.
type Event struct {
	Kind EventKind
	Text string
	// Seed picks the nudge in the complete phase.
	Seed int64
	At   time.Time
}

// OutcomeKind says what the reply is.
type OutcomeKind string

const (
	OutcomeGreeting OutcomeKind = "greeting"
	OutcomeQuestion OutcomeKind = "question"
	OutcomeSummary  OutcomeKind = "summary"
	OutcomeBooking  OutcomeKind = "booking"
	OutcomeNudge    OutcomeKind = "nudge"
	// OutcomeGenerate means the caller must produce a free-form reply.
	OutcomeGenerate OutcomeKind = "generate"
)

// Outcome is the result of a transition.
type Outcome struct {
	Kind    OutcomeKind
	Reply   string
	Options []string
	// From is the phase before the transition.
	From domain.Phase
}

// LeadCompleted reports whether this transition finished qualification.
func (o Outcome) LeadCompleted() bool {
	return o.Kind == OutcomeSummary
}

// BookingLinkSent reports whether this transition delivered the booking link.
func (o Outcome) BookingLinkSent() bool {
	return o.Kind == OutcomeBooking
}

// Machine drives a session through greeting, qualifying, awaiting booking
// confirmation and complete.
type Machine struct {
	SchedulingURL string
}

// NewMachine creates a Machine that hands out schedulingURL.
func NewMachine(schedulingURL string) *Machine {
	return &Machine{SchedulingURL: schedulingURL}
}

// Opening returns the greeting and the quick replies for the first step.
func (m *Machine) Opening() Outcome {
	first, _ := StepAt(0)
	return Outcome{Kind: OutcomeGreeting, Reply: Greeting, Options: first.Options, From: domain.PhaseGreeting}
}

// Transition applies ev to s and returns the reply to show. s is modified in
// place. The transcript is left to the caller.
func (m *Machine) Transition(s *domain.Session, ev Event) (Outcome, error) {
	from := s.Phase

	if ev.Kind == EventReset {
		s.Reset(ev.At)
		return m.Opening(), nil
	}

	var (
		out Outcome
		err error
	)
	switch s.Phase {
	case domain.PhaseGreeting, domain.PhaseQualifying:
		out, err = m.qualify(s, ev)
	case domain.PhaseAwaitingBookingConfirmation:
		out = m.awaitBooking(s, ev)
	case domain.PhaseComplete:
		out = Outcome{Kind: OutcomeNudge, Reply: Nudge(ev.Seed)}
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownPhase, s.Phase)
	}
	if err != nil {
		return Outcome{}, err
	}
	out.From = from
	return out, nil
}

func (m *Machine) qualify(s *domain.Session, ev Event) (Outcome, error) {
	if ev.Kind == EventBook {
		return Outcome{}, ErrBookingNotReady
	}

	adv, err := Advance(s.StepIndex, ev.Text, s.Lead)
	if err != nil {
		return Outcome{}, err
	}
	s.Lead = adv.Record
	s.StepIndex = adv.NextStepIndex

	if adv.IsComplete {
		s.Phase = domain.PhaseAwaitingBookingConfirmation
		return Outcome{Kind: OutcomeSummary, Reply: adv.NextPrompt}, nil
	}
	s.Phase = domain.PhaseQualifying
	return Outcome{Kind: OutcomeQuestion, Reply: adv.NextPrompt, Options: adv.NextOptions}, nil
}

func (m *Machine) awaitBooking(s *domain.Session, ev Event) Outcome {
	switch {
	case ev.Kind == EventBook:
		s.Phase = domain.PhaseComplete
		return Outcome{Kind: OutcomeBooking, Reply: ButtonBookingMessage(m.SchedulingURL, s.Lead)}
	case IsPositiveResponse(ev.Text):
		s.Phase = domain.PhaseComplete
		return Outcome{Kind: OutcomeBooking, Reply: BookingMessage(m.SchedulingURL)}
	default:
		return Outcome{Kind: OutcomeGenerate}
	}
}
