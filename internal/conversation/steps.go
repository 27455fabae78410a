// Package conversation implements the lead-qualification flow of the chat
// widget: the fixed question sequence, the booking trigger and the phase
// machine that ties them together. Everything here is pure; timing, storage
// and free-form replies belong to the caller.
package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jkindrix/fitai/internal/domain"
)

// ErrStepOutOfRange is returned when Advance is called past the last step.
var ErrStepOutOfRange = errors.New("qualification step out of range")

// Step is one qualification question. Options is nil for free-text answers.
type Step struct {
	Key      string   `json:"key"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

var steps = []Step{
	{
		Key:      domain.FieldGoal,
		Question: "What's your main fitness goal?",
		Options:  []string{"💪 Strength Training", "🏋️ Muscle Building", "🔥 Weight Loss", "🎯 General Fitness", "⚡ Sports Performance", "🔄 Toning"},
	},
	{
		Key:      domain.FieldExperience,
		Question: "What's your current experience level?",
		Options:  []string{"🚀 Beginner (0-6 months)", "📈 Intermediate (6 months - 2 years)", "🏆 Advanced (2+ years)"},
	},
	{
		Key:      domain.FieldFrequency,
		Question: "How many days per week can you train?",
		Options:  []string{"2-3 days per week", "4-5 days per week"},
	},
	{
		Key:      domain.FieldTimeline,
		Question: "When would you like to get started?",
		Options:  []string{"💨 ASAP - Ready to start now", "📅 Within 2 weeks", "🗓️ Within a month"},
	},
	{Key: domain.FieldName, Question: "Great! What's your name?"},
	{Key: domain.FieldEmail, Question: "Perfect! What's the best email to reach you?"},
}

// StepCount returns the number of qualification questions.
func StepCount() int {
	return len(steps)
}

// Steps returns a copy of the qualification sequence.
func Steps() []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = Step{Key: s.Key, Question: s.Question, Options: append([]string(nil), s.Options...)}
	}
	return out
}

// StepAt returns a copy of step i.
func StepAt(i int) (Step, bool) {
	if i < 0 || i >= len(steps) {
		return Step{}, false
	}
	s := steps[i]
	return Step{Key: s.Key, Question: s.Question, Options: append([]string(nil), s.Options...)}, true
}

// Advancement is the outcome of answering one step.
type Advancement struct {
	NextPrompt    string
	NextOptions   []string
	NextStepIndex int
	IsComplete    bool
	// Record is the lead record including the new answer.
	Record domain.LeadRecord
}

// Advance records answer under the key of step stepIndex and returns the
// next question, or the profile summary once the last step is answered.
// Answers are stored verbatim; record is not modified.
func Advance(stepIndex int, answer string, record domain.LeadRecord) (Advancement, error) {
	if stepIndex < 0 || stepIndex >= len(steps) {
		return Advancement{}, fmt.Errorf("%w: %d", ErrStepOutOfRange, stepIndex)
	}

	updated := record.Clone()
	updated[steps[stepIndex].Key] = answer

	next := stepIndex + 1
	if next < len(steps) {
		s, _ := StepAt(next)
		return Advancement{
			NextPrompt:    s.Question,
			NextOptions:   s.Options,
			NextStepIndex: next,
			Record:        updated,
		}, nil
	}

	return Advancement{
		NextPrompt:    Summary(updated),
		NextStepIndex: len(steps),
		IsComplete:    true,
		Record:        updated,
	}, nil
}

// Summary renders the collected profile and asks to book.
func Summary(r domain.LeadRecord) string {
	var b strings.Builder
	b.WriteString("**Perfect! Here's your fitness profile:**\n\n")
	fmt.Fprintf(&b, "🎯 **Goal:** %s\n", r[domain.FieldGoal])
	fmt.Fprintf(&b, "💪 **Experience:** %s  \n", r[domain.FieldExperience])
	fmt.Fprintf(&b, "📅 **Availability:** %s\n", r[domain.FieldFrequency])
	fmt.Fprintf(&b, "🚀 **Timeline:** %s\n", r[domain.FieldTimeline])
	fmt.Fprintf(&b, "👤 **Name:** %s\n", r[domain.FieldName])
	fmt.Fprintf(&b, "📧 **Email:** %s\n\n", r[domain.FieldEmail])
	b.WriteString("Based on your goals, you're a great fit for our program! **Ready to book your free consultation?**")
	return b.String()
}
