package domain

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Lead record field keys, in qualification order.
const (
	FieldGoal       = "goal"
	FieldExperience = "experience"
	FieldFrequency  = "frequency"
	FieldTimeline   = "timeline"
	FieldName       = "name"
	FieldEmail      = "email"
)

// LeadRecord maps a qualification field key to the visitor's literal answer.
type LeadRecord map[string]string

// Clone returns an independent copy of r.
func (r LeadRecord) Clone() LeadRecord {
	out := make(LeadRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Experience is the self-reported training level on the lead form.
type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceAdvanced     Experience = "advanced"
)

// Experiences lists the accepted form values.
func Experiences() []string {
	return []string{string(ExperienceBeginner), string(ExperienceIntermediate), string(ExperienceAdvanced)}
}

// LeadSource records where a lead came from.
type LeadSource string

const (
	LeadSourceForm LeadSource = "form"
	LeadSourceChat LeadSource = "chat"
)

// Lead is a prospective client captured by the form or the chat widget.
type Lead struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Goal        string     `json:"goal"`
	Experience  string     `json:"experience"`
	Frequency   string     `json:"frequency,omitempty"`
	Timeline    string     `json:"timeline,omitempty"`
	Source      LeadSource `json:"source"`
	Fingerprint string     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewLead creates a lead with a fresh ID and fingerprint.
func NewLead(name, email, goal, experience string, source LeadSource) *Lead {
	now := time.Now().UTC()
	return &Lead{
		ID:          uuid.New(),
		Name:        name,
		Email:       email,
		Goal:        goal,
		Experience:  experience,
		Source:      source,
		Fingerprint: LeadFingerprint(email),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// LeadFromRecord builds a chat-sourced lead from a completed qualification.
func LeadFromRecord(r LeadRecord) *Lead {
	l := NewLead(r[FieldName], r[FieldEmail], r[FieldGoal], r[FieldExperience], LeadSourceChat)
	l.Frequency = r[FieldFrequency]
	l.Timeline = r[FieldTimeline]
	return l
}

// LeadFingerprint identifies repeat submissions from the same address. The
// email is trimmed and lower-cased before hashing so casing differences
// collapse to one lead.
func LeadFingerprint(email string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
