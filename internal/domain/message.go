// Package domain contains the core entities of the lead-qualification
// service and the storage interfaces they are persisted through.
package domain

import (
	"fmt"
	"time"
)

// Role identifies who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one entry of a chat transcript. Messages are never modified
// after they are appended.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// NewMessage creates a timestamped message.
func NewMessage(role Role, content string, at time.Time) Message {
	ts := at.UTC()
	return Message{Role: role, Content: content, Timestamp: &ts}
}

// String renders the message the way prompts quote prior turns.
func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}

// LastN returns the trailing n messages of history. n <= 0 returns nil.
func LastN(history []Message, n int) []Message {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
