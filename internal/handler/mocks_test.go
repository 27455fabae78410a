package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/service"
	"github.com/jkindrix/fitai/internal/validation"
)

// mockHealthChecker implements HealthChecker for testing
type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.pingErr
}

// mockAIHealthChecker implements AIHealthChecker for testing
type mockAIHealthChecker struct {
	healthy bool
}

func (m *mockAIHealthChecker) Healthy() bool {
	return m.healthy
}

type mockDrainer struct {
	draining bool
}

func (m *mockDrainer) ShuttingDown() bool {
	return m.draining
}

// mockChatReplier records what the handler passed through.
type mockChatReplier struct {
	mu      sync.Mutex
	reply   *service.ChatReply
	err     error
	message string
	history []domain.Message
}

func (m *mockChatReplier) Reply(ctx context.Context, message string, history []domain.Message) (*service.ChatReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.message = message
	m.history = history
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

type mockLeadSubmitter struct {
	forms []validation.LeadForm
	lead  *domain.Lead
	err   error
}

func (m *mockLeadSubmitter) SubmitForm(ctx context.Context, form validation.LeadForm) (*domain.Lead, error) {
	m.forms = append(m.forms, form)
	if m.err != nil {
		return nil, m.err
	}
	return m.lead, nil
}

// mockConversations returns view for every call and records the arguments.
type mockConversations struct {
	view *service.SessionView
	err  error

	calls    []string
	ids      []string
	messages []string
}

func (m *mockConversations) result(call, id string) (*service.SessionView, error) {
	m.calls = append(m.calls, call)
	m.ids = append(m.ids, id)
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockConversations) Start(ctx context.Context) (*service.SessionView, error) {
	return m.result("start", "")
}

func (m *mockConversations) Get(ctx context.Context, id string) (*service.SessionView, error) {
	return m.result("get", id)
}

func (m *mockConversations) Send(ctx context.Context, id, message string) (*service.SessionView, error) {
	m.messages = append(m.messages, message)
	return m.result("send", id)
}

func (m *mockConversations) Book(ctx context.Context, id string) (*service.SessionView, error) {
	return m.result("book", id)
}

func (m *mockConversations) Reset(ctx context.Context, id string) (*service.SessionView, error) {
	return m.result("reset", id)
}

var testSessionID = uuid.MustParse("6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b")
