package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/repository"
	"github.com/jkindrix/fitai/internal/responder"
	"github.com/jkindrix/fitai/internal/session"
)

// MockLeadRepository is a mock implementation of domain.LeadRepository for testing.
type MockLeadRepository struct {
	mu            sync.Mutex
	leads         map[uuid.UUID]*domain.Lead
	byFingerprint map[string]uuid.UUID
	order         []uuid.UUID

	SaveCalls    int
	GetByIDCalls int
	ListCalls    int

	SaveError  error
	ListError  error
	CountError error
}

func NewMockLeadRepository() *MockLeadRepository {
	return &MockLeadRepository{
		leads:         make(map[uuid.UUID]*domain.Lead),
		byFingerprint: make(map[string]uuid.UUID),
	}
}

func (m *MockLeadRepository) Save(ctx context.Context, lead *domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	if id, ok := m.byFingerprint[lead.Fingerprint]; ok {
		lead.ID = id
		lead.CreatedAt = m.leads[id].CreatedAt
	} else {
		m.byFingerprint[lead.Fingerprint] = lead.ID
		m.order = append(m.order, lead.ID)
	}
	c := *lead
	m.leads[lead.ID] = &c
	return nil
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetByIDCalls++
	if l, ok := m.leads[id]; ok {
		c := *l
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockLeadRepository) List(ctx context.Context, limit, offset int) ([]*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*domain.Lead
	for i := len(m.order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		c := *m.leads[m.order[i]]
		out = append(out, &c)
	}
	return out, nil
}

func (m *MockLeadRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CountError != nil {
		return 0, m.CountError
	}
	return len(m.leads), nil
}

// MockNotifier records notified leads.
type MockNotifier struct {
	mu     sync.Mutex
	Leads  []domain.Lead
	Err    error
	notify chan struct{}
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{notify: make(chan struct{}, 16)}
}

func (m *MockNotifier) NotifyLead(ctx context.Context, lead *domain.Lead) error {
	m.mu.Lock()
	m.Leads = append(m.Leads, *lead)
	m.mu.Unlock()
	m.notify <- struct{}{}
	return m.Err
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Leads)
}

// MockReplier returns a fixed result and records what it was asked.
type MockReplier struct {
	mu        sync.Mutex
	Result    responder.Result
	Messages  []string
	Histories [][]domain.Message
}

func NewMockReplier(text string) *MockReplier {
	return &MockReplier{Result: responder.Result{Text: text, Source: responder.SourceModel, Model: "test-model"}}
}

func (m *MockReplier) Generate(ctx context.Context, message string, history []domain.Message) responder.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
	m.Histories = append(m.Histories, history)
	return m.Result
}

func (m *MockReplier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// MockSessionStore wraps an in-memory map and can inject failures.
type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session

	PutCalls int

	GetError error
	PutError error
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (m *MockSessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.PutError != nil {
		return m.PutError
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MockSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionStore) Sweep(ctx context.Context) (int, error) { return 0, nil }

func (m *MockSessionStore) Len(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}

// MockLeadSubmitter records chat leads.
type MockLeadSubmitter struct {
	mu      sync.Mutex
	Records []domain.LeadRecord
	Err     error
}

func (m *MockLeadSubmitter) SubmitChat(ctx context.Context, record domain.LeadRecord) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record.Clone())
	if m.Err != nil {
		return nil, m.Err
	}
	return domain.LeadFromRecord(record), nil
}
