package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pugleague/rating-engine/internal/league"
)

// MockStore is a mock implementation of the SessionStore interface for
// testing. It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	CreateFunc   func(roster league.Roster, createdBy string) (*Draft, error)
	GetFunc      func(token string) (*Draft, error)
	ListFunc     func() ([]*Draft, error)
	CancelFunc   func(token string) error
	FinalizeFunc func(token string) (*Draft, error)

	// Call records
	CreateCalls   []league.Roster
	CancelCalls   []string
	FinalizeCalls []string
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Create(roster league.Roster, createdBy string) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, roster)
	if m.CreateFunc != nil {
		return m.CreateFunc(roster, createdBy)
	}
	return &Draft{Token: uuid.NewString(), Roster: roster, CreatedBy: createdBy}, nil
}

func (m *MockStore) Get(token string) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(token)
	}
	return nil, ErrDraftNotFound
}

func (m *MockStore) List() ([]*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return nil, nil
}

func (m *MockStore) Cancel(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls = append(m.CancelCalls, token)
	if m.CancelFunc != nil {
		return m.CancelFunc(token)
	}
	return nil
}

func (m *MockStore) Finalize(token string) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinalizeCalls = append(m.FinalizeCalls, token)
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(token)
	}
	return nil, ErrDraftNotFound
}
