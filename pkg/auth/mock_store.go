package auth

import (
	"fmt"
	"sync"
)

// MockStore implements CredentialStore for testing purposes
type MockStore struct {
	creds map[Kind]*Credential
	mu    sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{
		creds: make(map[Kind]*Credential),
	}
}

// Store saves a credential to the mock store
func (m *MockStore) Store(cred *Credential) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cred == nil || cred.Kind == "" {
		return ErrInvalidCredentials
	}

	// Create a copy to avoid external modifications
	credCopy := *cred
	m.creds[cred.Kind] = &credCopy

	return nil
}

// Retrieve gets a credential from the mock store
func (m *MockStore) Retrieve(kind Kind) (*Credential, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if kind == "" {
		return nil, ErrInvalidCredentials
	}

	cred, exists := m.creds[kind]
	if !exists {
		return nil, ErrCredentialsNotFound
	}

	credCopy := *cred
	return &credCopy, nil
}

// List returns all stored credentials from the mock store
func (m *MockStore) List() ([]*Credential, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var creds []*Credential
	for _, cred := range m.creds {
		credCopy := *cred
		creds = append(creds, &credCopy)
	}

	return creds, nil
}

// Delete removes a credential from the mock store
func (m *MockStore) Delete(kind Kind) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == "" {
		return ErrInvalidCredentials
	}

	if _, exists := m.creds[kind]; !exists {
		return ErrCredentialsNotFound
	}

	delete(m.creds, kind)
	return nil
}

// Exists checks if a credential exists in the mock store
func (m *MockStore) Exists(kind Kind) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.creds[kind]
	return exists
}

// Clear removes all credentials from the mock store (useful for test cleanup)
func (m *MockStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = make(map[Kind]*Credential)
}

// Count returns the number of credentials in the mock store (useful for testing)
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.creds)
}

// NewMockManager creates a Manager with a mock store for testing
func NewMockManager() (*Manager, *MockStore) {
	mockStore := NewMockStore()
	manager := &Manager{
		stores: []CredentialStore{mockStore},
	}
	return manager, mockStore
}

// GetCredential returns a copy of the credential for inspection (useful for testing)
func (m *MockStore) GetCredential(kind Kind) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, exists := m.creds[kind]
	if !exists {
		return nil, fmt.Errorf("credential not found: %s", kind)
	}

	credCopy := *cred
	return &credCopy, nil
}
