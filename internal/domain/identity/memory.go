package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// MemoryDirectory is an in-process Directory for tests and local tooling.
type MemoryDirectory struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*User
	patients map[uuid.UUID]*Patient
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:    make(map[uuid.UUID]*User),
		patients: make(map[uuid.UUID]*Patient),
	}
}

func (m *MemoryDirectory) AddUser(u *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryDirectory) AddPatient(p *Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryDirectory) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	return u, nil
}

func (m *MemoryDirectory) IsDoctor(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return ok && u.IsDoctor(), nil
}

func (m *MemoryDirectory) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient %s not found", id)
	}
	return p, nil
}

func (m *MemoryDirectory) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.patients[id]
	return ok, nil
}
