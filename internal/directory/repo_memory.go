package directory

import (
	"context"
	"sync"
	"time"

	"prospera-platform/internal/access"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	profiles  map[string]Profile
	admins    map[adminKey]struct{}
	employees map[string]Employee
}

type adminKey struct{ userID, companyID string }

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:  map[string]Profile{},
		admins:    map[adminKey]struct{}{},
		employees: map[string]Employee{},
	}
}

func (m *MemoryStore) PutProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func (m *MemoryStore) PutEmployee(e Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

func (m *MemoryStore) RoleByIdentity(ctx context.Context, userID string) (access.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return "", ErrNotFound
	}
	return p.Role, nil
}

func (m *MemoryStore) IsCompanyAdmin(ctx context.Context, userID, companyID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.admins[adminKey{userID, companyID}]
	return ok, nil
}

func (m *MemoryStore) ResourceOwner(ctx context.Context, resourceID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[resourceID]
	if !ok || e.PlatformUserID == "" {
		return "", ErrNotFound
	}
	return e.PlatformUserID, nil
}

func (m *MemoryStore) Profile(ctx context.Context, userID string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) Employee(ctx context.Context, companyID, employeeID string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[employeeID]
	if !ok || e.CompanyID != companyID {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) UpdateRole(ctx context.Context, userID string, role access.Role) (access.Role, error) {
	if userID == "" || !role.Valid() {
		return "", ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return "", ErrNotFound
	}
	prev := p.Role
	if prev == "" {
		prev = access.RoleCompanyEmployee
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	m.profiles[userID] = p
	return prev, nil
}

func (m *MemoryStore) SetCompanyAdmin(ctx context.Context, userID, companyID string, enabled bool) (bool, error) {
	if userID == "" || companyID == "" {
		return false, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := adminKey{userID, companyID}
	_, had := m.admins[k]
	if enabled {
		m.admins[k] = struct{}{}
	} else {
		delete(m.admins, k)
	}
	return had != enabled, nil
}
