package users

import (
	"context"
	"errors"
	"sync"
)

// ErrUserNotFound is returned when a user id resolves to nothing.
var ErrUserNotFound = errors.New("user not found")

// Repository defines the interface for user lookup.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// InMemoryRepository is an in-memory Repository used in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*User)}
}

// Put stores or replaces a user.
func (r *InMemoryRepository) Put(u *User) {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
}

// GetByID retrieves a user by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}
