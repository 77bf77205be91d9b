package identity

import (
	"context"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
	order []string
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Uniqueness is decided here, under the write lock, so two racing
	// creates cannot both pass a check done outside the repository.
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return ErrUsernameTaken
		}
	}
	r.users[user.ID] = user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []User
	for _, id := range r.order {
		if user, ok := r.users[id]; ok && strings.EqualFold(user.Username, username) {
			matches = append(matches, user)
		}
	}
	return matches, nil
}

func (r *memoryRepository) UpdatePassword(_ context.Context, id string, hash []byte, tokenVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.HashedPassword = hash
	user.TokenVersion = tokenVersion
	r.users[id] = user
	return nil
}

func (r *memoryRepository) UpdateUsername(_ context.Context, id, username string, tokenVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, existing := range r.users {
		if existing.ID != id && strings.EqualFold(existing.Username, username) {
			return ErrUsernameTaken
		}
	}
	user.Username = username
	user.TokenVersion = tokenVersion
	r.users[id] = user
	return nil
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.TokenVersion = version
	r.users[id] = user
	return nil
}

func (r *memoryRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = make(map[string]User)
	r.order = nil
	return nil
}
