package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is the in-memory user store used when the server runs without a
// database. Guarded by a mutex because echo serves requests concurrently.
type memRepo struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]*User
}

func NewMemRepo() Repository {
	return &memRepo{
		byID:       make(map[string]*User),
		byUsername: make(map[string]*User),
	}
}

func (r *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if _, exists := r.byUsername[u.Username]; exists {
		return fmt.Errorf("username %q already taken", u.Username)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	cp := *u
	r.byID[cp.ID] = &cp
	r.byUsername[cp.Username] = &cp
	return nil
}
