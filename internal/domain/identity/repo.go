package identity

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a user lookup misses.
var ErrNotFound = errors.New("user not found")

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
}
