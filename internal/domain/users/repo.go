package users

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// Upsert inserts the user or refreshes its email. The stored role is
	// never changed.
	Upsert(ctx context.Context, u *User) error
}
