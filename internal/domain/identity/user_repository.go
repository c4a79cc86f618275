package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by ID, returning ErrUserNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindAll returns every user with roles and student profile loaded
	FindAll(ctx context.Context) ([]*User, error)

	// Save creates or updates a user together with its roles and profile
	Save(ctx context.Context, user *User) error
}
