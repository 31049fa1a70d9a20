package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists user accounts
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindOperators(ctx context.Context, parentID uuid.UUID) ([]User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
