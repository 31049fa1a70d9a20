package company

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists retention agents
type Repository interface {
	Save(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, id uuid.UUID) (*Company, error)
	FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*Company, error)
	FindAllForOwner(ctx context.Context, ownerID uuid.UUID) ([]Company, error)
	CountForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	ExistsByRIFForOwner(ctx context.Context, ownerID uuid.UUID, rif string) (bool, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
