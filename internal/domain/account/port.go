package account

import (
	"context"

	"github.com/google/uuid"
)

// Repo returns domain.ErrNotFound for missing accounts and domain.ErrConflict
// when Create hits an email that is already taken.
type Repo interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (bool, error)
}
