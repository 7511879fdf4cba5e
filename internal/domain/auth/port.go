package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RefreshTokenStore interface {
	// Save inserts t and fills ID and CreatedAt. A duplicate hash is domain.ErrConflict.
	Save(ctx context.Context, t *RefreshToken) error
	// FindByHash returns domain.ErrNotFound when nothing matches. Expiry is not checked.
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// DeleteByHash reports whether this call removed the record.
	DeleteByHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteByOwner(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type ExpiredPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
