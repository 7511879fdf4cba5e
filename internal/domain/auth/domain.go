package auth

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken points at an issued refresh secret. TokenHash is the SHA-256
// digest of the secret; the secret itself is never stored.
type RefreshToken struct {
	ID        int64
	AccountID uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record can no longer be redeemed at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
