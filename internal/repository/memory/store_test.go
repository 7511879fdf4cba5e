package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Recipebox/internal/domain"
	"github.com/NordCoder/Recipebox/internal/domain/account"
	"github.com/NordCoder/Recipebox/internal/domain/auth"
)

func TestRefreshTokenStore_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewRefreshTokenStore(func() time.Time { return now })
	owner := uuid.New()

	rec := &auth.RefreshToken{AccountID: owner, TokenHash: "h1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Save(ctx, rec))
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, now, rec.CreatedAt)

	err := s.Save(ctx, &auth.RefreshToken{AccountID: uuid.New(), TokenHash: "h1", ExpiresAt: now})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.FindByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, owner, got.AccountID, "duplicate save must not overwrite")

	ok, err := s.DeleteByHash(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteByHash(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.FindByHash(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefreshTokenStore_DeleteByOwnerAndExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewRefreshTokenStore(func() time.Time { return now })
	a, b := uuid.New(), uuid.New()

	require.NoError(t, s.Save(ctx, &auth.RefreshToken{AccountID: a, TokenHash: "a1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.Save(ctx, &auth.RefreshToken{AccountID: a, TokenHash: "a2", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.Save(ctx, &auth.RefreshToken{AccountID: b, TokenHash: "b1", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, s.Save(ctx, &auth.RefreshToken{AccountID: b, TokenHash: "b2", ExpiresAt: now.Add(time.Hour)}))

	n, err := s.DeleteByOwner(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, s.Len())
}

func TestRefreshTokenStore_ConcurrentDeleteHasOneWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewRefreshTokenStore(nil)
	require.NoError(t, s.Save(ctx, &auth.RefreshToken{AccountID: uuid.New(), TokenHash: "h", ExpiresAt: time.Now().Add(time.Hour)}))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.DeleteByHash(ctx, "h"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestAccountRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewAccountRepo(nil)

	a := &account.Account{Email: "Cook@example.com", PasswordHash: "digest"}
	require.NoError(t, r.Create(ctx, a))
	require.NotEqual(t, uuid.Nil, a.ID)

	assert.ErrorIs(t, r.Create(ctx, &account.Account{Email: "Cook@example.com"}), domain.ErrConflict)

	_, err := r.GetByEmail(ctx, "cook@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound, "email lookup is case-sensitive")

	got, err := r.GetByEmail(ctx, "Cook@example.com")
	require.NoError(t, err)
	assert.Equal(t, "digest", got.PasswordHash)
	assert.False(t, got.IsVerified)

	ok, err := r.MarkVerified(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	ok, err = r.MarkVerified(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
