package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Recipebox/internal/domain"
	"github.com/NordCoder/Recipebox/internal/domain/auth"
)

var (
	_ auth.RefreshTokenStore = (*RefreshTokenStore)(nil)
	_ auth.ExpiredPurger     = (*RefreshTokenStore)(nil)
)

type RefreshTokenStore struct {
	mu     sync.Mutex
	seq    int64
	byHash map[string]auth.RefreshToken
	now    func() time.Time
}

func NewRefreshTokenStore(now func() time.Time) *RefreshTokenStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RefreshTokenStore{byHash: make(map[string]auth.RefreshToken), now: now}
}

func (s *RefreshTokenStore) Save(_ context.Context, t *auth.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[t.TokenHash]; exists {
		return domain.ErrConflict
	}
	s.seq++
	t.ID = s.seq
	t.CreatedAt = s.now()
	s.byHash[t.TokenHash] = *t
	return nil
}

func (s *RefreshTokenStore) FindByHash(_ context.Context, tokenHash string) (*auth.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byHash[tokenHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *RefreshTokenStore) DeleteByHash(_ context.Context, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHash[tokenHash]; !ok {
		return false, nil
	}
	delete(s.byHash, tokenHash)
	return true, nil
}

func (s *RefreshTokenStore) DeleteByOwner(_ context.Context, accountID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for h, t := range s.byHash {
		if t.AccountID == accountID {
			delete(s.byHash, h)
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokenStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for h, t := range s.byHash {
		if t.Expired(before) {
			delete(s.byHash, h)
			n++
		}
	}
	return n, nil
}

// Len is the number of stored records.
func (s *RefreshTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}
