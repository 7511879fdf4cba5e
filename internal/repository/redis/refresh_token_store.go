package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/NordCoder/Recipebox/internal/domain"
	"github.com/NordCoder/Recipebox/internal/domain/auth"
)

var _ auth.RefreshTokenStore = (*RefreshTokenStore)(nil)

const (
	keyPrefix = "rt"
	// ExpiredGrace keeps a record readable after expiry so the caller can
	// still tell an expired token from an unknown one.
	ExpiredGrace = 24 * time.Hour
)

type record struct {
	ID        int64     `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshTokenStore keeps one key per token hash plus a set of hashes per
// owner. GETDEL makes DeleteByHash atomic.
type RefreshTokenStore struct {
	rdb goredis.UniversalClient
	now func() time.Time
}

func NewRefreshTokenStore(rdb goredis.UniversalClient, now func() time.Time) *RefreshTokenStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RefreshTokenStore{rdb: rdb, now: now}
}

func tokenKey(hash string) string  { return keyPrefix + ":hash:" + hash }
func ownerKey(id uuid.UUID) string { return keyPrefix + ":owner:" + id.String() }
func seqKey() string              { return keyPrefix + ":seq" }

func (s *RefreshTokenStore) Save(ctx context.Context, t *auth.RefreshToken) error {
	id, err := s.rdb.Incr(ctx, seqKey()).Result()
	if err != nil {
		return fmt.Errorf("refresh token id: %w", err)
	}
	now := s.now()
	rec := record{ID: id, AccountID: t.AccountID, ExpiresAt: t.ExpiresAt, CreatedAt: now}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}

	ttl := t.ExpiresAt.Sub(now) + ExpiredGrace
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.rdb.SetNX(ctx, tokenKey(t.TokenHash), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("refresh token insert: %w", err)
	}
	if !ok {
		return domain.ErrConflict
	}

	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, ownerKey(t.AccountID), t.TokenHash)
		p.Expire(ctx, ownerKey(t.AccountID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("refresh token owner index: %w", err)
	}

	t.ID = id
	t.CreatedAt = now
	return nil
}

func (s *RefreshTokenStore) FindByHash(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	raw, err := s.rdb.Get(ctx, tokenKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("refresh token find: %w", err)
	}
	return decode(tokenHash, raw)
}

func (s *RefreshTokenStore) DeleteByHash(ctx context.Context, tokenHash string) (bool, error) {
	raw, err := s.rdb.GetDel(ctx, tokenKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("refresh token delete: %w", err)
	}
	if t, err := decode(tokenHash, raw); err == nil {
		s.rdb.SRem(ctx, ownerKey(t.AccountID), tokenHash)
	}
	return true, nil
}

func (s *RefreshTokenStore) DeleteByOwner(ctx context.Context, accountID uuid.UUID) (int64, error) {
	hashes, err := s.rdb.SMembers(ctx, ownerKey(accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("refresh token list owner: %w", err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, tokenKey(h))
	}
	var del *goredis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		del = p.Del(ctx, keys...)
		p.Del(ctx, ownerKey(accountID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("refresh token delete by owner: %w", err)
	}
	return del.Val(), nil
}

func decode(hash string, raw []byte) (*auth.RefreshToken, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	return &auth.RefreshToken{
		ID:        rec.ID,
		AccountID: rec.AccountID,
		TokenHash: hash,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}
