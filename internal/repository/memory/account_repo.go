package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Recipebox/internal/domain"
	"github.com/NordCoder/Recipebox/internal/domain/account"
)

var _ account.Repo = (*AccountRepo)(nil)

type AccountRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*account.Account
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

func NewAccountRepo(now func() time.Time) *AccountRepo {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AccountRepo{
		byID:    make(map[uuid.UUID]*account.Account),
		byEmail: make(map[string]uuid.UUID),
		now:     now,
	}
}

func (r *AccountRepo) Create(_ context.Context, a *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[a.Email]; taken {
		return domain.ErrConflict
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.now()
	a.IsVerified = false
	a.CreatedAt, a.UpdatedAt = now, now

	stored := *a
	r.byID[a.ID] = &stored
	r.byEmail[a.Email] = a.ID
	return nil
}

func (r *AccountRepo) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepo) MarkVerified(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	a.IsVerified = true
	a.UpdatedAt = r.now()
	return true, nil
}

// Delete drops an account without touching its refresh tokens, which lets
// tests reproduce a dangling owner reference.
func (r *AccountRepo) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.byID[id]; ok {
		delete(r.byEmail, a.Email)
		delete(r.byID, id)
	}
}
