package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/NordCoder/Recipebox/internal/domain/account"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
)

// AccountReader exposes only the account fields the notifier needs.
type AccountReader struct{ R account.Repo }

type NotificationRepo struct{ R notification.Repo }

func (a AccountReader) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	acc, err := a.R.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &account.Account{ID: acc.ID, Email: acc.Email, IsVerified: acc.IsVerified}, nil
}

func (a NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	return a.R.Create(ctx, n)
}

// AlreadySent reports whether a notification of type typ was recorded for the account.
func (a NotificationRepo) AlreadySent(ctx context.Context, accountID uuid.UUID, typ string) (bool, error) {
	ns, err := a.R.ListByAccount(ctx, accountID, 20)
	if err != nil {
		return false, err
	}
	for _, n := range ns {
		if n.Type == typ {
			return true, nil
		}
	}
	return false, nil
}
