package notification

import (
	"context"

	"github.com/google/uuid"
)

type RegistrationNotifier interface {
	NotifyRegistration(ctx context.Context, r Registration) error
}

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*Notification, error)
}
