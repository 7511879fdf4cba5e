package kafka

import (
	"context"

	"github.com/NordCoder/Recipebox/internal/domain/notification"
)

type AccountEvents interface {
	PublishAccountRegistered(ctx context.Context, r notification.Registration) error
}
