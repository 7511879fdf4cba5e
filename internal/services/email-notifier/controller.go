package notifier

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Recipebox/internal/domain/notification"
	kafkax "github.com/NordCoder/Recipebox/internal/repository/kafka"
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	return c.Sub.Consume(ctx, c.handler())
}

func (c *Controller) handler() kafkax.Handler {
	return kafkax.JSONHandler(func(ctx context.Context, _ []byte, ev notification.Registration) error {
		mConsumed.Inc()
		if ev.AccountID == uuid.Nil || ev.VerifyToken == "" {
			mSkipped.WithLabelValues("invalid_event").Inc()
			c.Log.Warn("account.registered: invalid event", zap.String("account_id", ev.AccountID.String()))
			return nil
		}
		return c.UC.HandleRegistration(ctx, ev)
	})
}
