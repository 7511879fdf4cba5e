package kafka

import (
	"context"

	"github.com/NordCoder/Recipebox/internal/domain/kafka"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
)

const TopicAccountRegistered = "recipebox.account.registered"

var _ kafka.AccountEvents = (*AccountEventsKafka)(nil)

type AccountEventsKafka struct {
	p *Producer
}

func NewAccountEventsKafka(p *Producer) *AccountEventsKafka { return &AccountEventsKafka{p: p} }

// PublishAccountRegistered keys by account id so events of one account stay ordered.
func (e *AccountEventsKafka) PublishAccountRegistered(ctx context.Context, r notification.Registration) error {
	return e.p.PublishJSON(ctx, []byte(r.AccountID.String()), r)
}
