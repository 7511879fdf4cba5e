package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/domain/outbox"
)

var _ notification.RegistrationNotifier = (*RegistrationNotifier)(nil)

// RegistrationNotifier stores registration events in the outbox so the runner
// can relay them to kafka.
type RegistrationNotifier struct {
	repo outbox.Repository
}

func NewRegistrationNotifier(repo outbox.Repository) *RegistrationNotifier {
	return &RegistrationNotifier{repo: repo}
}

func (n *RegistrationNotifier) NotifyRegistration(ctx context.Context, r notification.Registration) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return n.repo.Enqueue(ctx, outbox.Message{
		IdempotencyKey: RegistrationKey(r),
		Kind:           outbox.KindAccountRegistered,
		Data:           data,
		Status:         outbox.StatusCreated,
		Traceparent:    carrier.Get("traceparent"),
		Tracestate:     carrier.Get("tracestate"),
		Baggage:        carrier.Get("baggage"),
	})
}

func RegistrationKey(r notification.Registration) string {
	return outbox.KindAccountRegistered.String() + ":" + r.AccountID.String()
}
