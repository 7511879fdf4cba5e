package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NordCoder/Recipebox/internal/domain/kafka"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/domain/outbox"
	"github.com/NordCoder/Recipebox/internal/obs/retry"
)

var (
	handlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipebox_outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	handlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind outbox.Kind, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind.String()
	}
	wrapped := WrapKindHandler(h, pol)
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle")
		defer span.End()
		span.SetAttributes(attribute.String("outbox.kind", kind.String()))

		start := time.Now()
		err := wrapped(ctx, data)
		handlerLatency.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			handlerErrors.WithLabelValues(kind.String()).Inc()
		}
		return err
	}
}

// MakeGlobalHandler routes outbox kinds to their kafka publishers.
func MakeGlobalHandler(pub kafka.AccountEvents, pol retry.Policy) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindAccountRegistered:
			base := func(ctx context.Context, data []byte) error {
				var r notification.Registration
				if err := json.Unmarshal(data, &r); err != nil {
					return fmt.Errorf("unmarshal account-registered payload: %w: %v", retry.ErrPermanent, err)
				}
				return pub.PublishAccountRegistered(ctx, r)
			}
			return instrument(kind, base, pol), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
