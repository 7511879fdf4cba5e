package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipebox_email_notifier_messages_consumed_total",
		Help: "account.registered events consumed",
	})
	mSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipebox_email_notifier_emails_sent_total",
		Help: "Verification emails sent",
	})
	mSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_email_notifier_skipped_total",
		Help: "Events dropped without sending, by reason",
	}, []string{"reason"})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipebox_email_notifier_errors_total",
		Help: "Errors",
	})
)
