package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_credential_ops_total",
		Help: "Credential operations by result.",
	}, []string{"op", "outcome"})

	notifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipebox_registration_notify_failures_total",
		Help: "Registration notifications that could not be handed off.",
	})

	purgedTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipebox_refresh_tokens_purged_total",
		Help: "Expired refresh token records removed by the janitor.",
	})
)
