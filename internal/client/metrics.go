package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leanquest_client_token_refreshes_total",
		Help: "Token refresh calls actually issued, by outcome",
	}, []string{"outcome"})

	refreshWaitersCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leanquest_client_refresh_waiters_coalesced_total",
		Help: "Requests that piggybacked on an in-flight token refresh",
	})

	rateLimitRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leanquest_client_rate_limit_retries_total",
		Help: "Delayed retries performed after a 429 response",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leanquest_client_requests_total",
		Help: "Pipeline requests, by final outcome code",
	}, []string{"code"})
)
