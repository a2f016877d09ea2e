package progression

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var offlineFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "leanquest_client_offline_fallbacks_total",
	Help: "Completions resolved locally because the backend was unreachable",
})
