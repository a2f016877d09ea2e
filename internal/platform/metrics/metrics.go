package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server-side Prometheus metrics.
type Metrics struct {
	SubmissionsTotal     *prometheus.CounterVec
	XPAwardedTotal       prometheus.Counter
	AchievementsUnlocked prometheus.Counter
	LevelUpsTotal        prometheus.Counter
	TokenRefreshesTotal  *prometheus.CounterVec
}

// New creates and registers all server metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leanquest_submissions_total",
			Help: "Total audit submissions processed, by risk tier",
		}, []string{"risk_tier"}),
		XPAwardedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leanquest_xp_awarded_total",
			Help: "Total experience points awarded across all players",
		}),
		AchievementsUnlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leanquest_achievements_unlocked_total",
			Help: "Total achievements unlocked across all players",
		}),
		LevelUpsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leanquest_level_ups_total",
			Help: "Total level transitions applied to players",
		}),
		TokenRefreshesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leanquest_token_refreshes_total",
			Help: "Refresh token grants, by outcome",
		}, []string{"outcome"}),
	}
}
