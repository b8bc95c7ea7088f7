// Package metrics exposes Prometheus instrumentation for the leveling service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dex_leveling"

// Accrual sources.
const (
	SourceMessage = "message"
	SourceVoice   = "voice"
	SourceAdmin   = "admin"
)

type Metrics struct {
	xpGranted          *prometheus.CounterVec
	grantsDropped      *prometheus.CounterVec
	levelUps           prometheus.Counter
	roleMutationErrors *prometheus.CounterVec
	announcements      *prometheus.CounterVec
	voiceTick          prometheus.Histogram
	voiceQualified     prometheus.Gauge
	cooldownEntries    prometheus.Gauge
	leaderboards       prometheus.Gauge
	pruned             prometheus.Counter
}

// New registers the service metrics with registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		xpGranted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_granted_total",
			Help:      "Experience granted, by source",
		}, []string{"source"}),
		grantsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grants_dropped_total",
			Help:      "Grants dropped after a store failure, by source",
		}, []string{"source"}),
		levelUps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Level transitions handled",
		}),
		roleMutationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_mutation_errors_total",
			Help:      "Failed tier role mutations, by operation",
		}, []string{"op"}),
		announcements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Level-up announcements, by outcome",
		}, []string{"outcome"}),
		voiceTick: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "voice_tick_seconds",
			Help:      "Duration of a voice accrual tick",
			Buckets:   prometheus.DefBuckets,
		}),
		voiceQualified: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voice_qualified_members",
			Help:      "Members granted voice XP on the last tick",
		}),
		cooldownEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cooldown_entries",
			Help:      "Members currently tracked by the message cooldown",
		}),
		leaderboards: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leaderboard_sessions",
			Help:      "Open leaderboard pagers",
		}),
		pruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_users_total",
			Help:      "Progress records removed by the prune sweep",
		}),
	}
}

func (m *Metrics) XPGranted(source string, amount int64) {
	if m == nil {
		return
	}
	m.xpGranted.WithLabelValues(source).Add(float64(amount))
}

func (m *Metrics) GrantDropped(source string) {
	if m == nil {
		return
	}
	m.grantsDropped.WithLabelValues(source).Inc()
}

func (m *Metrics) LevelUp() {
	if m == nil {
		return
	}
	m.levelUps.Inc()
}

func (m *Metrics) RoleMutationFailed(op string) {
	if m == nil {
		return
	}
	m.roleMutationErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Announcement(outcome string) {
	if m == nil {
		return
	}
	m.announcements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) VoiceTick(seconds float64, qualified int) {
	if m == nil {
		return
	}
	m.voiceTick.Observe(seconds)
	m.voiceQualified.Set(float64(qualified))
}

func (m *Metrics) CooldownEntries(n int) {
	if m == nil {
		return
	}
	m.cooldownEntries.Set(float64(n))
}

func (m *Metrics) LeaderboardOpened() {
	if m == nil {
		return
	}
	m.leaderboards.Inc()
}

func (m *Metrics) LeaderboardClosed() {
	if m == nil {
		return
	}
	m.leaderboards.Dec()
}

func (m *Metrics) Pruned(n int64) {
	if m == nil {
		return
	}
	m.pruned.Add(float64(n))
}
