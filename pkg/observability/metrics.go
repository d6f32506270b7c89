package observability

import (
	"github.com/aretw0/parley/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by session lifecycle hooks.
type Metrics struct {
	SessionsStarted prometheus.Counter
	SessionsEnded   prometheus.Counter
	ActiveSessions  prometheus.Gauge
	Lines           *prometheus.CounterVec
	Choices         prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_sessions_started_total",
			Help: "Total number of dialogue sessions started",
		}),
		SessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_sessions_ended_total",
			Help: "Total number of dialogue sessions ended",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parley_active_sessions",
			Help: "Number of dialogue sessions currently live",
		}),
		Lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_lines_total",
				Help: "Total number of dialogue lines produced, by cue",
			},
			[]string{"cue"},
		),
		Choices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_choices_selected_total",
			Help: "Total number of choices selected",
		}),
	}

	for _, c := range []prometheus.Collector{m.SessionsStarted, m.SessionsEnded, m.ActiveSessions, m.Lines, m.Choices} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(*domain.SessionEvent) {
			m.SessionsStarted.Inc()
			m.ActiveSessions.Inc()
		},
		OnSessionEnd: func(*domain.SessionEvent) {
			m.SessionsEnded.Inc()
			m.ActiveSessions.Dec()
		},
		OnLine: func(e *domain.LineEvent) {
			m.Lines.WithLabelValues(e.Line.Cue.String()).Inc()
		},
		OnChoiceSelected: func(*domain.ChoiceEvent) {
			m.Choices.Inc()
		},
	}
}
