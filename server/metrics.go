package server

import (
	"stack/stack"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	sessions   prometheus.Gauge
	placements *prometheus.CounterVec
	scores     prometheus.Histogram
}

// newMetrics builds the server metrics and registers them with reg. A nil
// reg keeps them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stack",
			Name:      "sessions_active",
			Help:      "Number of open Play streams.",
		}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stack",
			Name:      "placements_total",
			Help:      "Blocks dropped by the players, by outcome.",
		}, []string{"outcome"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stack",
			Name:      "final_score",
			Help:      "Score of every finished game.",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessions, m.placements, m.scores)
	}
	return m
}

func (m *metrics) observe(events []stack.Event, s *stack.Snapshot) {
	for _, e := range events {
		switch e := e.(type) {
		case stack.BlockPlaced:
			m.placements.WithLabelValues(outcome(e.Placement)).Inc()
		case stack.StateChanged:
			if e.To == stack.Ended {
				m.scores.Observe(float64(s.Score))
			}
		}
	}
}

func outcome(p stack.Placement) string {
	switch {
	case p.Placed == nil:
		return "missed"
	case p.Bonus:
		return "bonus"
	default:
		return "placed"
	}
}
