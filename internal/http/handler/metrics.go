package handler

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the domain counters exposed at /metrics, alongside the
// generic request counter registered by the middleware.
type Metrics struct {
	SessionsStarted prometheus.Counter
	Verdicts        *prometheus.CounterVec
	Revocations     prometheus.Counter
}

// NewMetrics registers the domain counters on the shared registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "security_sessions_started_total",
			Help: "Viewing sessions opened over the websocket.",
		}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_verdicts_total",
			Help: "Judge verdicts that changed session state.",
		}, []string{"verdict"}),
		Revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "security_revocations_total",
			Help: "Documents revoked by the watchdog.",
		}),
	}
	for _, c := range []prometheus.Collector{m.SessionsStarted, m.Verdicts, m.Revocations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
