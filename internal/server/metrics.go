package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the studio API's Prometheus collectors on a private
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Generations      *prometheus.CounterVec
	Tests            *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	HistorySize      prometheus.GaugeFunc
}

func NewMetrics(historySize func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		Generations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promptengine_generations_total",
			Help: "Prompt generations by outcome",
		}, []string{"outcome"}),

		Tests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promptengine_tests_total",
			Help: "Prompt test runs by outcome",
		}, []string{"outcome"}),

		// LLM calls can take a while
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promptengine_upstream_duration_seconds",
			Help:    "Latency of generation and test calls",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
	}

	if historySize != nil {
		m.HistorySize = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "promptengine_history_prompts",
			Help: "Number of saved prompts in the local history",
		}, historySize)
	}
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
