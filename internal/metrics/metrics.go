// Package metrics exposes Prometheus collectors for the response pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	latency     prometheus.Histogram
	typing      prometheus.Gauge
	targets     *prometheus.CounterVec
}

// New creates collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glitchcity_generations_total",
			Help: "Persona response tasks by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "glitchcity_generation_seconds",
			Help:    "Time spent waiting on the generation backend.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		typing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glitchcity_typing_personas",
			Help: "Personas currently composing a reply.",
		}),
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glitchcity_targets_total",
			Help: "Personas selected to respond, by targeting rule.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(m.generations, m.latency, m.typing, m.targets)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Outcome counts one finished response task.
func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
}

// Latency records one generation call.
func (m *Metrics) Latency(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}

// Typing sets the number of personas typing.
func (m *Metrics) Typing(n int) {
	if m == nil {
		return
	}
	m.typing.Set(float64(n))
}

// Target counts one selected persona.
func (m *Metrics) Target(reason string) {
	if m == nil {
		return
	}
	m.targets.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
