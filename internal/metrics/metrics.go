package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "siwb"

// Authentication results.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultReplayed = "replayed"
)

// Metrics holds the provider's counters on a private registry.
type Metrics struct {
	registry         *prometheus.Registry
	challengesIssued prometheus.Counter
	challengeErrors  prometheus.Counter
	authentications  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		challengesIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_issued_total",
			Help:      "Number of challenges handed out.",
		}),
		challengeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_failures_total",
			Help:      "Number of challenges that could not be generated or stored.",
		}),
		authentications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_total",
			Help:      "Authentication attempts by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ChallengeIssued() {
	m.challengesIssued.Inc()
}

func (m *Metrics) ChallengeFailed() {
	m.challengeErrors.Inc()
}

func (m *Metrics) Authentication(result string) {
	m.authentications.WithLabelValues(result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs a /metrics endpoint on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	return nil
}
