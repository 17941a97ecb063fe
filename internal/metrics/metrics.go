package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aescanero/dago-pathway-router/internal/router"
)

const namespace = "pathway_router"

// Recorder holds the router's Prometheus collectors on its own registry.
//
// It implements router.Observer.
type Recorder struct {
	registry *prometheus.Registry

	// routeDuration measures one RouteAll call across all pathways.
	routeDuration prometheus.Histogram

	// results counts per-pathway outcomes.
	// Labels: pathway, status (active, consider, not_activated, error)
	results *prometheus.CounterVec

	// escalations counts critical activations.
	// Labels: pathway
	escalations *prometheus.CounterVec

	// errors counts failed pathway evaluations.
	// Labels: pathway, kind (traversal, cycle, not_found, panic, internal)
	errors *prometheus.CounterVec

	// activationsPerRoute tracks how many pathways activate together.
	activationsPerRoute prometheus.Histogram

	// workerMessages counts stream messages handled by the worker.
	// Labels: outcome (ok, error)
	workerMessages *prometheus.CounterVec
}

// NewRecorder creates a recorder with its collectors registered on a fresh
// registry, alongside the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		routeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_duration_seconds",
			Help:      "Time to evaluate every pathway for one patient record",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pathway_results_total",
			Help:      "Pathway evaluations by outcome status",
		}, []string{"pathway", "status"}),
		escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "critical_escalations_total",
			Help:      "Activations carrying a critical escalation",
		}, []string{"pathway"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pathway_errors_total",
			Help:      "Pathway evaluations that failed and were isolated",
		}, []string{"pathway", "kind"}),
		activationsPerRoute: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activations_per_route",
			Help:      "Number of pathways activated for one patient record",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		}),
		workerMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "messages_total",
			Help:      "Stream messages processed by the worker",
		}, []string{"outcome"}),
	}
}

// ObserveResult implements router.Observer.
func (r *Recorder) ObserveResult(res router.ActivationResult) {
	r.results.WithLabelValues(res.PathwayID, string(res.Status)).Inc()
	if res.Activated && res.Critical() {
		r.escalations.WithLabelValues(res.PathwayID).Inc()
	}
	if res.Status == router.StatusError {
		r.errors.WithLabelValues(res.PathwayID, res.ErrorKind).Inc()
	}
}

// ObserveRoute implements router.Observer.
func (r *Recorder) ObserveRoute(d time.Duration, activated int) {
	r.routeDuration.Observe(d.Seconds())
	r.activationsPerRoute.Observe(float64(activated))
}

// ObserveMessage counts a worker message by outcome.
func (r *Recorder) ObserveMessage(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.workerMessages.WithLabelValues(outcome).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
