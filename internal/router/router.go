package router

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aescanero/dago-pathway-router/internal/engine"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
)

// DefaultMaxParallel bounds the number of pathways evaluated at once.
const DefaultMaxParallel = 8

// Status is the activation flavour of a result.
type Status string

const (
	// StatusActive marks a pathway that reached an activated terminal
	StatusActive Status = "active"

	// StatusConsider marks a pathway that reached a consider terminal
	StatusConsider Status = "consider"

	// StatusNotActivated marks a pathway that reached a not_activated terminal
	StatusNotActivated Status = "not_activated"

	// StatusError marks a pathway whose evaluation failed
	StatusError Status = "error"
)

// ActivationResult is the routing result for one pathway
type ActivationResult struct {
	PathwayID  string             `json:"pathway_id"`
	Title      string             `json:"title,omitempty"`
	Activated  bool               `json:"activated"`
	Status     Status             `json:"status"`
	Escalation pathway.Escalation `json:"escalation"`
	Terminal   string             `json:"terminal,omitempty"`
	Reasons    []string           `json:"reasons"`
	Error      string             `json:"error,omitempty"`
	ErrorKind  string             `json:"error_kind,omitempty"`
}

// Critical reports whether the result carries a critical escalation.
func (r ActivationResult) Critical() bool {
	return r.Escalation.IsCritical()
}

// Store lists and resolves pathways.
type Store interface {
	ListIDs() []string
	Get(id string) (*pathway.Pathway, error)
}

// Observer receives per-pathway results and per-request durations.
type Observer interface {
	ObserveResult(res ActivationResult)
	ObserveRoute(d time.Duration, activated int)
}

// Option configures a Router.
type Option func(*Router)

// WithMaxParallel sets the number of pathways evaluated concurrently. 1 means
// sequential evaluation.
func WithMaxParallel(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxParallel = n
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		r.observer = o
	}
}

// Router evaluates every pathway in the store against a patient record
type Router struct {
	store       Store
	engine      *engine.Engine
	logger      *zap.Logger
	maxParallel int
	observer    Observer
}

// NewRouter creates a new router
func NewRouter(store Store, eng *engine.Engine, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		store:       store,
		engine:      eng,
		logger:      logger,
		maxParallel: DefaultMaxParallel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route returns the activated pathways and a diagnostic entry for every pathway
// whose evaluation failed, in store order.
func (r *Router) Route(ctx context.Context, rec patient.Record) ([]ActivationResult, error) {
	all, err := r.RouteAll(ctx, rec)
	if err != nil {
		return nil, err
	}

	out := make([]ActivationResult, 0, len(all))
	for _, res := range all {
		if res.Activated || res.Status == StatusError {
			out = append(out, res)
		}
	}
	return out, nil
}

// RouteAll returns one result per pathway in store order, activated or not.
//
// Pathway evaluations share nothing mutable and their results are written by
// index, so the output is identical for sequential and concurrent evaluation.
// Only a context cancelled before evaluation starts returns an error.
func (r *Router) RouteAll(ctx context.Context, rec patient.Record) ([]ActivationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ids := r.store.ListIDs()
	record := patient.Normalize(rec)
	results := make([]ActivationResult, len(ids))

	// Traversals run to completion once started.
	evalCtx := context.WithoutCancel(ctx)

	if r.maxParallel <= 1 {
		for i, id := range ids {
			results[i] = r.evaluate(evalCtx, id, record)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.maxParallel)
		for i, id := range ids {
			i, id := i, id
			g.Go(func() error {
				results[i] = r.evaluate(evalCtx, id, record)
				return nil
			})
		}
		_ = g.Wait()
	}

	activated := 0
	for _, res := range results {
		if res.Activated {
			activated++
		}
		if r.observer != nil {
			r.observer.ObserveResult(res)
		}
	}
	if r.observer != nil {
		r.observer.ObserveRoute(time.Since(start), activated)
	}

	r.logger.Info("routing decision",
		zap.Int("pathways", len(ids)),
		zap.Int("activated", activated),
		zap.Duration("duration", time.Since(start)),
	)

	return results, nil
}

// Evaluate routes a single pathway. Failures become a diagnostic result.
func (r *Router) Evaluate(ctx context.Context, pathwayID string, rec patient.Record) ActivationResult {
	return r.evaluate(context.WithoutCancel(ctx), pathwayID, patient.Normalize(rec))
}
