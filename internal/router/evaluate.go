package router

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aescanero/dago-pathway-router/internal/engine"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
)

// evaluate traverses one pathway and converts the outcome, or the failure, into
// an ActivationResult. It never panics and never returns an error.
func (r *Router) evaluate(ctx context.Context, id string, rec patient.Record) (res ActivationResult) {
	res = ActivationResult{
		PathwayID:  id,
		Escalation: pathway.EscalationNone,
		Reasons:    []string{},
	}
	if p, err := r.store.Get(id); err == nil {
		res.Title = p.Title
	}

	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("pathway evaluation panicked",
				zap.String("pathway_id", id),
				zap.Any("panic", v),
			)
			res = diagnostic(res, nil, pathway.EscalationNone, "panic", fmt.Errorf("pathway %s: evaluation panicked: %v", id, v))
		}
	}()

	out, err := r.engine.Traverse(ctx, id, rec)
	if err != nil {
		r.logger.Warn("pathway evaluation failed",
			zap.String("pathway_id", id),
			zap.String("kind", errorKind(err)),
			zap.Error(err),
		)
		return diagnostic(res, engine.PartialTrail(err), engine.PartialEscalation(err), errorKind(err), err)
	}

	res.Terminal = out.Terminal
	res.Escalation = out.Escalation
	res.Activated = out.Activated()
	res.Reasons = append(res.Reasons, out.Trail...)

	switch out.Result {
	case pathway.OutcomeConsider:
		res.Status = StatusConsider
	case pathway.OutcomeNotActivated:
		res.Status = StatusNotActivated
	default:
		res.Status = StatusActive
	}

	r.logger.Debug("pathway evaluated",
		zap.String("pathway_id", id),
		zap.String("terminal", out.Terminal),
		zap.String("status", string(res.Status)),
		zap.String("escalation", string(res.Escalation)),
		zap.Int("steps", out.Steps),
	)

	return res
}

// diagnostic turns a failed evaluation into a non-activated result whose trail
// ends with the error.
func diagnostic(res ActivationResult, trail []string, escalation pathway.Escalation, kind string, err error) ActivationResult {
	res.Activated = false
	res.Status = StatusError
	res.Terminal = ""
	res.Escalation = escalation
	res.Reasons = append(append([]string{}, trail...), "error: "+err.Error())
	res.Error = err.Error()
	res.ErrorKind = kind
	return res
}

// errorKind classifies an evaluation failure for logs and metrics.
func errorKind(err error) string {
	var traversal *engine.TraversalError
	var cycle *engine.CycleError
	switch {
	case errors.As(err, &traversal):
		return "traversal"
	case errors.As(err, &cycle):
		return "cycle"
	case errors.Is(err, pathway.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
