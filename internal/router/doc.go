// Package router evaluates every pathway in a store against one patient record.
//
// Each pathway is traversed independently by the engine. Route returns the
// pathways that reached an activating terminal together with a diagnostic entry
// for each pathway whose evaluation failed; RouteAll returns one entry per
// pathway. Both preserve store order, and several simultaneous activations are
// a normal result.
//
// A *engine.TraversalError, *engine.CycleError or panic inside one pathway is
// converted into a diagnostic result (Activated false, Status "error", the
// partial trail followed by the error) and never affects sibling pathways.
//
// Example:
//
//	r := router.NewRouter(store, eng, logger,
//	    router.WithMaxParallel(8),
//	    router.WithObserver(recorder),
//	)
//	results, err := r.Route(ctx, patient.Record{
//	    "age_months": 30,
//	    "fever_days": 6,
//	    "kd_conjunctivitis": true,
//	})
//	for _, res := range results {
//	    fmt.Println(res.PathwayID, res.Status, res.Escalation)
//	}
package router
