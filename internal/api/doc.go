// Package api serves the pathway router over HTTP with gin.
//
// Endpoints:
//
//	POST /v1/route            route a patient record (?all=true for every pathway)
//	GET  /v1/pathways         list pathways in manifest order
//	GET  /v1/pathways/:id     one pathway graph
//	POST /v1/uticalc          UTICalc pretest lookup on its own
//	GET  /health              liveness with dependency checks
//	GET  /ready               readiness: content loaded and dependencies up
//	GET  /metrics             Prometheus metrics
//
// Example usage:
//
//	srv := api.NewServer(api.Deps{
//	    Router:  r,
//	    Store:   store,
//	    Metrics: recorder.Handler(),
//	    Checks:  map[string]api.ReadyCheck{"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
//	    Logger:  logger,
//	}, false)
//	srv.Start(8080)
//	defer srv.Stop(ctx)
package api
