// Package metrics exposes router activity as Prometheus metrics.
//
// A Recorder owns its own registry, so tests and multiple routers in one
// process never collide on collector names. Pass it to the router with
// router.WithObserver and mount Handler at /metrics.
package metrics
