// Package app wires the pathway store, evaluators, engine and router from
// configuration. Both binaries build their components through it so they route
// identically.
//
//	a, err := app.Build(app.Options{StepFactor: 4, MaxParallel: 8, Strict: true}, logger)
//	results, err := a.Router.Route(ctx, rec)
package app
