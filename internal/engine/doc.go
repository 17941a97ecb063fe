// Package engine walks a single pathway graph from its start node to a
// terminal node.
//
// At each node the engine runs the node's side effect (a lookup calculator, or
// a recursive traversal of a linked pathway), then scans the node's edges in
// declared order and follows the first one whose guard is met. A node with no
// met guard falls back to its default edge; without one the traversal is stuck
// and fails with a *TraversalError.
//
// Every traversal is bounded. The step ceiling is the step factor times the
// pathway's node count, extended by the node count of each linked pathway.
// Exceeding it, or re-entering a pathway already on the link chain, fails with
// a *CycleError.
//
// Example:
//
//	eng := engine.New(store, condition.NewEvaluator(celEval, logger),
//	    engine.WithLogger(logger),
//	    engine.WithStepFactor(4),
//	)
//	out, err := eng.Traverse(ctx, "kawasaki", rec)
//	if err != nil {
//	    trail := engine.PartialTrail(err)
//	    ...
//	}
//	fmt.Println(out.Terminal, out.Result, out.Escalation)
//	for _, line := range out.Trail {
//	    fmt.Println(line)
//	}
//
// Escalation flags on any visited node, including nodes of linked pathways, are
// recorded in the outcome; traversal always continues to a terminal node.
package engine
