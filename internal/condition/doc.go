// Package condition evaluates pathway guard conditions against a patient record.
//
// Evaluation is three-valued. A comparison on a field the record does not carry
// is unknown; all/any/not propagate unknown the usual way, and an unknown guard
// is never met. A field whose recorded type does not fit the comparison (a
// category compared with a number, for example) is false and is logged, never
// raised.
//
//	eval := condition.NewEvaluator(celEval, logger)
//	res := eval.Evaluate(edge.When, condition.NewScope(rec))
//	if !res.Met {
//	    fmt.Println(res.Outcome()) // "condition unmet: field fever_days absent"
//	}
//
// Fields with a unit in the patient schema (days, months, weeks, years) are
// floored to whole units before comparison.
package condition
