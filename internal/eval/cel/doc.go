// Package cel provides a CEL (Common Expression Language) evaluator for derived
// pathway guards.
//
// Most guards are structured field comparisons; CEL covers the derived checks
// that do not fit that shape. Expressions see two variables: input (the patient
// record) and ctx (values written by lookup and link nodes earlier in the
// traversal).
//
// Example usage:
//
//	evaluator, err := cel.NewEvaluator(cel.DefaultCacheSize)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vars := map[string]interface{}{
//	    "input": map[string]interface{}{"age_days": 900.0, "fever_days": 6.0},
//	    "ctx":   map[string]interface{}{},
//	}
//
//	matched, err := evaluator.EvaluateBool("input.age_days >= 60.0 && input.fever_days >= 5.0", vars)
//
// Reading a key that is not in input yields a *MissingKeyError naming the field,
// so callers can fail closed instead of treating the guard as broken. Use has()
// to test presence explicitly:
//
//	has(input.hypoxia) && input.hypoxia
//
// Compiled programs are kept in a bounded LRU cache keyed by expression text.
package cel
