// Package validate statically checks pathway content before the router is
// allowed to trust it.
//
// The router never re-checks these rules at evaluation time; running it against
// content that fails validation is only defined up to the router's own error
// paths. The checks are:
//
//   - manifest ids and link targets exist in the store
//   - start exists and a terminal listed in end is reachable from it
//   - the pathway and every node carry at least one source URL
//   - edges and defaults point at defined nodes; terminals have no edges
//   - condition fields are schema fields or keys written by a lookup or link
//     node of the same pathway, and literals fit the field kind
//   - lookup calculators are known, CEL guards compile, node text parses
//   - no pathway reaches itself through link nodes
//
// Example:
//
//	v := validate.New(celEval, eng.Calculators()...)
//	if err := v.Validate(store).Err(); err != nil {
//	    log.Fatal(err)
//	}
package validate
