package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/dago-pathway-router/internal/pathway"
)

// TraversalError reports a node where no guard matched and no default edge
// exists. It is an authoring defect confined to one pathway.
type TraversalError struct {
	PathwayID string
	NodeID    string
	Reason    string
	// Trail is the partial reason trail up to the failing node.
	Trail []string
	// Escalation is the highest escalation crossed before the failure.
	Escalation pathway.Escalation
}

// Error implements the error interface
func (e *TraversalError) Error() string {
	return fmt.Sprintf("pathway %s: traversal stuck at node %s: %s", e.PathwayID, e.NodeID, e.Reason)
}

// CycleError reports a traversal that exceeded its step ceiling or re-entered a
// pathway already on the link chain.
type CycleError struct {
	PathwayID string
	NodeID    string
	Steps     int
	Limit     int
	// Chain is set for cross-pathway cycles: the link chain ending in the re-entered id.
	Chain      []string
	Trail      []string
	Escalation pathway.Escalation
}

// Error implements the error interface
func (e *CycleError) Error() string {
	if len(e.Chain) > 0 {
		return fmt.Sprintf("pathway %s: link cycle %s", e.PathwayID, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("pathway %s: step ceiling %d exceeded at node %s", e.PathwayID, e.Limit, e.NodeID)
}

// PartialTrail returns the reason trail recorded before a traversal failed.
func PartialTrail(err error) []string {
	var traversal *TraversalError
	var cycle *CycleError
	switch {
	case errors.As(err, &traversal):
		return traversal.Trail
	case errors.As(err, &cycle):
		return cycle.Trail
	default:
		return nil
	}
}

// PartialEscalation returns the escalation reached before a traversal failed.
// A critical node on the partial trail keeps the failure critical.
func PartialEscalation(err error) pathway.Escalation {
	var traversal *TraversalError
	var cycle *CycleError
	switch {
	case errors.As(err, &traversal) && traversal.Escalation != "":
		return traversal.Escalation
	case errors.As(err, &cycle) && cycle.Escalation != "":
		return cycle.Escalation
	default:
		return pathway.EscalationNone
	}
}

// enclose adds the enclosing pathway's trail and escalation to a failure
// raised inside a linked pathway.
func enclose(err error, prefix []string, escalation pathway.Escalation) error {
	join := func(rest []string) []string {
		if len(prefix) == 0 {
			return rest
		}
		out := make([]string, 0, len(prefix)+len(rest))
		out = append(out, prefix...)
		return append(out, rest...)
	}
	var traversal *TraversalError
	var cycle *CycleError
	switch {
	case errors.As(err, &traversal):
		traversal.Trail = join(traversal.Trail)
		traversal.Escalation = escalation.Max(traversal.Escalation)
	case errors.As(err, &cycle):
		cycle.Trail = join(cycle.Trail)
		cycle.Escalation = escalation.Max(cycle.Escalation)
	}
	return err
}
