package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/aescanero/dago-pathway-router/internal/condition"
	"github.com/aescanero/dago-pathway-router/internal/eval/template"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
)

// DefaultStepFactor multiplies a pathway's node count to give its step ceiling.
const DefaultStepFactor = 4

// Store is the read-only view of pathway content the engine needs.
type Store interface {
	Get(id string) (*pathway.Pathway, error)
}

// Outcome is the result of walking one pathway to a terminal node.
type Outcome struct {
	PathwayID  string
	Terminal   string
	Result     pathway.Outcome
	Escalation pathway.Escalation
	Trail      []string
	Steps      int
	// Values is the evaluation context at the terminal node, by namespace.
	Values map[string]map[string]any
}

// Activated reports whether the terminal reached activates the pathway.
func (o *Outcome) Activated() bool {
	return o.Result.Activates() && o.Result != ""
}

// Engine walks pathway graphs.
type Engine struct {
	store       Store
	conditions  *condition.Evaluator
	templates   *template.Engine
	calculators map[string]Calculator
	stepFactor  int
	logger      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStepFactor sets the step ceiling multiplier.
func WithStepFactor(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.stepFactor = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCalculator registers an additional lookup calculator, replacing any with the same name.
func WithCalculator(c Calculator) Option {
	return func(e *Engine) {
		e.calculators[c.Name()] = c
	}
}

// WithTemplates sets the node text renderer.
func WithTemplates(t *template.Engine) Option {
	return func(e *Engine) {
		e.templates = t
	}
}

// New creates a traversal engine over store. The UTICalc, Centor and infant age
// calculators are registered by default.
func New(store Store, conditions *condition.Evaluator, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		conditions: conditions,
		calculators: map[string]Calculator{
			UTICalc{}.Name():   UTICalc{},
			Centor{}.Name():    Centor{},
			InfantAge{}.Name(): InfantAge{},
		},
		stepFactor: DefaultStepFactor,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.conditions == nil {
		e.conditions = condition.NewEvaluator(nil, e.logger)
	}
	if e.templates == nil {
		e.templates = template.NewEngine()
	}
	return e
}

// Calculators returns the registered calculators sorted by name.
func (e *Engine) Calculators() []Calculator {
	out := make([]Calculator, 0, len(e.calculators))
	for _, c := range e.calculators {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// walk is the state shared across one traversal, including linked pathways.
type walk struct {
	record patient.Record
	steps  int
	limit  int
	stack  []string
}

// Traverse walks a pathway from its start node to a terminal node.
//
// The step ceiling is the step factor times the pathway's node count and grows
// by the linked pathway's node count at each link. A pathway re-entered through
// links is a *CycleError, as is exceeding the ceiling. A node with no matching
// guard and no default edge is a *TraversalError.
func (e *Engine) Traverse(ctx context.Context, pathwayID string, rec patient.Record) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := e.store.Get(pathwayID)
	if err != nil {
		return nil, err
	}

	w := &walk{
		record: rec,
		limit:  e.stepFactor * len(p.Nodes),
	}
	return e.traverse(p, w)
}

func (e *Engine) traverse(p *pathway.Pathway, w *walk) (*Outcome, error) {
	for _, id := range w.stack {
		if id == p.ID {
			chain := append(append([]string(nil), w.stack...), p.ID)
			return nil, &CycleError{
				PathwayID: chain[0],
				NodeID:    p.Start,
				Steps:     w.steps,
				Limit:     w.limit,
				Chain:     chain,
			}
		}
	}
	w.stack = append(w.stack, p.ID)
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	scope := condition.NewScope(w.record)
	out := &Outcome{
		PathwayID:  p.ID,
		Escalation: pathway.EscalationNone,
	}

	current := p.Start
	for {
		node, ok := p.Node(current)
		if !ok || node == nil {
			return nil, &TraversalError{
				PathwayID: p.ID,
				NodeID:    current,
				Reason:     "node is not defined",
				Trail:      out.Trail,
				Escalation: out.Escalation,
			}
		}

		w.steps++
		if w.steps > w.limit {
			return nil, &CycleError{
				PathwayID:  p.ID,
				NodeID:     node.ID,
				Steps:      w.steps,
				Limit:      w.limit,
				Trail:      out.Trail,
				Escalation: out.Escalation,
			}
		}
		out.Steps++

		if node.Escalation.IsCritical() {
			out.Escalation = pathway.EscalationCritical
		}

		e.logger.Debug("visiting node",
			zap.String("pathway_id", p.ID),
			zap.String("node_id", node.ID),
			zap.String("kind", string(node.Kind)),
			zap.Int("steps", w.steps),
		)

		var notes []string

		switch node.Kind {
		case pathway.KindTerminal:
			out.Terminal = node.ID
			out.Result = node.TerminalOutcome()
			out.Values = scope.Context
			out.Trail = append(out.Trail, e.entry(p, node, scope, []string{fmt.Sprintf("terminal (%s)", out.Result)}, ""))
			return out, nil

		case pathway.KindLookup:
			calc, ok := e.calculators[node.Calculator]
			if !ok {
				return nil, &TraversalError{
					PathwayID: p.ID,
					NodeID:    node.ID,
					Reason:     fmt.Sprintf("unknown calculator %q", node.Calculator),
					Trail:      out.Trail,
					Escalation: out.Escalation,
				}
			}
			values, summary := calc.Compute(w.record)
			scope.Set(node.Namespace(), values)
			notes = append(notes, summary)

		case pathway.KindLink:
			target, err := e.store.Get(node.Target)
			if err != nil {
				return nil, fmt.Errorf("pathway %s node %s: %w", p.ID, node.ID, err)
			}
			w.limit += e.stepFactor * len(target.Nodes)

			sub, err := e.traverse(target, w)
			if err != nil {
				return nil, enclose(err, out.Trail, out.Escalation)
			}
			out.Escalation = out.Escalation.Max(sub.Escalation)
			out.Trail = append(out.Trail, sub.Trail...)
			scope.Set(node.Namespace(), map[string]any{
				"activated":  sub.Activated(),
				"status":     string(sub.Result),
				"escalation": string(sub.Escalation),
				"terminal":   sub.Terminal,
			})
			notes = append(notes, fmt.Sprintf("linked pathway %s reached %s (%s, escalation %s)",
				target.ID, sub.Terminal, sub.Result, sub.Escalation))
		}

		next, guards, ok := e.selectEdge(node, scope)
		if !ok {
			out.Trail = append(out.Trail, e.entry(p, node, scope, append(notes, guards...), ""))
			return nil, &TraversalError{
				PathwayID: p.ID,
				NodeID:    node.ID,
				Reason:     "no guard matched and no default edge",
				Trail:      out.Trail,
				Escalation: out.Escalation,
			}
		}
		out.Trail = append(out.Trail, e.entry(p, node, scope, append(notes, guards...), next))
		current = next
	}
}

// selectEdge scans edges in declared order; the first met guard wins.
func (e *Engine) selectEdge(node *pathway.Node, scope *condition.Scope) (string, []string, bool) {
	guards := make([]string, 0, len(node.Edges)+1)
	for _, edge := range node.Edges {
		res := e.conditions.Evaluate(edge.When, scope)
		guards = append(guards, res.Detail+" -> "+res.Outcome())
		if res.Met {
			return edge.To, guards, true
		}
	}
	if node.Default != "" {
		guards = append(guards, "default edge")
		return node.Default, guards, true
	}
	return "", guards, false
}

// entry formats one reason-trail line for a visited node.
func (e *Engine) entry(p *pathway.Pathway, node *pathway.Node, scope *condition.Scope, parts []string, next string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s %q: %s", p.ID, node.ID, node.DisplayName(), strings.Join(parts, "; "))
	if next != "" {
		fmt.Fprintf(&b, " => %s", next)
	}
	if node.Escalation.IsCritical() {
		b.WriteString(" [escalation: critical]")
	}
	if node.Text != "" {
		text, err := e.templates.Render(node.Text, scope.TemplateData())
		if err != nil {
			e.logger.Warn("failed to render node text",
				zap.String("pathway_id", p.ID),
				zap.String("node_id", node.ID),
				zap.Error(err),
			)
			text = "text unavailable"
		}
		if text != "" {
			fmt.Fprintf(&b, " | %s", text)
		}
	}
	return b.String()
}
