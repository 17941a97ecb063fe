package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aescanero/dago-pathway-router/internal/engine"
	"github.com/aescanero/dago-pathway-router/internal/eval/cel"
	"github.com/aescanero/dago-pathway-router/internal/eval/template"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
)

// Rule names a consistency check.
type Rule string

const (
	RuleManifest   Rule = "manifest"
	RuleLink       Rule = "link_target"
	RuleLinkCycle  Rule = "link_cycle"
	RuleStart      Rule = "start"
	RuleEnd        Rule = "end"
	RuleReachable  Rule = "reachable_terminal"
	RuleSources    Rule = "source_urls"
	RuleEdge       Rule = "edge_target"
	RuleTerminal   Rule = "terminal_edges"
	RuleDeadEnd    Rule = "dead_end"
	RuleField      Rule = "schema_field"
	RuleFieldType  Rule = "field_type"
	RuleCalculator Rule = "calculator"
	RuleExpr       Rule = "expression"
	RuleTemplate   Rule = "template"
)

// Issue is one consistency violation.
type Issue struct {
	PathwayID string `json:"pathway_id,omitempty"`
	NodeID    string `json:"node_id,omitempty"`
	Rule      Rule   `json:"rule"`
	Message   string `json:"message"`
}

// String renders the issue for CLI output.
func (i Issue) String() string {
	where := i.PathwayID
	if i.NodeID != "" {
		where += "/" + i.NodeID
	}
	if where == "" {
		return fmt.Sprintf("[%s] %s", i.Rule, i.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", where, i.Rule, i.Message)
}

// Report is the outcome of validating a store.
type Report struct {
	Pathways int     `json:"pathways"`
	Issues   []Issue `json:"issues"`
}

// OK reports whether no issues were found.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// Err returns nil for a clean report, else an error summarising the issues.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	lines := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		lines[i] = issue.String()
	}
	return fmt.Errorf("content validation failed with %d issue(s):\n%s", len(r.Issues), strings.Join(lines, "\n"))
}

// Store is the content being validated.
type Store interface {
	ListIDs() []string
	Get(id string) (*pathway.Pathway, error)
	Manifest() pathway.Manifest
}

// Validator checks pathway content for the invariants the router relies on.
type Validator struct {
	cel         *cel.Evaluator
	templates   *template.Engine
	calculators map[string]map[string]struct{}
}

// New creates a validator. Expression guards are compile-checked with celEval
// when it is non-nil.
func New(celEval *cel.Evaluator, calculators ...engine.Calculator) *Validator {
	v := &Validator{
		cel:         celEval,
		templates:   template.NewEngine(),
		calculators: make(map[string]map[string]struct{}),
	}
	for _, c := range calculators {
		keys := make(map[string]struct{})
		for _, k := range c.Outputs() {
			keys[k] = struct{}{}
		}
		v.calculators[c.Name()] = keys
	}
	return v
}

// Validate checks every pathway in the store. Issues are reported in manifest
// order, then node id order.
func (v *Validator) Validate(store Store) *Report {
	report := &Report{Issues: []Issue{}}
	ids := store.ListIDs()
	report.Pathways = len(ids)

	for _, entry := range store.Manifest().Pathways {
		if _, err := store.Get(entry.ID); err != nil {
			report.Issues = append(report.Issues, Issue{
				PathwayID: entry.ID,
				Rule:      RuleManifest,
				Message:   "manifest lists a pathway the store does not hold",
			})
		}
	}

	links := make(map[string][]string)
	for _, id := range ids {
		p, err := store.Get(id)
		if err != nil {
			continue
		}
		issues, targets := v.checkPathway(store, p)
		report.Issues = append(report.Issues, issues...)
		links[id] = targets
	}

	report.Issues = append(report.Issues, linkCycles(ids, links)...)
	return report
}

func (v *Validator) checkPathway(store Store, p *pathway.Pathway) ([]Issue, []string) {
	var issues []Issue
	add := func(node string, rule Rule, format string, args ...any) {
		issues = append(issues, Issue{
			PathwayID: p.ID,
			NodeID:    node,
			Rule:      rule,
			Message:   fmt.Sprintf(format, args...),
		})
	}

	if len(p.SourceURLs) == 0 {
		add("", RuleSources, "pathway has no source_urls")
	}

	if _, ok := p.Node(p.Start); !ok {
		add("", RuleStart, "start node %q is not defined", p.Start)
	}
	for _, end := range p.End {
		n, ok := p.Node(end)
		switch {
		case !ok:
			add("", RuleEnd, "end node %q is not defined", end)
		case n.Kind != pathway.KindTerminal:
			add("", RuleEnd, "end node %q is a %s node, not terminal", end, n.Kind)
		}
	}

	namespaces := make(map[string]map[string]struct{})
	var targets []string
	for _, id := range p.NodeIDs() {
		n := p.Nodes[id]
		switch n.Kind {
		case pathway.KindLookup:
			keys, ok := v.calculators[n.Calculator]
			if !ok {
				add(id, RuleCalculator, "unknown calculator %q", n.Calculator)
				continue
			}
			namespaces[n.Namespace()] = keys
		case pathway.KindLink:
			targets = append(targets, n.Target)
			if _, err := store.Get(n.Target); err != nil {
				add(id, RuleLink, "link target %q is not in the store", n.Target)
			}
			keys := make(map[string]struct{})
			for _, k := range engine.LinkOutputs {
				keys[k] = struct{}{}
			}
			namespaces[n.Namespace()] = keys
		}
	}

	for _, id := range p.NodeIDs() {
		n := p.Nodes[id]

		if len(n.SourceURLs) == 0 {
			add(id, RuleSources, "node has no source_urls")
		}

		if n.Kind == pathway.KindTerminal {
			if len(n.Edges) > 0 || n.Default != "" {
				add(id, RuleTerminal, "terminal node has outgoing edges")
			}
		} else if len(n.Edges) == 0 && n.Default == "" {
			add(id, RuleDeadEnd, "%s node has no edges and no default", n.Kind)
		}

		for i, e := range n.Edges {
			if _, ok := p.Node(e.To); !ok {
				add(id, RuleEdge, "edge %d points at undefined node %q", i, e.To)
			}
			for _, f := range e.When.Fields() {
				if msg := checkField(f, namespaces); msg != "" {
					add(id, RuleField, "edge %d: %s", i, msg)
				}
			}
			for _, msg := range checkTypes(e.When) {
				add(id, RuleFieldType, "edge %d: %s", i, msg)
			}
			if v.cel != nil {
				for _, expr := range e.When.Expressions() {
					if err := v.cel.ValidateExpression(expr); err != nil {
						add(id, RuleExpr, "edge %d: %v", i, err)
					}
				}
			}
		}
		if n.Default != "" {
			if _, ok := p.Node(n.Default); !ok {
				add(id, RuleEdge, "default points at undefined node %q", n.Default)
			}
		}

		if n.Text != "" {
			if err := v.templates.ValidateTemplate(n.Text); err != nil {
				add(id, RuleTemplate, "text does not parse: %v", err)
			}
		}
	}

	if _, ok := p.Node(p.Start); ok && !reachesEnd(p) {
		add("", RuleReachable, "no terminal listed in end is reachable from %q", p.Start)
	}

	return issues, targets
}

// checkField returns a message when a condition field is neither a schema field
// nor a key written by a lookup or link node of the same pathway.
func checkField(field string, namespaces map[string]map[string]struct{}) string {
	if _, ok := patient.Lookup(field); ok {
		return ""
	}
	ns, key := pathway.SplitField(field)
	if ns == "" {
		return fmt.Sprintf("field %q is not in the patient schema", field)
	}
	keys, ok := namespaces[ns]
	if !ok {
		return fmt.Sprintf("field %q: no lookup or link node writes namespace %q", field, ns)
	}
	if _, ok := keys[key]; !ok {
		return fmt.Sprintf("field %q: namespace %q has no key %q", field, ns, key)
	}
	return ""
}

// checkTypes flags comparisons whose literal does not fit the schema kind.
func checkTypes(c *pathway.Condition) []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, sub := range c.All {
		out = append(out, checkTypes(sub)...)
	}
	for _, sub := range c.Any {
		out = append(out, checkTypes(sub)...)
	}
	out = append(out, checkTypes(c.Not)...)

	if c.Count != nil {
		for _, criterion := range c.Count.Fields {
			for _, f := range criterion {
				if fd, ok := patient.Lookup(f); ok && fd.Kind == patient.KindNumber {
					out = append(out, fmt.Sprintf("count field %q is number, not bool or category", f))
				}
			}
		}
		if c.Count.TotalField != "" {
			if fd, ok := patient.Lookup(c.Count.TotalField); ok && fd.Kind != patient.KindNumber {
				out = append(out, fmt.Sprintf("total_field %q is %s, not number", c.Count.TotalField, fd.Kind))
			}
		}
	}

	if c.Field == "" {
		return out
	}
	fd, ok := patient.Lookup(c.Field)
	if !ok {
		return out
	}
	literals := c.Values
	if c.Value != nil {
		literals = append([]any{c.Value}, literals...)
	}
	if c.Op == pathway.OpBetween && fd.Kind != patient.KindNumber {
		out = append(out, fmt.Sprintf("field %q is %s; between needs a number", c.Field, fd.Kind))
	}
	for _, lit := range literals {
		if msg := literalFits(fd, lit); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

func literalFits(fd patient.Field, lit any) string {
	switch fd.Kind {
	case patient.KindBool:
		if _, ok := lit.(bool); !ok {
			return fmt.Sprintf("field %q is bool, compared with %v", fd.Name, lit)
		}
	case patient.KindNumber:
		if _, ok := patient.ToFloat(lit); !ok {
			return fmt.Sprintf("field %q is number, compared with %v", fd.Name, lit)
		}
	case patient.KindCategory:
		s, ok := lit.(string)
		if !ok {
			return fmt.Sprintf("field %q is category, compared with %v", fd.Name, lit)
		}
		if len(fd.Values) > 0 && !contains(fd.Values, strings.ToLower(s)) {
			return fmt.Sprintf("field %q has no category %q", fd.Name, s)
		}
	}
	return ""
}

// reachesEnd reports whether a terminal listed in end is reachable from start,
// following every edge regardless of its guard.
func reachesEnd(p *pathway.Pathway) bool {
	seen := map[string]bool{p.Start: true}
	queue := []string{p.Start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := p.Node(id)
		if !ok {
			continue
		}
		if n.Kind == pathway.KindTerminal && p.End.Contains(id) {
			return true
		}
		next := make([]string, 0, len(n.Edges)+1)
		for _, e := range n.Edges {
			next = append(next, e.To)
		}
		if n.Default != "" {
			next = append(next, n.Default)
		}
		for _, to := range next {
			if !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		}
	}
	return false
}

// linkCycles finds pathways that can reach themselves through link nodes.
func linkCycles(ids []string, links map[string][]string) []Issue {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(ids))
	reported := make(map[string]bool)
	var issues []Issue

	var visit func(id string, stack []string)
	visit = func(id string, stack []string) {
		color[id] = grey
		stack = append(stack, id)
		targets := append([]string(nil), links[id]...)
		sort.Strings(targets)
		for _, t := range targets {
			switch color[t] {
			case grey:
				start := 0
				for i, s := range stack {
					if s == t {
						start = i
						break
					}
				}
				chain := append(append([]string(nil), stack[start:]...), t)
				key := strings.Join(chain, ">")
				if !reported[key] {
					reported[key] = true
					issues = append(issues, Issue{
						PathwayID: t,
						Rule:      RuleLinkCycle,
						Message:   "link cycle " + strings.Join(chain, " -> "),
					})
				}
			case white:
				if _, known := links[t]; known {
					visit(t, stack)
				}
			}
		}
		color[id] = black
	}

	for _, id := range ids {
		if color[id] == white {
			visit(id, nil)
		}
	}
	return issues
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
