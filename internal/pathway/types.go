package pathway

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeKind is the variant of a decision node.
type NodeKind string

const (
	KindQuestion NodeKind = "question"
	KindDecision NodeKind = "decision"
	KindLookup   NodeKind = "lookup"
	KindInfo     NodeKind = "info"
	KindLink     NodeKind = "link"
	KindTerminal NodeKind = "terminal"
)

// Escalation marks an activation that requires urgent handling.
type Escalation string

const (
	EscalationNone     Escalation = "none"
	EscalationCritical Escalation = "critical"
)

// IsCritical reports whether the escalation is critical.
func (e Escalation) IsCritical() bool {
	return e == EscalationCritical
}

// Max returns the more severe of two escalations.
func (e Escalation) Max(other Escalation) Escalation {
	if e.IsCritical() || other.IsCritical() {
		return EscalationCritical
	}
	return EscalationNone
}

// Outcome classifies a terminal node.
type Outcome string

const (
	OutcomeActivated    Outcome = "activated"
	OutcomeConsider     Outcome = "consider"
	OutcomeNotActivated Outcome = "not_activated"
)

// Activates reports whether reaching a terminal with this outcome activates the pathway.
func (o Outcome) Activates() bool {
	return o == OutcomeActivated || o == OutcomeConsider || o == ""
}

// StringList decodes from either a YAML scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := value.Decode(&ss); err != nil {
			return err
		}
		*l = ss
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", value.Line)
	}
}

// String joins the list with "|", the form used in reason trails.
func (l StringList) String() string {
	return strings.Join(l, "|")
}

// Contains reports whether s is in the list.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Pathway is one named clinical decision graph.
type Pathway struct {
	ID         string           `yaml:"id" json:"id" validate:"required"`
	Title      string           `yaml:"title" json:"title"`
	Version    string           `yaml:"version,omitempty" json:"version,omitempty"`
	SourceURLs []string         `yaml:"source_urls" json:"source_urls"`
	Start      string           `yaml:"start" json:"start" validate:"required"`
	End        StringList       `yaml:"end" json:"end" validate:"required,min=1,dive,required"`
	Nodes      map[string]*Node `yaml:"nodes" json:"nodes" validate:"required,min=1,dive,required"`
}

// Node is a single decision point in a pathway graph.
type Node struct {
	ID         string     `yaml:"-" json:"id"`
	Kind       NodeKind   `yaml:"kind" json:"kind" validate:"required,oneof=question decision lookup info link terminal"`
	Label      string     `yaml:"label,omitempty" json:"label,omitempty"`
	Text       string     `yaml:"text,omitempty" json:"text,omitempty"`
	Edges      []Edge     `yaml:"edges,omitempty" json:"edges,omitempty" validate:"dive"`
	Default    string     `yaml:"default,omitempty" json:"default,omitempty"`
	Escalation Escalation `yaml:"escalation,omitempty" json:"escalation,omitempty" validate:"omitempty,oneof=none critical"`
	SourceURLs []string   `yaml:"source_urls" json:"source_urls"`

	// lookup nodes
	Calculator string `yaml:"calculator,omitempty" json:"calculator,omitempty" validate:"required_if=Kind lookup"`
	// link nodes
	Target string `yaml:"target,omitempty" json:"target,omitempty" validate:"required_if=Kind link"`
	// lookup and link nodes; namespace of the values exposed to later guards
	StoreAs string `yaml:"store_as,omitempty" json:"store_as,omitempty"`
	// terminal nodes
	Outcome Outcome `yaml:"outcome,omitempty" json:"outcome,omitempty" validate:"omitempty,oneof=activated consider not_activated"`
}

// Namespace returns the evaluation-context namespace a lookup or link node writes.
func (n *Node) Namespace() string {
	if n.StoreAs != "" {
		return n.StoreAs
	}
	switch n.Kind {
	case KindLookup:
		return n.Calculator
	case KindLink:
		return n.Target
	default:
		return ""
	}
}

// TerminalOutcome returns the node outcome, defaulting to activated.
func (n *Node) TerminalOutcome() Outcome {
	if n.Outcome == "" {
		return OutcomeActivated
	}
	return n.Outcome
}

// DisplayName returns the label, or the id when no label is authored.
func (n *Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a guarded transition. A nil guard always holds.
type Edge struct {
	When *Condition `yaml:"when,omitempty" json:"when,omitempty"`
	To   string     `yaml:"to" json:"to" validate:"required"`
}

// NodeIDs returns node ids in sorted order.
func (p *Pathway) NodeIDs() []string {
	ids := make([]string, 0, len(p.Nodes))
	for id := range p.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Node returns a node by id.
func (p *Pathway) Node(id string) (*Node, bool) {
	n, ok := p.Nodes[id]
	return n, ok
}
