package pathway

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Operator is a field comparison operator.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNe      Operator = "ne"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpBetween Operator = "between"
	OpIn      Operator = "in"
	OpPresent Operator = "present"
	OpAbsent  Operator = "absent"
)

// Symbol returns the operator as it appears in reason trails.
func (o Operator) Symbol() string {
	switch o {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return string(o)
	}
}

func (o Operator) valid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIn, OpPresent, OpAbsent:
		return true
	}
	return false
}

func (o Operator) numericOnly() bool {
	switch o {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Condition is a guard expression over the patient record and evaluation context.
//
// Exactly one of All, Any, Not, Field, Count or Expr is set.
type Condition struct {
	All []*Condition `yaml:"all,omitempty" json:"all,omitempty"`
	Any []*Condition `yaml:"any,omitempty" json:"any,omitempty"`
	Not *Condition   `yaml:"not,omitempty" json:"not,omitempty"`

	Field  string   `yaml:"field,omitempty" json:"field,omitempty"`
	Op     Operator `yaml:"op,omitempty" json:"op,omitempty"`
	Value  any      `yaml:"value,omitempty" json:"value,omitempty"`
	Values []any    `yaml:"values,omitempty" json:"values,omitempty"`
	Min    *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty" json:"max,omitempty"`

	Count *Count `yaml:"count,omitempty" json:"count,omitempty"`
	Expr  string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// Count counts how many criteria hold.
//
// Each entry of Fields is one criterion: a field name, or a list of alias fields
// any of which satisfies it. A criterion holds when one of its fields is true or
// carries a non-empty category. When TotalField is set and present, the larger
// of the counted criteria and the recorded total is compared.
type Count struct {
	Fields     []StringList `yaml:"fields" json:"fields"`
	TotalField string   `yaml:"total_field,omitempty" json:"total_field,omitempty"`
	Op         Operator `yaml:"op" json:"op"`
	Value      float64  `yaml:"value" json:"value"`
}

// Check verifies the structural shape of the condition tree.
func (c *Condition) Check() error {
	if c == nil {
		return errors.New("empty condition")
	}

	set := 0
	if len(c.All) > 0 {
		set++
	}
	if len(c.Any) > 0 {
		set++
	}
	if c.Not != nil {
		set++
	}
	if c.Field != "" {
		set++
	}
	if c.Count != nil {
		set++
	}
	if c.Expr != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("condition must set exactly one of all, any, not, field, count, expr (got %d)", set)
	}

	for i, sub := range c.All {
		if err := sub.Check(); err != nil {
			return fmt.Errorf("all[%d]: %w", i, err)
		}
	}
	for i, sub := range c.Any {
		if err := sub.Check(); err != nil {
			return fmt.Errorf("any[%d]: %w", i, err)
		}
	}
	if c.Not != nil {
		if err := c.Not.Check(); err != nil {
			return fmt.Errorf("not: %w", err)
		}
	}

	if c.Field != "" {
		if !c.Op.valid() {
			return fmt.Errorf("field %s: unknown op %q", c.Field, c.Op)
		}
		switch c.Op {
		case OpBetween:
			if c.Min == nil || c.Max == nil {
				return fmt.Errorf("field %s: between requires min and max", c.Field)
			}
		case OpIn:
			if len(c.Values) == 0 {
				return fmt.Errorf("field %s: in requires values", c.Field)
			}
		case OpPresent, OpAbsent:
		default:
			if c.Value == nil {
				return fmt.Errorf("field %s: %s requires value", c.Field, c.Op)
			}
		}
	}

	if c.Count != nil {
		if len(c.Count.Fields) == 0 {
			return errors.New("count requires fields")
		}
		for i, criterion := range c.Count.Fields {
			if len(criterion) == 0 {
				return fmt.Errorf("count: fields[%d] is empty", i)
			}
		}
		if !c.Count.Op.valid() || !(c.Count.Op.numericOnly() || c.Count.Op == OpEq || c.Count.Op == OpNe) {
			return fmt.Errorf("count: unsupported op %q", c.Count.Op)
		}
	}

	return nil
}

// Fields returns the distinct record fields referenced by the condition, sorted.
// Fields used only inside CEL expressions are not included.
func (c *Condition) Fields() []string {
	seen := make(map[string]struct{})
	c.collectFields(seen)
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (c *Condition) collectFields(seen map[string]struct{}) {
	if c == nil {
		return
	}
	for _, sub := range c.All {
		sub.collectFields(seen)
	}
	for _, sub := range c.Any {
		sub.collectFields(seen)
	}
	c.Not.collectFields(seen)
	if c.Field != "" {
		seen[c.Field] = struct{}{}
	}
	if c.Count != nil {
		for _, criterion := range c.Count.Fields {
			for _, f := range criterion {
				seen[f] = struct{}{}
			}
		}
		if c.Count.TotalField != "" {
			seen[c.Count.TotalField] = struct{}{}
		}
	}
}

// Expressions returns every CEL expression in the condition tree.
func (c *Condition) Expressions() []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, sub := range c.All {
		out = append(out, sub.Expressions()...)
	}
	for _, sub := range c.Any {
		out = append(out, sub.Expressions()...)
	}
	out = append(out, c.Not.Expressions()...)
	if c.Expr != "" {
		out = append(out, c.Expr)
	}
	return out
}

// SplitField splits a context reference such as "uticalc.percent" into its
// namespace and key. Plain record fields return an empty namespace.
func SplitField(field string) (namespace, key string) {
	if i := strings.IndexByte(field, '.'); i > 0 {
		return field[:i], field[i+1:]
	}
	return "", field
}
