package condition

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aescanero/dago-pathway-router/internal/eval/cel"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
)

type truth uint8

const (
	isFalse truth = iota
	isTrue
	isUnknown
)

// Result is the outcome of evaluating one guard.
type Result struct {
	// Met is true only when the guard definitely holds.
	Met bool
	// Unknown is set when the outcome depended on an absent field.
	Unknown bool
	// Absent lists fields the guard needed but the record did not carry.
	Absent []string
	// Mismatch lists fields whose recorded type did not fit the comparison.
	Mismatch []string
	// Detail renders the guard with the observed values.
	Detail string
}

// Outcome renders the guard outcome for a reason trail.
func (r Result) Outcome() string {
	switch {
	case r.Met:
		return "met"
	case len(r.Absent) > 0 && r.Unknown:
		return "condition unmet: field " + strings.Join(r.Absent, ", ") + " absent"
	case len(r.Mismatch) > 0:
		return "condition unmet: type mismatch on " + strings.Join(r.Mismatch, ", ")
	default:
		return "unmet"
	}
}

// Evaluator evaluates guard conditions. It never returns an error: anything that
// cannot be decided fails closed.
type Evaluator struct {
	cel    *cel.Evaluator
	logger *zap.Logger
}

// NewEvaluator creates a condition evaluator. celEval may be nil, in which case
// expression guards evaluate false.
func NewEvaluator(celEval *cel.Evaluator, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		cel:    celEval,
		logger: logger,
	}
}

type run struct {
	absent   map[string]struct{}
	mismatch map[string]struct{}
}

// Evaluate evaluates cond against the scope. A nil condition always holds.
func (e *Evaluator) Evaluate(cond *pathway.Condition, scope *Scope) Result {
	if cond == nil {
		return Result{Met: true, Detail: "always"}
	}

	r := &run{
		absent:   make(map[string]struct{}),
		mismatch: make(map[string]struct{}),
	}
	t, detail := e.eval(cond, scope, r)

	return Result{
		Met:      t == isTrue,
		Unknown:  t == isUnknown,
		Absent:   sortedKeys(r.absent),
		Mismatch: sortedKeys(r.mismatch),
		Detail:   detail,
	}
}

func (e *Evaluator) eval(c *pathway.Condition, scope *Scope, r *run) (truth, string) {
	switch {
	case len(c.All) > 0:
		out := isTrue
		parts := make([]string, 0, len(c.All))
		for _, sub := range c.All {
			t, d := e.eval(sub, scope, r)
			parts = append(parts, d)
			switch {
			case t == isFalse:
				out = isFalse
			case t == isUnknown && out == isTrue:
				out = isUnknown
			}
		}
		return out, "(" + strings.Join(parts, " AND ") + ")"

	case len(c.Any) > 0:
		out := isFalse
		parts := make([]string, 0, len(c.Any))
		for _, sub := range c.Any {
			t, d := e.eval(sub, scope, r)
			parts = append(parts, d)
			switch {
			case t == isTrue:
				out = isTrue
			case t == isUnknown && out == isFalse:
				out = isUnknown
			}
		}
		return out, "(" + strings.Join(parts, " OR ") + ")"

	case c.Not != nil:
		t, d := e.eval(c.Not, scope, r)
		switch t {
		case isTrue:
			return isFalse, "NOT " + d
		case isFalse:
			return isTrue, "NOT " + d
		default:
			return isUnknown, "NOT " + d
		}

	case c.Count != nil:
		return e.evalCount(c.Count, scope, r)

	case c.Expr != "":
		return e.evalExpr(c.Expr, scope, r)

	case c.Field != "":
		return e.evalField(c, scope, r)
	}

	return isFalse, "empty condition"
}

func (e *Evaluator) evalField(c *pathway.Condition, scope *Scope, r *run) (truth, string) {
	actual, present := scope.Lookup(c.Field)

	switch c.Op {
	case pathway.OpPresent:
		if present {
			return isTrue, fmt.Sprintf("%s present [%s]", c.Field, observed(c.Field, actual))
		}
		return isFalse, fmt.Sprintf("%s present [%s absent]", c.Field, c.Field)
	case pathway.OpAbsent:
		if present {
			return isFalse, fmt.Sprintf("%s absent [%s]", c.Field, observed(c.Field, actual))
		}
		return isTrue, fmt.Sprintf("%s absent [%s absent]", c.Field, c.Field)
	}

	label := describeField(c)
	if !present {
		r.absent[c.Field] = struct{}{}
		return isUnknown, fmt.Sprintf("%s [%s absent]", label, c.Field)
	}

	actual = roundForField(c.Field, actual)
	ok, matched := compare(c, actual)
	if !ok {
		r.mismatch[c.Field] = struct{}{}
		e.logger.Debug("condition type mismatch",
			zap.String("field", c.Field),
			zap.String("op", string(c.Op)),
			zap.String("actual_type", fmt.Sprintf("%T", actual)),
		)
		return isFalse, fmt.Sprintf("%s [%s type mismatch]", label, observed(c.Field, actual))
	}
	if matched {
		return isTrue, fmt.Sprintf("%s [%s]", label, observed(c.Field, actual))
	}
	return isFalse, fmt.Sprintf("%s [%s]", label, observed(c.Field, actual))
}

func (e *Evaluator) evalCount(c *pathway.Count, scope *Scope, r *run) (truth, string) {
	n := 0
	for _, criterion := range c.Fields {
		if criterionHolds(criterion, scope, r) {
			n++
		}
	}

	total := float64(n)
	obs := "count=" + strconv.Itoa(n)
	if c.TotalField != "" {
		if v, ok := scope.Lookup(c.TotalField); ok {
			if f, isNum := patient.ToFloat(v); isNum {
				f = patient.Whole(f)
				obs += ", " + c.TotalField + "=" + formatNumber(f)
				if f > total {
					total = f
				}
			} else {
				r.mismatch[c.TotalField] = struct{}{}
			}
		}
	}

	names := make([]string, len(c.Fields))
	for i, criterion := range c.Fields {
		names[i] = criterion.String()
	}
	label := fmt.Sprintf("count(%s) %s %s", strings.Join(names, ", "), c.Op.Symbol(), formatNumber(c.Value))
	if c.TotalField != "" {
		label = fmt.Sprintf("max(count(%s), %s) %s %s", strings.Join(names, ", "), c.TotalField, c.Op.Symbol(), formatNumber(c.Value))
	}

	if compareNumbers(c.Op, total, c.Value) {
		return isTrue, fmt.Sprintf("%s [%s]", label, obs)
	}
	return isFalse, fmt.Sprintf("%s [%s]", label, obs)
}

// criterionHolds reports whether any alias of a count criterion is true or
// carries a non-empty category. Other kinds are recorded as mismatches.
func criterionHolds(aliases pathway.StringList, scope *Scope, r *run) bool {
	held := false
	for _, f := range aliases {
		v, ok := scope.Lookup(f)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			held = held || t
		case string:
			held = held || strings.TrimSpace(t) != ""
		default:
			r.mismatch[f] = struct{}{}
		}
	}
	return held
}

func (e *Evaluator) evalExpr(expr string, scope *Scope, r *run) (truth, string) {
	label := "expr(" + expr + ")"
	if e.cel == nil {
		return isFalse, label + " [no expression evaluator]"
	}

	matched, err := e.cel.EvaluateBool(expr, scope.Vars())
	if err != nil {
		var missing *cel.MissingKeyError
		if errors.As(err, &missing) {
			r.absent[missing.Key] = struct{}{}
			return isUnknown, fmt.Sprintf("%s [%s absent]", label, missing.Key)
		}
		e.logger.Debug("expression guard failed closed",
			zap.String("expr", expr),
			zap.Error(err),
		)
		return isFalse, label + " [evaluation error]"
	}
	if matched {
		return isTrue, label + " [true]"
	}
	return isFalse, label + " [false]"
}

// compare reports whether the types fit (ok) and whether the comparison holds.
func compare(c *pathway.Condition, actual any) (ok bool, matched bool) {
	switch c.Op {
	case pathway.OpEq:
		return equal(actual, c.Value)
	case pathway.OpNe:
		ok, eq := equal(actual, c.Value)
		return ok, ok && !eq
	case pathway.OpGt, pathway.OpGte, pathway.OpLt, pathway.OpLte:
		a, aok := patient.ToFloat(actual)
		b, bok := patient.ToFloat(c.Value)
		if !aok || !bok {
			return false, false
		}
		return true, compareNumbers(c.Op, a, b)
	case pathway.OpBetween:
		a, aok := patient.ToFloat(actual)
		if !aok || c.Min == nil || c.Max == nil {
			return false, false
		}
		return true, a >= *c.Min && a <= *c.Max
	case pathway.OpIn:
		anyFit := false
		for _, v := range c.Values {
			fit, eq := equal(actual, v)
			if fit {
				anyFit = true
			}
			if eq {
				return true, true
			}
		}
		return anyFit, false
	}
	return false, false
}

// equal compares values of the same kind. Numeric and categorical values are
// never coerced into each other.
func equal(actual, expected any) (ok bool, eq bool) {
	switch exp := expected.(type) {
	case bool:
		a, isBool := actual.(bool)
		if !isBool {
			return false, false
		}
		return true, a == exp
	case string:
		a, isStr := actual.(string)
		if !isStr {
			return false, false
		}
		return true, strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(exp))
	}

	b, bok := patient.ToFloat(expected)
	if !bok {
		return false, false
	}
	a, aok := patient.ToFloat(actual)
	if !aok {
		return false, false
	}
	return true, a == b
}

func compareNumbers(op pathway.Operator, a, b float64) bool {
	switch op {
	case pathway.OpEq:
		return a == b
	case pathway.OpNe:
		return a != b
	case pathway.OpGt:
		return a > b
	case pathway.OpGte:
		return a >= b
	case pathway.OpLt:
		return a < b
	case pathway.OpLte:
		return a <= b
	}
	return false
}

// roundForField floors values of unit-bearing fields to whole units.
func roundForField(field string, v any) any {
	f, ok := patient.Lookup(field)
	if !ok || !f.Whole() {
		return v
	}
	n, isNum := patient.ToFloat(v)
	if !isNum {
		return v
	}
	return patient.Whole(n)
}

func describeField(c *pathway.Condition) string {
	switch c.Op {
	case pathway.OpBetween:
		return fmt.Sprintf("%s between %s..%s", c.Field, formatNumber(*c.Min), formatNumber(*c.Max))
	case pathway.OpIn:
		vals := make([]string, len(c.Values))
		for i, v := range c.Values {
			vals[i] = formatValue(v)
		}
		return fmt.Sprintf("%s in (%s)", c.Field, strings.Join(vals, ", "))
	default:
		return fmt.Sprintf("%s %s %s", c.Field, c.Op.Symbol(), formatValue(c.Value))
	}
}

func observed(field string, v any) string {
	return field + "=" + formatValue(v)
}

func formatValue(v any) string {
	if f, ok := patient.ToFloat(v); ok {
		return formatNumber(f)
	}
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	case nil:
		return "null"
	default:
		return fmt.Sprint(t)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
