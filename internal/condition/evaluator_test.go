package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-pathway-router/internal/eval/cel"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
)

func field(name string, op pathway.Operator, value any) *pathway.Condition {
	return &pathway.Condition{Field: name, Op: op, Value: value}
}

func float(f float64) *float64 { return &f }

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	celEval, err := cel.NewEvaluator(16)
	require.NoError(t, err)
	return NewEvaluator(celEval, nil)
}

func TestEvaluator_Field(t *testing.T) {
	e := newEvaluator(t)

	tests := []struct {
		name     string
		cond     *pathway.Condition
		record   patient.Record
		met      bool
		unknown  bool
		mismatch []string
	}{
		{
			name:   "bool eq met",
			cond:   field("seizure", pathway.OpEq, true),
			record: patient.Record{"seizure": true},
			met:    true,
		},
		{
			name:   "bool eq false is a definite no",
			cond:   field("seizure", pathway.OpEq, true),
			record: patient.Record{"seizure": false},
		},
		{
			name:    "absent field is unknown",
			cond:    field("fever_days", pathway.OpGte, 5),
			record:  patient.Record{},
			unknown: true,
		},
		{
			name:     "category compared with number",
			cond:     field("sex", pathway.OpEq, 5),
			record:   patient.Record{"sex": "female"},
			mismatch: []string{"sex"},
		},
		{
			name:     "string never coerced to bool",
			cond:     field("seizure", pathway.OpEq, true),
			record:   patient.Record{"seizure": "yes"},
			mismatch: []string{"seizure"},
		},
		{
			name:     "ordering on a bool",
			cond:     field("seizure", pathway.OpGt, 0),
			record:   patient.Record{"seizure": true},
			mismatch: []string{"seizure"},
		},
		{
			name:   "months floored before comparison",
			cond:   field("age_months", pathway.OpLte, 23),
			record: patient.Record{"age_months": 23.9},
			met:    true,
		},
		{
			name:   "months floored at the upper boundary",
			cond:   field("age_months", pathway.OpGt, 24),
			record: patient.Record{"age_months": 24.7},
		},
		{
			name:   "temperature compared exactly",
			cond:   field("tmax_c", pathway.OpGte, 39),
			record: patient.Record{"tmax_c": 38.9},
		},
		{
			name:   "category eq ignores case",
			cond:   field("sex", pathway.OpEq, "female"),
			record: patient.Record{"sex": "Female"},
			met:    true,
		},
		{
			name:   "ne on present value",
			cond:   field("sex", pathway.OpNe, "male"),
			record: patient.Record{"sex": "female"},
			met:    true,
		},
		{
			name:   "between inclusive",
			cond:   &pathway.Condition{Field: "age_months", Op: pathway.OpBetween, Min: float(2), Max: float(24)},
			record: patient.Record{"age_months": 24.5},
			met:    true,
		},
		{
			name:   "in list",
			cond:   &pathway.Condition{Field: "sex", Op: pathway.OpIn, Values: []any{"male", "female"}},
			record: patient.Record{"sex": "male"},
			met:    true,
		},
		{
			name:   "present",
			cond:   &pathway.Condition{Field: "ga_weeks", Op: pathway.OpPresent},
			record: patient.Record{"ga_weeks": 35.0},
			met:    true,
		},
		{
			name:   "absent operator on missing field",
			cond:   &pathway.Condition{Field: "age_days", Op: pathway.OpAbsent},
			record: patient.Record{"age_months": 1.0},
			met:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Evaluate(tt.cond, NewScope(patient.Normalize(tt.record)))
			assert.Equal(t, tt.met, res.Met, res.Detail)
			assert.Equal(t, tt.unknown, res.Unknown, res.Detail)
			assert.Equal(t, tt.mismatch, res.Mismatch)
		})
	}
}

func TestEvaluator_AbsentOutcome(t *testing.T) {
	e := newEvaluator(t)

	res := e.Evaluate(field("fever_days", pathway.OpGte, 5), NewScope(patient.Record{}))
	assert.False(t, res.Met)
	assert.Equal(t, []string{"fever_days"}, res.Absent)
	assert.Equal(t, "condition unmet: field fever_days absent", res.Outcome())
	assert.Equal(t, "fever_days >= 5 [fever_days absent]", res.Detail)
}

func TestEvaluator_ThreeValuedLogic(t *testing.T) {
	e := newEvaluator(t)
	rec := patient.Record{"seizure": true, "cough": false}
	absent := field("hypoxia", pathway.OpEq, true)
	yes := field("seizure", pathway.OpEq, true)
	no := field("cough", pathway.OpEq, true)

	tests := []struct {
		name    string
		cond    *pathway.Condition
		met     bool
		unknown bool
	}{
		{"all true and unknown", &pathway.Condition{All: []*pathway.Condition{yes, absent}}, false, true},
		{"all false and unknown", &pathway.Condition{All: []*pathway.Condition{no, absent}}, false, false},
		{"all true", &pathway.Condition{All: []*pathway.Condition{yes, yes}}, true, false},
		{"any true and unknown", &pathway.Condition{Any: []*pathway.Condition{absent, yes}}, true, false},
		{"any false and unknown", &pathway.Condition{Any: []*pathway.Condition{no, absent}}, false, true},
		{"not unknown", &pathway.Condition{Not: absent}, false, true},
		{"not false", &pathway.Condition{Not: no}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Evaluate(tt.cond, NewScope(rec))
			assert.Equal(t, tt.met, res.Met, res.Detail)
			assert.Equal(t, tt.unknown, res.Unknown, res.Detail)
		})
	}
}

func TestEvaluator_NilAlwaysHolds(t *testing.T) {
	res := newEvaluator(t).Evaluate(nil, NewScope(patient.Record{}))
	assert.True(t, res.Met)
}

func TestEvaluator_Count(t *testing.T) {
	e := newEvaluator(t)
	flags := []pathway.StringList{{"kd_conjunctivitis"}, {"kd_oral_changes"}, {"kd_rash"}, {"kd_extremity_changes"}, {"kd_cervical_lymphadenopathy"}}
	aliased := []pathway.StringList{
		{"kd_conjunctivitis", "conjunctivitis"},
		{"kd_oral_changes", "strawberry_tongue", "fissured_lips"},
		{"kd_rash", "rash_pattern"},
		{"kd_extremity_changes"},
		{"kd_cervical_lymphadenopathy"},
	}

	tests := []struct {
		name     string
		count    *pathway.Count
		record   patient.Record
		met      bool
		detail   string
		mismatch []string
	}{
		{
			name:   "counted flags",
			count:  &pathway.Count{Fields: flags, Op: pathway.OpGte, Value: 4},
			record: patient.Record{"kd_conjunctivitis": true, "kd_oral_changes": true, "kd_rash": true, "kd_extremity_changes": true, "kd_cervical_lymphadenopathy": false},
			met:    true,
		},
		{
			name:   "absent flags count as zero",
			count:  &pathway.Count{Fields: flags, Op: pathway.OpGte, Value: 1},
			record: patient.Record{},
		},
		{
			name:   "total field wins when larger",
			count:  &pathway.Count{Fields: flags, TotalField: "kd_features", Op: pathway.OpGte, Value: 4},
			record: patient.Record{"kd_rash": true, "kd_features": 4},
			met:    true,
			detail: "max(count(kd_conjunctivitis, kd_oral_changes, kd_rash, kd_extremity_changes, kd_cervical_lymphadenopathy), kd_features) >= 4 [count=1, kd_features=4]",
		},
		{
			name:   "flags win when larger than total",
			count:  &pathway.Count{Fields: flags, TotalField: "kd_features", Op: pathway.OpGte, Value: 2},
			record: patient.Record{"kd_rash": true, "kd_oral_changes": true, "kd_features": 0},
			met:    true,
		},
		{
			name:   "aliases satisfy a criterion once",
			count:  &pathway.Count{Fields: aliased, Op: pathway.OpGte, Value: 4},
			record: patient.Record{"conjunctivitis": true, "strawberry_tongue": true, "fissured_lips": true, "kd_rash": true, "kd_extremity_changes": true},
			met:    true,
			detail: "count(kd_conjunctivitis|conjunctivitis, kd_oral_changes|strawberry_tongue|fissured_lips, kd_rash|rash_pattern, kd_extremity_changes, kd_cervical_lymphadenopathy) >= 4 [count=4]",
		},
		{
			name:   "category alias counts when non-empty",
			count:  &pathway.Count{Fields: aliased, Op: pathway.OpGte, Value: 1},
			record: patient.Record{"rash_pattern": "maculopapular"},
			met:    true,
		},
		{
			name:   "false alias does not cancel a true one",
			count:  &pathway.Count{Fields: aliased, Op: pathway.OpGte, Value: 1},
			record: patient.Record{"kd_conjunctivitis": false, "conjunctivitis": true},
			met:    true,
		},
		{
			name:     "non bool flag skipped",
			count:    &pathway.Count{Fields: flags, Op: pathway.OpGte, Value: 1},
			record:   patient.Record{"kd_rash": 3},
			mismatch: []string{"kd_rash"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Evaluate(&pathway.Condition{Count: tt.count}, NewScope(patient.Normalize(tt.record)))
			assert.Equal(t, tt.met, res.Met, res.Detail)
			assert.Equal(t, tt.mismatch, res.Mismatch)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, res.Detail)
			}
		})
	}
}

func TestEvaluator_Expr(t *testing.T) {
	e := newEvaluator(t)
	preterm := &pathway.Condition{Expr: "input.ga_weeks < 37.0"}

	res := e.Evaluate(preterm, NewScope(patient.Record{"ga_weeks": 34.0}))
	assert.True(t, res.Met)

	res = e.Evaluate(preterm, NewScope(patient.Record{}))
	assert.False(t, res.Met)
	assert.True(t, res.Unknown)
	assert.Equal(t, []string{"ga_weeks"}, res.Absent)

	res = e.Evaluate(&pathway.Condition{Expr: "input.ga_weeks"}, NewScope(patient.Record{"ga_weeks": 34.0}))
	assert.False(t, res.Met, "non-boolean expressions fail closed")
	assert.False(t, res.Unknown)

	res = NewEvaluator(nil, nil).Evaluate(preterm, NewScope(patient.Record{"ga_weeks": 34.0}))
	assert.False(t, res.Met, "no expression evaluator fails closed")
}

func TestEvaluator_ContextNamespace(t *testing.T) {
	e := newEvaluator(t)
	scope := NewScope(patient.Record{})
	cond := field("uticalc.percent", pathway.OpGte, 2)

	res := e.Evaluate(cond, scope)
	assert.True(t, res.Unknown, "namespace not written yet")

	scope.Set("uticalc", map[string]any{"percent": 21.51, "applicable": true})
	res = e.Evaluate(cond, scope)
	assert.True(t, res.Met)
	assert.Equal(t, "uticalc.percent >= 2 [uticalc.percent=21.51]", res.Detail)

	res = e.Evaluate(&pathway.Condition{Expr: "ctx.uticalc.applicable"}, scope)
	assert.True(t, res.Met)
}
