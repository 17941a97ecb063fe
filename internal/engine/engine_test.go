package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/dago-pathway-router/internal/condition"
	"github.com/aescanero/dago-pathway-router/internal/eval/cel"
	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
)

func when(field string, op pathway.Operator, value any) *pathway.Condition {
	return &pathway.Condition{Field: field, Op: op, Value: value}
}

func terminal(outcome pathway.Outcome) *pathway.Node {
	return &pathway.Node{Kind: pathway.KindTerminal, Outcome: outcome}
}

func question(def string, edges ...pathway.Edge) *pathway.Node {
	return &pathway.Node{Kind: pathway.KindQuestion, Edges: edges, Default: def}
}

func newEngine(t *testing.T, opts []Option, pathways ...*pathway.Pathway) *Engine {
	t.Helper()
	store, err := pathway.NewStore(pathways...)
	require.NoError(t, err)
	celEval, err := cel.NewEvaluator(16)
	require.NoError(t, err)
	return New(store, condition.NewEvaluator(celEval, nil), opts...)
}

func seizurePathway() *pathway.Pathway {
	return &pathway.Pathway{
		ID:    "seizure",
		Start: "q",
		End:   pathway.StringList{"active", "inactive"},
		Nodes: map[string]*pathway.Node{
			"q": question("inactive",
				pathway.Edge{When: when("seizure", pathway.OpEq, true), To: "active"},
			),
			"active":   terminal(pathway.OutcomeActivated),
			"inactive": terminal(pathway.OutcomeNotActivated),
		},
	}
}

func TestTraverse_Activated(t *testing.T) {
	e := newEngine(t, nil, seizurePathway())

	out, err := e.Traverse(context.Background(), "seizure", patient.Record{"seizure": true})
	require.NoError(t, err)

	assert.True(t, out.Activated())
	assert.Equal(t, "active", out.Terminal)
	assert.Equal(t, pathway.EscalationNone, out.Escalation)
	assert.Equal(t, 2, out.Steps)
	require.Len(t, out.Trail, 2)
	assert.Equal(t, `seizure/q "q": seizure == true [seizure=true] -> met => active`, out.Trail[0])
	assert.Equal(t, `seizure/active "active": terminal (activated)`, out.Trail[1])
}

func TestTraverse_DefaultEdge(t *testing.T) {
	e := newEngine(t, nil, seizurePathway())

	out, err := e.Traverse(context.Background(), "seizure", patient.Record{})
	require.NoError(t, err)

	assert.False(t, out.Activated())
	assert.Equal(t, "inactive", out.Terminal)
	assert.Contains(t, out.Trail[0], "condition unmet: field seizure absent")
	assert.Contains(t, out.Trail[0], "default edge => inactive")
}

func TestTraverse_FirstMatchWins(t *testing.T) {
	p := &pathway.Pathway{
		ID:    "order",
		Start: "q",
		End:   pathway.StringList{"first", "second"},
		Nodes: map[string]*pathway.Node{
			"q": question("",
				pathway.Edge{When: when("fever_days", pathway.OpGte, 3), To: "first"},
				pathway.Edge{When: when("fever_days", pathway.OpGte, 5), To: "second"},
			),
			"first":  terminal(pathway.OutcomeConsider),
			"second": terminal(pathway.OutcomeActivated),
		},
	}
	e := newEngine(t, nil, p)

	out, err := e.Traverse(context.Background(), "order", patient.Record{"fever_days": 6.0})
	require.NoError(t, err)
	assert.Equal(t, "first", out.Terminal)
	assert.True(t, out.Activated(), "consider activates")
}

func TestTraverse_NoMatchNoDefault(t *testing.T) {
	p := seizurePathway()
	p.Nodes["q"].Default = ""
	e := newEngine(t, nil, p)

	_, err := e.Traverse(context.Background(), "seizure", patient.Record{"seizure": false})
	require.Error(t, err)

	var terr *TraversalError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "seizure", terr.PathwayID)
	assert.Equal(t, "q", terr.NodeID)
	require.Len(t, PartialTrail(err), 1)
	assert.Contains(t, PartialTrail(err)[0], "seizure == true [seizure=false] -> unmet")
}

func TestTraverse_UndefinedNode(t *testing.T) {
	p := seizurePathway()
	p.Nodes["q"].Default = "ghost"
	e := newEngine(t, nil, p)

	_, err := e.Traverse(context.Background(), "seizure", patient.Record{})

	var terr *TraversalError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "ghost", terr.NodeID)
	assert.Equal(t, "node is not defined", terr.Reason)
}

func TestTraverse_StepCeiling(t *testing.T) {
	p := &pathway.Pathway{
		ID:    "loop",
		Start: "a",
		End:   pathway.StringList{"done"},
		Nodes: map[string]*pathway.Node{
			"a":    question("b"),
			"b":    question("a"),
			"done": terminal(pathway.OutcomeActivated),
		},
	}
	e := newEngine(t, []Option{WithStepFactor(2)}, p)

	_, err := e.Traverse(context.Background(), "loop", patient.Record{})
	require.Error(t, err)

	var cerr *CycleError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 6, cerr.Limit)
	assert.Equal(t, 7, cerr.Steps)
	assert.Empty(t, cerr.Chain)
	assert.Len(t, cerr.Trail, 6)
	assert.Contains(t, err.Error(), "step ceiling 6 exceeded")
}

func TestTraverse_LinkCycle(t *testing.T) {
	link := func(id, target string) *pathway.Pathway {
		return &pathway.Pathway{
			ID:    id,
			Start: "go",
			End:   pathway.StringList{"done"},
			Nodes: map[string]*pathway.Node{
				"go":   {Kind: pathway.KindLink, Target: target, Default: "done"},
				"done": terminal(pathway.OutcomeActivated),
			},
		}
	}
	e := newEngine(t, nil, link("a", "b"), link("b", "a"))

	_, err := e.Traverse(context.Background(), "a", patient.Record{})
	require.Error(t, err)

	var cerr *CycleError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"a", "b", "a"}, cerr.Chain)
	assert.Equal(t, "pathway a: link cycle a -> b -> a", err.Error())
}

func TestTraverse_LinkFoldsEscalation(t *testing.T) {
	child := &pathway.Pathway{
		ID:    "sepsis",
		Start: "screen",
		End:   pathway.StringList{"septic", "clear"},
		Nodes: map[string]*pathway.Node{
			"screen": question("clear",
				pathway.Edge{When: when("hypoxia", pathway.OpEq, true), To: "critical"},
			),
			"critical": {Kind: pathway.KindInfo, Escalation: pathway.EscalationCritical, Default: "septic"},
			"septic":   terminal(pathway.OutcomeActivated),
			"clear":    terminal(pathway.OutcomeNotActivated),
		},
	}
	parent := &pathway.Pathway{
		ID:    "onc",
		Start: "screen",
		End:   pathway.StringList{"onc_septic", "onc_active"},
		Nodes: map[string]*pathway.Node{
			"screen": {Kind: pathway.KindLink, Target: "sepsis", StoreAs: "sepsis_screen", Default: "check"},
			"check": question("onc_active",
				pathway.Edge{When: when("sepsis_screen.activated", pathway.OpEq, true), To: "onc_septic"},
			),
			"onc_septic": terminal(pathway.OutcomeActivated),
			"onc_active": terminal(pathway.OutcomeActivated),
		},
	}
	e := newEngine(t, nil, child, parent)

	out, err := e.Traverse(context.Background(), "onc", patient.Record{"hypoxia": true})
	require.NoError(t, err)
	assert.Equal(t, "onc_septic", out.Terminal)
	assert.Equal(t, pathway.EscalationCritical, out.Escalation)
	assert.Equal(t, true, out.Values["sepsis_screen"]["activated"])
	assert.Equal(t, "critical", out.Values["sepsis_screen"]["escalation"])
	assert.Equal(t, 3, out.Steps, "linked pathway steps are not counted against the parent outcome")

	joined := strings.Join(out.Trail, "\n")
	assert.Contains(t, joined, "sepsis/critical")
	assert.Contains(t, joined, "[escalation: critical]")
	assert.Contains(t, joined, "linked pathway sepsis reached septic (activated, escalation critical)")

	out, err = e.Traverse(context.Background(), "onc", patient.Record{"hypoxia": false})
	require.NoError(t, err)
	assert.Equal(t, "onc_active", out.Terminal)
	assert.Equal(t, pathway.EscalationNone, out.Escalation)
}

func TestTraverse_FailureKeepsEscalation(t *testing.T) {
	stuck := func(id string, escalation pathway.Escalation) *pathway.Pathway {
		return &pathway.Pathway{
			ID:    id,
			Start: "flag",
			End:   pathway.StringList{"done"},
			Nodes: map[string]*pathway.Node{
				"flag": {Kind: pathway.KindInfo, Escalation: escalation, Default: "q"},
				"q":    question("", pathway.Edge{When: when("cough", pathway.OpEq, true), To: "done"}),
				"done": terminal(pathway.OutcomeActivated),
			},
		}
	}
	linking := func(id, target string, escalation pathway.Escalation) *pathway.Pathway {
		return &pathway.Pathway{
			ID:    id,
			Start: "flag",
			End:   pathway.StringList{"done"},
			Nodes: map[string]*pathway.Node{
				"flag": {Kind: pathway.KindInfo, Escalation: escalation, Default: "go"},
				"go":   {Kind: pathway.KindLink, Target: target, Default: "done"},
				"done": terminal(pathway.OutcomeActivated),
			},
		}
	}
	e := newEngine(t, nil,
		stuck("critical_stuck", pathway.EscalationCritical),
		stuck("plain_stuck", pathway.EscalationNone),
		linking("critical_parent", "plain_stuck", pathway.EscalationCritical),
		linking("plain_parent", "critical_stuck", pathway.EscalationNone),
		linking("plain_to_plain", "plain_stuck", pathway.EscalationNone),
	)

	tests := []struct {
		id   string
		want pathway.Escalation
	}{
		{id: "critical_stuck", want: pathway.EscalationCritical},
		{id: "plain_stuck", want: pathway.EscalationNone},
		{id: "critical_parent", want: pathway.EscalationCritical},
		{id: "plain_parent", want: pathway.EscalationCritical},
		{id: "plain_to_plain", want: pathway.EscalationNone},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := e.Traverse(context.Background(), tt.id, patient.Record{"cough": false})

			var terr *TraversalError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, "q", terr.NodeID)
			assert.Equal(t, tt.want, PartialEscalation(err))
			assert.NotEmpty(t, PartialTrail(err))
		})
	}

	assert.Equal(t, pathway.EscalationNone, PartialEscalation(errors.New("boom")))
}

func TestTraverse_EscalationDoesNotStopTraversal(t *testing.T) {
	p := &pathway.Pathway{
		ID:    "esc",
		Start: "flag",
		End:   pathway.StringList{"done"},
		Nodes: map[string]*pathway.Node{
			"flag": {Kind: pathway.KindInfo, Escalation: pathway.EscalationCritical, Default: "done"},
			"done": terminal(pathway.OutcomeNotActivated),
		},
	}
	e := newEngine(t, nil, p)

	out, err := e.Traverse(context.Background(), "esc", patient.Record{})
	require.NoError(t, err)
	assert.Equal(t, "done", out.Terminal)
	assert.Equal(t, pathway.EscalationCritical, out.Escalation)
	assert.False(t, out.Activated())
}

func TestTraverse_LookupNamespace(t *testing.T) {
	p := &pathway.Pathway{
		ID:    "uti",
		Start: "pretest",
		End:   pathway.StringList{"high", "low"},
		Nodes: map[string]*pathway.Node{
			"pretest": {
				Kind:       pathway.KindLookup,
				Calculator: "uticalc",
				Edges: []pathway.Edge{
					{When: when("uticalc.percent", pathway.OpGte, 2), To: "high"},
				},
				Default: "low",
			},
			"high": {Kind: pathway.KindTerminal, Text: "UTICalc {{percent uticalc.percent}}"},
			"low":  terminal(pathway.OutcomeNotActivated),
		},
	}
	e := newEngine(t, nil, p)

	rec := patient.Normalize(patient.Record{"age_months": 10, "sex": "female", "tmax_c": 39.2, "other_source": false})
	out, err := e.Traverse(context.Background(), "uti", rec)
	require.NoError(t, err)

	assert.Equal(t, "high", out.Terminal)
	assert.Equal(t, 21.51, out.Values["uticalc"]["percent"])
	assert.Contains(t, out.Trail[0], "UTICalc pretest 21.51%")
	assert.True(t, strings.HasSuffix(out.Trail[1], "| UTICalc 21.51%"), out.Trail[1])
}

type fixedCalculator struct{}

func (fixedCalculator) Name() string      { return "fixed" }
func (fixedCalculator) Outputs() []string { return []string{"value"} }
func (fixedCalculator) Compute(patient.Record) (map[string]any, string) {
	return map[string]any{"value": 7.0}, "fixed value 7"
}

func TestTraverse_CustomCalculatorStoreAs(t *testing.T) {
	p := &pathway.Pathway{
		ID:    "custom",
		Start: "calc",
		End:   pathway.StringList{"done", "none"},
		Nodes: map[string]*pathway.Node{
			"calc": {
				Kind:       pathway.KindLookup,
				Calculator: "fixed",
				StoreAs:    "f",
				Edges:      []pathway.Edge{{When: when("f.value", pathway.OpEq, 7), To: "done"}},
				Default:    "none",
			},
			"done": terminal(pathway.OutcomeActivated),
			"none": terminal(pathway.OutcomeNotActivated),
		},
	}
	e := newEngine(t, []Option{WithCalculator(fixedCalculator{})}, p)

	names := []string{}
	for _, c := range e.Calculators() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"centor", "fixed", "infant_age", "uticalc"}, names)

	out, err := e.Traverse(context.Background(), "custom", patient.Record{})
	require.NoError(t, err)
	assert.Equal(t, "done", out.Terminal)
}

func TestTraverse_UnknownCalculator(t *testing.T) {
	p := &pathway.Pathway{
		ID:    "bad",
		Start: "calc",
		End:   pathway.StringList{"done"},
		Nodes: map[string]*pathway.Node{
			"calc": {Kind: pathway.KindLookup, Calculator: "oracle", Default: "done"},
			"done": terminal(pathway.OutcomeActivated),
		},
	}
	e := newEngine(t, nil, p)

	_, err := e.Traverse(context.Background(), "bad", patient.Record{})
	var terr *TraversalError
	assert.True(t, errors.As(err, &terr))
}

func TestTraverse_BadTemplateDegrades(t *testing.T) {
	p := seizurePathway()
	p.Nodes["active"].Text = "{{#if seizure}}unclosed"
	e := newEngine(t, nil, p)

	out, err := e.Traverse(context.Background(), "seizure", patient.Record{"seizure": true})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.Trail[1], "| text unavailable"))
}

func TestTraverse_NotFoundAndCancelled(t *testing.T) {
	e := newEngine(t, nil, seizurePathway())

	_, err := e.Traverse(context.Background(), "missing", patient.Record{})
	assert.ErrorIs(t, err, pathway.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Traverse(ctx, "seizure", patient.Record{})
	assert.ErrorIs(t, err, context.Canceled)
}
