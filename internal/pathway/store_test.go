package pathway

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoNodePathway = `
id: %s
title: Test %s
source_urls: [https://example.org/guideline]
start: q
end: [yes, no]
nodes:
  q:
    kind: question
    source_urls: [https://example.org/guideline]
    edges:
      - when: {field: seizure, op: eq, value: true}
        to: "yes"
    default: "no"
  "yes":
    kind: terminal
    source_urls: [https://example.org/guideline]
  "no":
    kind: terminal
    outcome: not_activated
    source_urls: [https://example.org/guideline]
`

func pathwayYAML(id string) []byte {
	return []byte(fmt.Sprintf(twoNodePathway, id, id))
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"manifest.yaml": {Data: []byte(`
version: "1"
pathways:
  - id: beta
  - id: alpha
    file: custom/alpha.yaml
`)},
		"pathways/beta.yaml": {Data: pathwayYAML("beta")},
		"custom/alpha.yaml":  {Data: pathwayYAML("alpha")},
	}

	store, err := Load(fsys)
	require.NoError(t, err)

	assert.Equal(t, []string{"beta", "alpha"}, store.ListIDs(), "manifest order is kept")
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, "1", store.Manifest().Version)

	p, err := store.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "Test alpha", p.Title)
	assert.Equal(t, "q", p.Start)
	assert.Equal(t, StringList{"yes", "no"}, p.End)

	q, ok := p.Node("q")
	require.True(t, ok)
	assert.Equal(t, "q", q.ID)
	assert.Equal(t, KindQuestion, q.Kind)
	require.Len(t, q.Edges, 1)
	assert.Equal(t, "seizure", q.Edges[0].When.Field)
	assert.Equal(t, OpEq, q.Edges[0].When.Op)
	assert.Equal(t, true, q.Edges[0].When.Value)

	no, _ := p.Node("no")
	assert.Equal(t, OutcomeNotActivated, no.TerminalOutcome())
	yes, _ := p.Node("yes")
	assert.Equal(t, OutcomeActivated, yes.TerminalOutcome())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "missing manifest",
			fsys: fstest.MapFS{},
		},
		{
			name: "manifest without pathways",
			fsys: fstest.MapFS{"manifest.yaml": {Data: []byte("version: \"1\"\npathways: []\n")}},
		},
		{
			name: "missing pathway file",
			fsys: fstest.MapFS{"manifest.yaml": {Data: []byte("pathways:\n  - id: ghost\n")}},
		},
		{
			name: "malformed yaml",
			fsys: fstest.MapFS{
				"manifest.yaml":     {Data: []byte("pathways:\n  - id: bad\n")},
				"pathways/bad.yaml": {Data: []byte("id: bad\nnodes: [\n")},
			},
		},
		{
			name: "unknown key",
			fsys: fstest.MapFS{
				"manifest.yaml":     {Data: []byte("pathways:\n  - id: bad\n")},
				"pathways/bad.yaml": {Data: append(pathwayYAML("bad"), []byte("colour: red\n")...)},
			},
		},
		{
			name: "id mismatch",
			fsys: fstest.MapFS{
				"manifest.yaml":     {Data: []byte("pathways:\n  - id: bad\n")},
				"pathways/bad.yaml": {Data: pathwayYAML("other")},
			},
		},
		{
			name: "duplicate id",
			fsys: fstest.MapFS{
				"manifest.yaml":     {Data: []byte("pathways:\n  - id: dup\n  - id: dup\n")},
				"pathways/dup.yaml": {Data: pathwayYAML("dup")},
			},
		},
		{
			name: "invalid node kind",
			fsys: fstest.MapFS{
				"manifest.yaml": {Data: []byte("pathways:\n  - id: bad\n")},
				"pathways/bad.yaml": {Data: []byte(`
id: bad
start: a
end: a
nodes:
  a:
    kind: oracle
`)},
			},
		},
		{
			name: "condition with two branches",
			fsys: fstest.MapFS{
				"manifest.yaml": {Data: []byte("pathways:\n  - id: bad\n")},
				"pathways/bad.yaml": {Data: []byte(`
id: bad
start: a
end: b
nodes:
  a:
    kind: question
    edges:
      - when: {field: seizure, op: eq, value: true, expr: "true"}
        to: b
  b:
    kind: terminal
`)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Load(tt.fsys)
			require.Error(t, err)
			assert.Nil(t, store)

			var loadErr *LoadError
			assert.True(t, errors.As(err, &loadErr), "got %T: %v", err, err)
		})
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store, err := NewStore(&Pathway{ID: "a", Nodes: map[string]*Node{"t": {Kind: KindTerminal}}})
	require.NoError(t, err)

	_, err = store.Get("b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewStore(t *testing.T) {
	a := &Pathway{ID: "a", Nodes: map[string]*Node{"t": {Kind: KindTerminal}}}
	b := &Pathway{ID: "b", Nodes: map[string]*Node{"t": {Kind: KindTerminal}}}

	store, err := NewStore(b, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, store.ListIDs())
	assert.Equal(t, "t", a.Nodes["t"].ID, "node ids are filled from map keys")

	_, err = NewStore(a, a)
	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)

	_, err = NewStore(nil)
	assert.Error(t, err)
}

func TestStore_ListIDsIsCopy(t *testing.T) {
	store, err := NewStore(&Pathway{ID: "a"}, &Pathway{ID: "b"})
	require.NoError(t, err)

	ids := store.ListIDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, store.ListIDs())
}

func TestStringList_Scalar(t *testing.T) {
	p, err := Decode("scalar.yaml", []byte(`
id: s
start: a
end: a
nodes:
  a:
    kind: terminal
`))
	require.NoError(t, err)
	assert.Equal(t, StringList{"a"}, p.End)
	assert.True(t, p.End.Contains("a"))
	assert.False(t, p.End.Contains("b"))
}
