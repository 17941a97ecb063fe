package condition

import (
	"sort"

	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
)

// Scope is what a guard can see: the patient record plus the evaluation
// context written by lookup and link nodes earlier in the same traversal.
type Scope struct {
	Record  patient.Record
	Context map[string]map[string]any
}

// NewScope returns a scope with an empty evaluation context.
func NewScope(rec patient.Record) *Scope {
	return &Scope{
		Record:  rec,
		Context: make(map[string]map[string]any),
	}
}

// Set stores derived values under a namespace, replacing earlier values.
func (s *Scope) Set(namespace string, values map[string]any) {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	s.Context[namespace] = cp
}

// Lookup resolves a field reference. "ns.key" reads the evaluation context;
// anything else reads the patient record.
func (s *Scope) Lookup(field string) (any, bool) {
	ns, key := pathway.SplitField(field)
	if ns != "" {
		if vals, ok := s.Context[ns]; ok {
			v, ok := vals[key]
			if ok && v != nil {
				return v, true
			}
			return nil, false
		}
	}
	return s.Record.Get(field)
}

// Vars returns the CEL variable bindings for this scope.
func (s *Scope) Vars() map[string]interface{} {
	input := make(map[string]interface{}, len(s.Record))
	for k, v := range s.Record {
		if v != nil {
			input[k] = v
		}
	}
	ctx := make(map[string]interface{}, len(s.Context))
	for ns, vals := range s.Context {
		inner := make(map[string]interface{}, len(vals))
		for k, v := range vals {
			inner[k] = v
		}
		ctx[ns] = inner
	}
	return map[string]interface{}{
		"input": input,
		"ctx":   ctx,
	}
}

// TemplateData flattens the record and nests context namespaces for text rendering.
func (s *Scope) TemplateData() map[string]interface{} {
	data := make(map[string]interface{}, len(s.Record)+len(s.Context))
	for k, v := range s.Record {
		if v != nil {
			data[k] = v
		}
	}
	for ns, vals := range s.Context {
		inner := make(map[string]interface{}, len(vals))
		for k, v := range vals {
			inner[k] = v
		}
		data[ns] = inner
	}
	return data
}

// Namespaces returns the context namespaces in sorted order.
func (s *Scope) Namespaces() []string {
	out := make([]string, 0, len(s.Context))
	for ns := range s.Context {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}
