package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aescanero/dago-pathway-router/internal/patient"
)

func TestScope_SetCopies(t *testing.T) {
	s := NewScope(patient.Record{})
	values := map[string]any{"score": 3.0}
	s.Set("centor", values)
	values["score"] = 0.0

	v, ok := s.Lookup("centor.score")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestScope_Lookup(t *testing.T) {
	s := NewScope(patient.Record{"seizure": true})
	s.Set("sepsis", map[string]any{"activated": true, "terminal": nil})

	v, ok := s.Lookup("seizure")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = s.Lookup("sepsis.terminal")
	assert.False(t, ok, "nil context values are absent")

	_, ok = s.Lookup("sepsis.status")
	assert.False(t, ok)

	assert.Equal(t, []string{"sepsis"}, s.Namespaces())
}

func TestScope_VarsAndTemplateData(t *testing.T) {
	s := NewScope(patient.Record{"fever_days": 6.0, "cough": nil})
	s.Set("uticalc", map[string]any{"percent": 21.51})

	vars := s.Vars()
	input := vars["input"].(map[string]interface{})
	assert.Equal(t, 6.0, input["fever_days"])
	_, hasCough := input["cough"]
	assert.False(t, hasCough)
	ctx := vars["ctx"].(map[string]interface{})
	assert.Equal(t, 21.51, ctx["uticalc"].(map[string]interface{})["percent"])

	data := s.TemplateData()
	assert.Equal(t, 6.0, data["fever_days"])
	assert.Equal(t, 21.51, data["uticalc"].(map[string]interface{})["percent"])
}
