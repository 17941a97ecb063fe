package patient

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	f, ok := Lookup("age_months")
	require.True(t, ok)
	assert.Equal(t, KindNumber, f.Kind)
	assert.True(t, f.Whole())

	f, ok = Lookup("tmax_c")
	require.True(t, ok)
	assert.False(t, f.Whole(), "temperatures are compared exactly")

	f, ok = Lookup("sex")
	require.True(t, ok)
	assert.Equal(t, KindCategory, f.Kind)
	assert.ElementsMatch(t, []string{"female", "male"}, f.Values)

	f, ok = Lookup("rash_distribution")
	require.True(t, ok)
	assert.Contains(t, f.Values, "head_to_toes")

	_, ok = Lookup("not_a_field")
	assert.False(t, ok)
}

func TestSchema_SortedAndUnique(t *testing.T) {
	all := Schema()
	require.NotEmpty(t, all)

	names := make([]string, len(all))
	seen := map[string]bool{}
	for i, f := range all {
		names[i] = f.Name
		assert.False(t, seen[f.Name], "duplicate field %s", f.Name)
		seen[f.Name] = true
	}
	assert.True(t, sort.StringsAreSorted(names))
}
