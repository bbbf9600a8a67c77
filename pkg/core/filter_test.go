package core_test

import (
	"testing"

	"github.com/aretw0/daybook/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Expression(t *testing.T) {
	assert.Equal(t, `parent == "" && kind == "container" && name == "kgiri"`,
		core.Containers("kgiri", core.Root).Expression())
	assert.Equal(t, `parent == "c1" && kind == "leaf" && name == "note.json"`,
		core.Leaves("note.json", "c1").String())
	assert.Equal(t, `parent == "c1"`, core.Filter{Parent: "c1"}.Expression())
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		name   string
		filter core.Filter
		entry  core.Entry
		want   bool
	}{
		{"container match", core.Containers("kgiri", core.Root), core.Entry{ID: "1", Name: "kgiri", Kind: core.KindContainer}, true},
		{"wrong parent", core.Containers("kgiri", core.Root), core.Entry{ID: "1", Name: "kgiri", Kind: core.KindContainer, ParentID: "x"}, false},
		{"wrong kind", core.Containers("note.json", "c1"), core.Entry{ID: "1", Name: "note.json", Kind: core.KindLeaf, ParentID: "c1"}, false},
		{"wrong name", core.Leaves("note.json", "c1"), core.Entry{ID: "1", Name: "note.yaml", Kind: core.KindLeaf, ParentID: "c1"}, false},
		{"quotes in name", core.Containers(`o"brien`, core.Root), core.Entry{ID: "1", Name: `o"brien`, Kind: core.KindContainer}, true},
		{"any kind", core.Filter{Parent: "c1"}, core.Entry{ID: "1", Name: "x", Kind: core.KindLeaf, ParentID: "c1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := core.CompileFilter(tt.filter)
			require.NoError(t, err)
			got, err := m.Match(tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileExpression(t *testing.T) {
	m, err := core.CompileExpression(`kind == "container" && name startsWith "2024-"`)
	require.NoError(t, err)

	ok, err := m.Match(core.Entry{Name: "2024-03-05", Kind: core.KindContainer})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = core.CompileExpression(`name + 1`)
	assert.Error(t, err)

	_, err = core.CompileExpression(`owner == "kgiri"`)
	assert.Error(t, err, "unknown variables are rejected")
}
