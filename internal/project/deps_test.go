package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeDependences(t *testing.T) {
	groups := []DependenceGroup{
		{GroupName: "g1", DepList: []Dependence{
			{Name: "a", IncList: []string{"inc/foo", "inc/bar"}, DefineList: []string{"A=1"}},
		}},
		{GroupName: "g2", DepList: []Dependence{
			{Name: "b", IncList: []string{"inc/foo", "inc/baz"}, LibList: []string{"lib"}},
			{Name: "c", DefineList: []string{"A=1", "C"}},
		}},
	}

	tests := []struct {
		name     string
		excludes []string
		inc      []string
		defines  []string
	}{
		{"all", nil, []string{"inc/foo", "inc/bar", "inc/baz"}, []string{"A=1", "C"}},
		{"group", []string{"g1"}, []string{"inc/foo", "inc/baz"}, []string{"A=1", "C"}},
		{"dependence", []string{"g2.c"}, []string{"inc/foo", "inc/bar", "inc/baz"}, []string{"A=1"}},
		{"everything", []string{"g1", "g2"}, []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeDependences(groups, tt.excludes)
			assert.Equal(t, tt.inc, merged.IncList)
			assert.Equal(t, tt.defines, merged.DefineList)
		})
	}
}

func TestMergeDependences_DoesNotAliasInput(t *testing.T) {
	groups := []DependenceGroup{{GroupName: "g", DepList: []Dependence{
		{Name: "a", IncList: []string{"x", "x", "y"}},
	}}}
	merged := MergeDependences(groups, nil)
	assert.Equal(t, []string{"x", "y"}, merged.IncList)
	assert.Equal(t, []string{"x", "x", "y"}, groups[0].DepList[0].IncList)
}

func TestPersistedGroups_DropsReserved(t *testing.T) {
	groups := []DependenceGroup{{GroupName: BuiltInGroup}, {GroupName: CustomGroup}, {GroupName: "user"}}
	out := persistedGroups(groups)
	assert.Len(t, out, 1)
	assert.Equal(t, "user", out[0].GroupName)
}

func TestCustomField_String(t *testing.T) {
	assert.Equal(t, "incList", IncludePaths.String())
	assert.Equal(t, "defineList", Defines.String())
	assert.Equal(t, "CustomField(9)", CustomField(9).String())
}
