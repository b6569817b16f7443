package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewApply(t *testing.T) {
	none := View{}
	grid := makeView(FamilyGrid, FamilyNone)
	axial := makeView(FamilyAxial, FamilyNone)
	gridOverAxial := makeView(FamilyGrid, FamilyAxial)
	axialOverGrid := makeView(FamilyAxial, FamilyGrid)
	axialOverData := makeView(FamilyAxial, FamilyData)

	tests := []struct {
		name string
		from View
		cmd  Command
		want View
	}{
		{"show on empty", none, ShowHideGrid, grid},
		{"hide only", grid, ShowHideGrid, none},
		{"hide front promotes back", gridOverAxial, ShowHideGrid, axial},
		{"toggle absent demotes front", grid, ShowHideAxial, axialOverGrid},
		{"toggle back swaps", gridOverAxial, ShowHideAxial, axialOverGrid},
		{"toggle absent drops old back", gridOverAxial, ShowHideData, makeView(FamilyData, FamilyGrid)},
		{"top on empty", none, ShowDataTop, makeView(FamilyData, FamilyNone)},
		{"top when front", axialOverData, ShowAxialTop, axialOverData},
		{"top when back", axialOverData, ShowDataTop, makeView(FamilyData, FamilyAxial)},
		{"top when absent", axial, ShowGridTop, gridOverAxial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.Apply(tt.cmd)
			assert.Equal(t, tt.want, got)
			if got.Back() != FamilyNone {
				assert.NotEqual(t, FamilyNone, got.Front())
				assert.NotEqual(t, got.Front(), got.Back())
			}
		})
	}
}

func TestViewDropAndString(t *testing.T) {
	v := makeView(FamilyGrid, FamilyAxial)
	assert.Equal(t, "grid over axial", v.String())
	assert.True(t, v.Shows(FamilyAxial))
	assert.False(t, v.Shows(FamilyData))
	assert.Equal(t, makeView(FamilyGrid, FamilyNone), v.drop(FamilyAxial))
	assert.Equal(t, makeView(FamilyAxial, FamilyNone), v.drop(FamilyGrid))
	assert.Equal(t, v, v.drop(FamilyData))
	assert.Equal(t, "none", View{}.String())
	assert.Equal(t, View{}, makeView(FamilyNone, FamilyGrid))

	f, err := ParseFamily("shape")
	assert.NoError(t, err)
	assert.Equal(t, FamilyData, f)
	_, err = ParseFamily("tower")
	assert.Error(t, err)
}
