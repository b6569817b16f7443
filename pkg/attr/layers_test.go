package attr

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayerManagerDefaults(t *testing.T) {
	m := NewLayerManager()
	assert.True(t, m.IsVisible(1))
	name, err := m.LayerName(0)
	require.NoError(t, err)
	assert.Equal(t, EverythingLayer, name)
	assert.True(t, m.IsLayerVisible(0))
	idx, err := m.LayerIndex(EverythingLayer)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, uint64(1), m.Key(0))
	assert.Equal(t, uint64(32), m.Key(5))
}

func TestLayerManagerAddLayer(t *testing.T) {
	m := NewLayerManager()
	i, err := m.AddLayer("some layer")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.False(t, m.IsLayerVisible(1))
	assert.False(t, m.IsVisible(2))

	j, err := m.AddLayer("another layer")
	require.NoError(t, err)
	assert.Equal(t, 2, j)

	_, err = m.AddLayer("another layer")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = m.LayerIndex("missing")
	assert.ErrorIs(t, err, ErrUnknownLayer)
	assert.ErrorIs(t, m.SetLayerVisible(9, true), ErrUnknownLayer)
}

func TestLayerVisibility(t *testing.T) {
	m := NewLayerManager()
	a, _ := m.AddLayer("A")
	_, _ = m.AddLayer("B")

	inA := uint64(1) | m.Key(a) // rows always belong to Everything
	inNeither := uint64(1)

	require.NoError(t, m.SetLayerVisible(a, true))
	assert.True(t, m.IsVisible(inA))
	assert.True(t, m.IsVisible(inNeither))

	require.NoError(t, m.SetLayerVisible(0, false))
	assert.True(t, m.IsVisible(inA))
	assert.False(t, m.IsVisible(inNeither))

	require.NoError(t, m.SetLayerVisible(a, false))
	assert.False(t, m.IsVisible(inA))

	require.NoError(t, m.SetLayerVisible(0, true))
	assert.True(t, m.IsVisible(inA))
	assert.True(t, m.IsVisible(inNeither))
}

func TestLayerManagerJSON(t *testing.T) {
	m := NewLayerManager()
	_, _ = m.AddLayer("some layer")
	_, _ = m.AddLayer("another layer")
	require.NoError(t, m.SetLayerVisible(2, true))
	require.NoError(t, m.SetLayerVisible(0, false))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"layers":["some layer","another layer"],"visible":4}`, string(data))

	var back LayerManager
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(m.VisibilityMask(), back.VisibilityMask()); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}
	idx, err := back.LayerIndex("another layer")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, uint64(4), back.Key(idx))
	assert.False(t, back.IsVisible(1))
	assert.True(t, back.IsVisible(4))
}

func TestPushSelectionToLayer(t *testing.T) {
	tb := New()
	for _, k := range []int{1, 2, 3} {
		tb.AddRow(k)
	}
	idx, err := PushSelectionToLayer(tb, "picked", []int{1, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.True(t, tb.Layers().IsLayerVisible(idx))

	r1, _ := tb.Row(1)
	r2, _ := tb.Row(2)
	assert.Equal(t, uint64(3), r1.Layers())
	assert.Equal(t, uint64(1), r2.Layers())

	_, err = PushSelectionToLayer(tb, "picked", []int{2})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestIndexOrdersByValue(t *testing.T) {
	tb := New()
	col := tb.InsertOrResetColumn("v")
	for k, v := range map[int]float64{1: 5, 2: 1, 3: 3} {
		tb.AddRow(k)
		require.NoError(t, tb.SetValue(k, col, v))
	}
	idx := tb.Index(col)
	require.Len(t, idx, 3)
	assert.Equal(t, 2, idx[0].Key)
	assert.Equal(t, 1, idx[2].Key)
	assert.Equal(t, 1, Rank(idx, 3))
	assert.Equal(t, -1, Rank(idx, 9))
}
