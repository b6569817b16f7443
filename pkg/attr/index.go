package attr

import (
	"slices"
	"sort"
)

// IndexItem pairs a row key with its value in the indexed column.
type IndexItem struct {
	Key   int
	Value float64
}

// Index returns every row ordered by its value in column col (ascending,
// ties in row order). Unset values sort first. Display code uses the rank
// of a row to colour it.
func (t *Table) Index(col int) []IndexItem {
	items := make([]IndexItem, 0, len(t.rows))
	for _, r := range t.rows {
		items = append(items, IndexItem{Key: r.key, Value: r.Value(col)})
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].Value < items[b].Value })
	return items
}

// Rank returns the position of key in idx, or -1.
func Rank(idx []IndexItem, key int) int {
	return slices.IndexFunc(idx, func(it IndexItem) bool { return it.Key == key })
}

// PushSelectionToLayer creates a layer called name, adds every selected row
// to it and makes the layer visible. It returns the new layer's index.
func PushSelectionToLayer(t *Table, name string, keys []int) (int, error) {
	idx, err := t.layers.AddLayer(name)
	if err != nil {
		return -1, err
	}
	key := t.layers.Key(idx)
	for _, k := range keys {
		if r, err := t.Row(k); err == nil {
			r.layers |= key
		}
	}
	if err := t.SetLayerVisible(idx, true); err != nil {
		return -1, err
	}
	return idx, nil
}
