package attr

import (
	"encoding/json"
	"fmt"
	"slices"
)

// EverythingLayer is the name of layer 0.
const EverythingLayer = "Everything"

// maxLayers is the number of bits in a layer mask.
const maxLayers = 64

// LayerManager names layers and tracks which of them are visible. The zero
// value is not usable; call [NewLayerManager].
type LayerManager struct {
	names   []string
	visible uint64
}

// NewLayerManager returns a manager holding only the visible "Everything"
// layer.
func NewLayerManager() *LayerManager {
	return &LayerManager{names: []string{EverythingLayer}, visible: 1}
}

// AddLayer registers a new, initially hidden layer and returns its index.
func (m *LayerManager) AddLayer(name string) (int, error) {
	if slices.Contains(m.names, name) {
		return -1, fmt.Errorf("layer %q: %w", name, ErrDuplicateName)
	}
	if len(m.names) >= maxLayers {
		return -1, ErrTooManyLayers
	}
	m.names = append(m.names, name)
	return len(m.names) - 1, nil
}

// Key returns the mask bit of layer index.
func (m *LayerManager) Key(index int) uint64 { return 1 << uint(index) }

// NumLayers returns the number of layers, including "Everything".
func (m *LayerManager) NumLayers() int { return len(m.names) }

// LayerName returns the name of layer index.
func (m *LayerManager) LayerName(index int) (string, error) {
	if index < 0 || index >= len(m.names) {
		return "", fmt.Errorf("layer %d: %w", index, ErrUnknownLayer)
	}
	return m.names[index], nil
}

// LayerIndex returns the index of the named layer.
func (m *LayerManager) LayerIndex(name string) (int, error) {
	i := slices.Index(m.names, name)
	if i < 0 {
		return -1, fmt.Errorf("layer %q: %w", name, ErrUnknownLayer)
	}
	return i, nil
}

// SetLayerVisible sets or clears the visibility bit of layer index.
func (m *LayerManager) SetLayerVisible(index int, visible bool) error {
	if index < 0 || index >= len(m.names) {
		return fmt.Errorf("layer %d: %w", index, ErrUnknownLayer)
	}
	if visible {
		m.visible |= m.Key(index)
	} else {
		m.visible &^= m.Key(index)
	}
	return nil
}

// IsLayerVisible reports whether layer index is switched on.
func (m *LayerManager) IsLayerVisible(index int) bool {
	return index >= 0 && index < len(m.names) && m.visible&m.Key(index) != 0
}

// IsVisible reports whether a row with the given layer mask is visible.
func (m *LayerManager) IsVisible(mask uint64) bool { return mask&m.visible != 0 }

// VisibilityMask returns the mask of all visible layers.
func (m *LayerManager) VisibilityMask() uint64 { return m.visible }

// layerState is the persisted form; layer 0 is implicit.
type layerState struct {
	Layers  []string `json:"layers"`
	Visible uint64   `json:"visible"`
}

// MarshalJSON stores the layer names in declaration order and the
// visibility mask.
func (m *LayerManager) MarshalJSON() ([]byte, error) {
	return json.Marshal(layerState{Layers: append([]string{}, m.names[1:]...), Visible: m.visible})
}

// UnmarshalJSON restores a manager written by MarshalJSON, reproducing the
// same bit assignment.
func (m *LayerManager) UnmarshalJSON(data []byte) error {
	var s layerState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	fresh := NewLayerManager()
	for _, name := range s.Layers {
		if _, err := fresh.AddLayer(name); err != nil {
			return err
		}
	}
	fresh.visible = s.Visible
	*m = *fresh
	return nil
}
