package attr

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"sort"
)

// Display column sentinels used by [Table.DisplayColumn].
const (
	// DisplayKey shows the row key instead of a column.
	DisplayKey = -1
	// DisplayNone means no column is displayed and the owner should pick one.
	DisplayNone = -2
)

// Row is one entity's values. Rows are owned by their [Table]; values and
// layer membership change only through Table methods so that statistics stay
// consistent.
type Row struct {
	key    int
	layers uint64
	values []float64
}

// Key returns the entity key of the row.
func (r *Row) Key() int { return r.key }

// Layers returns the row's layer mask.
func (r *Row) Layers() uint64 { return r.layers }

// Value returns the value in column col, or [Unset] for an out-of-range
// column.
func (r *Row) Value(col int) float64 {
	if col < 0 || col >= len(r.values) {
		return Unset
	}
	return r.values[col]
}

// Table is a columnar attribute store. It is not safe for concurrent use.
type Table struct {
	columns []*Column
	rows    []*Row
	index   map[int]int // key -> position in rows
	layers  *LayerManager
	display int
}

// New returns an empty table with a fresh [LayerManager].
func New() *Table {
	return &Table{
		index:   make(map[int]int),
		layers:  NewLayerManager(),
		display: DisplayNone,
	}
}

// Layers returns the table's layer manager. Callers that change visibility
// directly must call [Table.InvalidateStats] afterwards; prefer
// [Table.SetLayerVisible].
func (t *Table) Layers() *LayerManager { return t.layers }

// SetLayerVisible toggles a layer and marks every column's visible
// statistics for recomputation.
func (t *Table) SetLayerVisible(index int, visible bool) error {
	if err := t.layers.SetLayerVisible(index, visible); err != nil {
		return err
	}
	t.InvalidateStats(-1)
	return nil
}

// =============================================================================
// Columns
// =============================================================================

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// Column returns a copy of column i's description.
func (t *Table) Column(i int) (Column, error) {
	if i < 0 || i >= len(t.columns) {
		return Column{}, fmt.Errorf("column %d: %w", i, ErrUnknownColumn)
	}
	return *t.columns[i], nil
}

// ColumnNames returns the column names in logical order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the index of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.columns {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, err := t.ColumnIndex(name)
	return err == nil
}

// InsertOrResetColumn creates the named column, or clears every value and
// the statistics of an existing one. The row count is unchanged.
func (t *Table) InsertOrResetColumn(name string) int {
	return t.insertOrReset(name, false, "")
}

// InsertOrResetLockedColumn is InsertOrResetColumn for a locked column.
func (t *Table) InsertOrResetLockedColumn(name string) int {
	return t.insertOrReset(name, true, "")
}

// GetOrInsertColumn returns the index of the named column, creating it if
// needed. Existing values are kept.
func (t *Table) GetOrInsertColumn(name string) int {
	if i, err := t.ColumnIndex(name); err == nil {
		return i
	}
	return t.appendColumn(name, false, "")
}

// GetOrInsertLockedColumn returns the index of the named column, creating a
// locked column with the given formula if needed.
func (t *Table) GetOrInsertLockedColumn(name, formula string) int {
	if i, err := t.ColumnIndex(name); err == nil {
		t.columns[i].Locked = true
		return i
	}
	return t.appendColumn(name, true, formula)
}

func (t *Table) insertOrReset(name string, locked bool, formula string) int {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return t.appendColumn(name, locked, formula)
	}
	for _, r := range t.rows {
		r.values[i] = Unset
	}
	c := t.columns[i]
	c.reset()
	c.Locked = c.Locked || locked
	return i
}

func (t *Table) appendColumn(name string, locked bool, formula string) int {
	c := &Column{Name: name, Formula: formula, Locked: locked}
	c.reset()
	t.columns = append(t.columns, c)
	for _, r := range t.rows {
		r.values = append(r.values, Unset)
	}
	return len(t.columns) - 1
}

// SetColumnLocked changes the locked flag of column i.
func (t *Table) SetColumnLocked(i int, locked bool) error {
	if i < 0 || i >= len(t.columns) {
		return fmt.Errorf("column %d: %w", i, ErrUnknownColumn)
	}
	t.columns[i].Locked = locked
	return nil
}

// SetColumnHidden changes the hidden flag of column i.
func (t *Table) SetColumnHidden(i int, hidden bool) error {
	if i < 0 || i >= len(t.columns) {
		return fmt.Errorf("column %d: %w", i, ErrUnknownColumn)
	}
	t.columns[i].Hidden = hidden
	return nil
}

// SetColumnFormula records the formula a column was computed with.
func (t *Table) SetColumnFormula(i int, formula string) error {
	if i < 0 || i >= len(t.columns) {
		return fmt.Errorf("column %d: %w", i, ErrUnknownColumn)
	}
	t.columns[i].Formula = formula
	return nil
}

// RemoveColumn deletes column i from every row. Later columns shift down by
// one and the display column follows its column.
func (t *Table) RemoveColumn(i int) error {
	if i < 0 || i >= len(t.columns) {
		return fmt.Errorf("column %d: %w", i, ErrUnknownColumn)
	}
	if t.columns[i].Locked {
		return fmt.Errorf("remove %q: %w", t.columns[i].Name, ErrColumnLocked)
	}
	t.columns = slices.Delete(t.columns, i, i+1)
	for _, r := range t.rows {
		r.values = slices.Delete(r.values, i, i+1)
	}
	switch {
	case t.display == i:
		t.display = DisplayNone
	case t.display > i:
		t.display--
	}
	return nil
}

// RenameColumn gives column i a new name.
func (t *Table) RenameColumn(i int, name string) error {
	if i < 0 || i >= len(t.columns) {
		return fmt.Errorf("column %d: %w", i, ErrUnknownColumn)
	}
	c := t.columns[i]
	if c.Locked {
		return fmt.Errorf("rename %q: %w", c.Name, ErrColumnLocked)
	}
	if j, err := t.ColumnIndex(name); err == nil && j != i {
		return fmt.Errorf("rename to %q: %w", name, ErrDuplicateName)
	}
	c.Name = name
	return nil
}

// SortedColumnOrder returns column indices ordered by column name. Files
// written in legacy layout store columns in this order.
func (t *Table) SortedColumnOrder() []int {
	order := make([]int, len(t.columns))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t.columns[order[a]].Name < t.columns[order[b]].Name
	})
	return order
}

// SortedColumnIndex maps logical column i to its position in
// SortedColumnOrder. Negative sentinels pass through unchanged.
func (t *Table) SortedColumnIndex(i int) int {
	if i < 0 {
		return i
	}
	return slices.Index(t.SortedColumnOrder(), i)
}

// DisplayColumn returns the displayed column index, [DisplayKey] or
// [DisplayNone].
func (t *Table) DisplayColumn() int { return t.display }

// SetDisplayColumn selects the displayed column.
func (t *Table) SetDisplayColumn(i int) error {
	if i != DisplayKey && i != DisplayNone && (i < 0 || i >= len(t.columns)) {
		return fmt.Errorf("column %d: %w", i, ErrUnknownColumn)
	}
	t.display = i
	return nil
}

// =============================================================================
// Rows
// =============================================================================

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// AddRow adds a row for key with every value unset and membership of the
// "Everything" layer only. An existing row is returned unchanged.
func (t *Table) AddRow(key int) *Row {
	if pos, ok := t.index[key]; ok {
		return t.rows[pos]
	}
	r := &Row{key: key, layers: 1, values: make([]float64, len(t.columns))}
	for i := range r.values {
		r.values[i] = Unset
	}
	t.index[key] = len(t.rows)
	t.rows = append(t.rows, r)
	return r
}

// RemoveRow deletes the row for key, folding its values out of the column
// statistics. It reports whether a row was removed.
func (t *Table) RemoveRow(key int) bool {
	pos, ok := t.index[key]
	if !ok {
		return false
	}
	r := t.rows[pos]
	visible := t.layers.IsVisible(r.layers)
	for i, c := range t.columns {
		c.replace(r.values[i], Unset, visible)
	}
	t.rows = slices.Delete(t.rows, pos, pos+1)
	delete(t.index, key)
	for i := pos; i < len(t.rows); i++ {
		t.index[t.rows[i].key] = i
	}
	return true
}

// RemoveRows deletes the rows for keys in one pass, folding their values out
// of the column statistics. Unknown keys are skipped. It returns how many
// rows were removed.
func (t *Table) RemoveRows(keys []int) int {
	first := len(t.rows)
	n := 0
	for _, k := range keys {
		pos, ok := t.index[k]
		if !ok {
			continue
		}
		r := t.rows[pos]
		visible := t.layers.IsVisible(r.layers)
		for i, c := range t.columns {
			c.replace(r.values[i], Unset, visible)
		}
		delete(t.index, k)
		t.rows[pos] = nil
		first = min(first, pos)
		n++
	}
	if n == 0 {
		return 0
	}
	t.rows = slices.DeleteFunc(t.rows, func(r *Row) bool { return r == nil })
	for i := first; i < len(t.rows); i++ {
		t.index[t.rows[i].key] = i
	}
	return n
}

// Clear removes every row but keeps the columns.
func (t *Table) Clear() {
	t.rows = nil
	t.index = make(map[int]int)
	for _, c := range t.columns {
		c.reset()
	}
}

// HasRow reports whether a row exists for key.
func (t *Table) HasRow(key int) bool {
	_, ok := t.index[key]
	return ok
}

// Row returns the row for key.
func (t *Table) Row(key int) (*Row, error) {
	pos, ok := t.index[key]
	if !ok {
		return nil, fmt.Errorf("row %d: %w", key, ErrUnknownRow)
	}
	return t.rows[pos], nil
}

// Rows iterates over rows in insertion order. Writing values during
// iteration is allowed; adding or removing rows is not.
func (t *Table) Rows() iter.Seq[*Row] {
	return func(yield func(*Row) bool) {
		for _, r := range t.rows {
			if !yield(r) {
				return
			}
		}
	}
}

// Keys returns the row keys in insertion order.
func (t *Table) Keys() []int {
	keys := make([]int, len(t.rows))
	for i, r := range t.rows {
		keys[i] = r.key
	}
	return keys
}

// IsRowVisible reports whether the row for key is on a visible layer.
func (t *Table) IsRowVisible(key int) bool {
	r, err := t.Row(key)
	return err == nil && t.layers.IsVisible(r.layers)
}

// AddRowLayers ORs mask into the row's layer membership.
func (t *Table) AddRowLayers(key int, mask uint64) error {
	r, err := t.Row(key)
	if err != nil {
		return err
	}
	r.layers |= mask
	t.InvalidateStats(-1)
	return nil
}

// SetRowLayers replaces the row's layer membership. Bit 0 is always kept.
func (t *Table) SetRowLayers(key int, mask uint64) error {
	r, err := t.Row(key)
	if err != nil {
		return err
	}
	r.layers = mask | 1
	t.InvalidateStats(-1)
	return nil
}

// =============================================================================
// Values
// =============================================================================

// SetValue writes v into column col of the row for key and updates the
// column statistics.
func (t *Table) SetValue(key, col int, v float64) error {
	r, err := t.Row(key)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(t.columns) {
		return fmt.Errorf("column %d: %w", col, ErrUnknownColumn)
	}
	old := r.values[col]
	if old == v {
		return nil
	}
	r.values[col] = v
	t.columns[col].replace(old, v, t.layers.IsVisible(r.layers))
	return nil
}

// Value returns the value in column col of the row for key.
func (t *Table) Value(key, col int) (float64, error) {
	r, err := t.Row(key)
	if err != nil {
		return Unset, err
	}
	if col < 0 || col >= len(t.columns) {
		return Unset, fmt.Errorf("column %d: %w", col, ErrUnknownColumn)
	}
	return r.values[col], nil
}

// NormalisedValue returns (v-min)/(max-min) for the value in column col,
// 0 when the column holds a single distinct value, and [Unset] for unset
// cells. Stale bounds are recomputed first.
func (t *Table) NormalisedValue(key, col int) (float64, error) {
	v, err := t.Value(key, col)
	if err != nil || v == Unset {
		return Unset, err
	}
	t.ensureColumn(col)
	s := t.columns[col].Stats
	if s.Max == s.Min {
		return 0, nil
	}
	return (v - s.Min) / (s.Max - s.Min), nil
}

// SelectedAverage returns the mean of column col over the given keys,
// ignoring unset cells and unknown keys. It returns [Unset] if nothing
// contributes.
func (t *Table) SelectedAverage(col int, keys []int) float64 {
	if col < 0 || col >= len(t.columns) {
		return Unset
	}
	var sum float64
	var n int
	for _, k := range keys {
		r, err := t.Row(k)
		if err != nil || r.values[col] == Unset {
			continue
		}
		sum += r.values[col]
		n++
	}
	if n == 0 {
		return Unset
	}
	return sum / float64(n)
}

// =============================================================================
// Statistics
// =============================================================================

// InvalidateStats marks column col stale, or every column when col < 0.
func (t *Table) InvalidateStats(col int) {
	if col < 0 {
		for _, c := range t.columns {
			c.stale = true
		}
		return
	}
	if col < len(t.columns) {
		t.columns[col].stale = true
	}
}

// EnsureStats recomputes the statistics of every stale column.
func (t *Table) EnsureStats() {
	for i := range t.columns {
		t.ensureColumn(i)
	}
}

func (t *Table) ensureColumn(i int) {
	c := t.columns[i]
	if !c.stale {
		return
	}
	s := unsetStats()
	for _, r := range t.rows {
		v := r.values[i]
		if v == Unset {
			continue
		}
		accumulate(&s.Min, &s.Max, &s.Total, &s.Count, v)
		if t.layers.IsVisible(r.layers) {
			accumulate(&s.VisibleMin, &s.VisibleMax, &s.VisibleTotal, &s.VisibleCount, v)
		}
	}
	c.Stats = s
	c.stale = false
}

func accumulate(lo, hi, total *float64, n *int, v float64) {
	if *n == 0 {
		*lo, *hi, *total = v, v, 0
	}
	*n++
	*total += v
	*lo = math.Min(*lo, v)
	*hi = math.Max(*hi, v)
}
